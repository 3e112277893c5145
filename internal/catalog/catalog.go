// catalog — клиентская фильтрация и сортировка уже полученного списка товаров.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// ErrUnknownSortKey — сортировка по неизвестному полю.
var ErrUnknownSortKey = errors.New("unknown sort key")

// Query — параметры выборки. Пустые поля не фильтруют.
type Query struct {
	Name     string
	Category string
	SortBy   string
	Desc     bool
}

var keys = map[string]func(a, b models.Product) int{
	"name":            func(a, b models.Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"category":        func(a, b models.Product) int { return strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category)) },
	"selling_price":   func(a, b models.Product) int { return cmpFloat(float64(a.SellingPrice), float64(b.SellingPrice)) },
	"cost_price":      func(a, b models.Product) int { return cmpFloat(float64(a.CostPrice), float64(b.CostPrice)) },
	"stock_available": func(a, b models.Product) int { return cmpInt(a.StockAvailable, b.StockAvailable) },
	"units_sold":      func(a, b models.Product) int { return cmpInt(a.UnitsSold, b.UnitsSold) },
	"customer_rating": func(a, b models.Product) int { return cmpFloat(ratingOf(a), ratingOf(b)) },
	"profit_margin":   func(a, b models.Product) int { return cmpFloat(float64(a.ProfitMargin), float64(b.ProfitMargin)) },
}

// SortKeys — допустимые значения Query.SortBy.
func SortKeys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// Apply возвращает новый срез: подстрока имени без учёта регистра, точная
// категория без учёта регистра, устойчивая сортировка. Вход не меняется.
func Apply(products []models.Product, q Query) ([]models.Product, error) {
	var less func(a, b models.Product) int
	if q.SortBy != "" {
		fn, ok := keys[q.SortBy]
		if !ok {
			return nil, fmt.Errorf("catalog.Apply: %w: %q", ErrUnknownSortKey, q.SortBy)
		}
		less = fn
	}

	name := strings.ToLower(strings.TrimSpace(q.Name))
	category := strings.TrimSpace(q.Category)

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}

	if less != nil {
		sort.SliceStable(out, func(i, j int) bool {
			c := less(out[i], out[j])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	return out, nil
}

func ratingOf(p models.Product) float64 {
	if p.CustomerRating == nil {
		return -1
	}

	return float64(*p.CustomerRating)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
