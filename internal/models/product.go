package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Decimal — денежное/рейтинговое значение. Сервер отдаёт DecimalField
// строкой ("12.50"), вычисляемые поля — числом; принимаем оба варианта.
type Decimal float64

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}

		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}

		*d = Decimal(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*d = Decimal(v)
	return nil
}

// Product — товар в том виде, в каком его отдаёт /products/*.
// Вычисляемые сервером поля (profit_margin, revenue, optimized_price)
// только читаются.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	CostPrice       Decimal         `json:"cost_price"`
	SellingPrice    Decimal         `json:"selling_price"`
	Description     string          `json:"description"`
	StockAvailable  int64           `json:"stock_available"`
	UnitsSold       int64           `json:"units_sold"`
	CustomerRating  *Decimal        `json:"customer_rating,omitempty"`
	DemandForecast  json.RawMessage `json:"demand_forecast,omitempty"`
	OptimizedPrice  *Decimal        `json:"optimized_price,omitempty"`
	ProfitMargin    Decimal         `json:"profit_margin"`
	Revenue         Decimal         `json:"revenue"`
	ForecastedValue json.RawMessage `json:"demand_forecast_value,omitempty"`
}

// ProductInput — тело создания/обновления товара.
type ProductInput struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	CostPrice      float64  `json:"cost_price"`
	SellingPrice   float64  `json:"selling_price"`
	Description    string   `json:"description"`
	StockAvailable int64    `json:"stock_available"`
	UnitsSold      int64    `json:"units_sold"`
	CustomerRating *float64 `json:"customer_rating,omitempty"`
}

// MLOptimizeRequest — запрос ML-рекомендации цены.
type MLOptimizeRequest struct {
	ProductID int64 `json:"product_id"`
}

// ABTestRequest — сравнение стратегий; StrategyName пустой — сравнить все.
type ABTestRequest struct {
	ProductID    int64  `json:"product_id"`
	StrategyName string `json:"strategy_name,omitempty"`
}

// BatchOptimizeRequest — пакетная оптимизация; Type: ml | ab_testing | inventory.
type BatchOptimizeRequest struct {
	ProductIDs []int64 `json:"product_ids"`
	Type       string  `json:"type,omitempty"`
}
