// forms — проверка пользовательского ввода до того, как он уйдёт в
// session.Manager или api.Client (go-playground/validator).
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/go-playground/validator/v10"
)

// FieldError — одна ошибка поля в виде, пригодном для ответа UI.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError собирает все ошибки формы разом.
type ValidationError struct {
	Errors []FieldError
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

// Fields — сообщения по полям.
func (ve ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(ve.Errors))
	for _, fe := range ve.Errors {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}

	return out
}

// Validator — обёртка над validator.Validate. Безопасен для конкурентного использования.
type Validator struct {
	v *validator.Validate
}

// NewValidator создаёт валидатор, который называет поля по json-тегам.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// notblank — строка не пустая после TrimSpace; required пропускает "   ".
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}

	return &Validator{v: v}
}

var std = NewValidator()

// Validate проверяет форму валидатором по умолчанию.
func Validate(form any) error { return std.Validate(form) }

// Validate возвращает ValidationError, если форма не прошла проверку.
func (v *Validator) Validate(form any) error {
	err := v.v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := ValidationError{Errors: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Errors[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: msgForTag(fe.Tag(), fe.Param(), fe.Kind()),
		}
	}

	return out
}

func msgForTag(tag, param string, kind reflect.Kind) string {
	switch tag {
	case "required", "notblank":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if kind == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s)", param)
		}
		return fmt.Sprintf("This field must be at least %s characters long", param)
	case "max":
		return fmt.Sprintf("This field must not exceed %s characters", param)
	case "eqfield":
		if param == "Password" {
			return "Passwords do not match"
		}
		return fmt.Sprintf("This field must match %s", snake(param))
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "gt":
		return fmt.Sprintf("Must be greater than %s", param)
	case "gtfield":
		return fmt.Sprintf("Must be greater than %s", snake(param))
	case "gte":
		return fmt.Sprintf("Must be at least %s", param)
	case "lte":
		return fmt.Sprintf("Must be at most %s", param)
	default:
		return fmt.Sprintf("Failed validation on rule: %s", tag)
	}
}

// snake: CostPrice → cost_price.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Login — форма входа.
type Login struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// Register — форма регистрации.
type Register struct {
	Username        string      `json:"username"         validate:"required,notblank,max=150"`
	Email           string      `json:"email"            validate:"required,email"`
	Password        string      `json:"password"         validate:"required,min=6"`
	ConfirmPassword string      `json:"confirm_password" validate:"eqfield=Password"`
	Role            models.Role `json:"role"             validate:"required,oneof=buyer supplier admin"`
}

// Product — форма создания/редактирования товара.
type Product struct {
	Name           string   `json:"name"            validate:"required,notblank,max=255"`
	Category       string   `json:"category"        validate:"required,notblank"`
	CostPrice      float64  `json:"cost_price"      validate:"gt=0"`
	SellingPrice   float64  `json:"selling_price"   validate:"gt=0,gtfield=CostPrice"`
	Description    string   `json:"description"`
	StockAvailable int64    `json:"stock_available" validate:"gte=0"`
	UnitsSold      int64    `json:"units_sold"      validate:"gte=0"`
	CustomerRating *float64 `json:"customer_rating" validate:"omitempty,gte=0,lte=5"`
}

// Input — тело запроса к API.
func (p Product) Input() models.ProductInput {
	return models.ProductInput{
		Name:           strings.TrimSpace(p.Name),
		Category:       strings.TrimSpace(p.Category),
		CostPrice:      p.CostPrice,
		SellingPrice:   p.SellingPrice,
		Description:    p.Description,
		StockAvailable: p.StockAvailable,
		UnitsSold:      p.UnitsSold,
		CustomerRating: p.CustomerRating,
	}
}

// MLOptimize — запрос ML-рекомендации цены.
type MLOptimize struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
}

func (f MLOptimize) Request() models.MLOptimizeRequest {
	return models.MLOptimizeRequest{ProductID: f.ProductID}
}

// ABTest — сравнение стратегий; пустой strategy_name — сравнить все.
type ABTest struct {
	ProductID    int64  `json:"product_id"    validate:"gt=0"`
	StrategyName string `json:"strategy_name" validate:"omitempty,notblank"`
}

func (f ABTest) Request() models.ABTestRequest {
	return models.ABTestRequest{ProductID: f.ProductID, StrategyName: strings.TrimSpace(f.StrategyName)}
}

// BatchOptimize — пакетная оптимизация.
type BatchOptimize struct {
	ProductIDs []int64 `json:"product_ids" validate:"min=1,dive,gt=0"`
	Type       string  `json:"type"        validate:"omitempty,oneof=ml ab_testing inventory"`
}

func (f BatchOptimize) Request() models.BatchOptimizeRequest {
	return models.BatchOptimizeRequest{ProductIDs: f.ProductIDs, Type: f.Type}
}
