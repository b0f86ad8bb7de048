package models

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func init() {
	// The backend expects prices as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks the struct tags of v.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// ValidateAll checks every element of a slice of structs.
func ValidateAll[T any](items []T) error {
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// FieldErrors flattens validator errors into field names, e.g. "CustomerEmail".
func FieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// FormatMoney renders an amount the way the storefront shows prices.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
