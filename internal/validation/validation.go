// Package validation checks request payloads with struct tags.
//
// Besides the stock validator tags it understands decimal.Decimal fields
// (compared as numbers, so `gt=0` works on money) and the `ke_phone` tag,
// which accepts Kenyan mobile numbers in any of the usual spellings.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitpay/internal/reconcile"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		v.RegisterTagNameFunc(jsonName)
		if err := v.RegisterValidation("ke_phone", validPhone); err != nil {
			panic(err)
		}
		instance = v
	})
	return instance
}

// Struct validates s and returns an error whose message names each
// offending field, or nil.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "numeric":
		return field + " must contain only digits"
	case "ke_phone":
		return field + " must be a valid phone number"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s", field, countOf(fe))
	case "max":
		return fmt.Sprintf("%s must have at most %s", field, countOf(fe))
	case "email":
		return field + " must be a valid email"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func countOf(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return fe.Param() + " characters"
	}
	return fe.Param() + " items"
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validPhone(fl validator.FieldLevel) bool {
	return reconcile.ValidPhone(fl.Field().String())
}
