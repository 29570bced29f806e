// Package validation holds the shared validator used for request inputs.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used to parse phone numbers written without a country code.
const DefaultRegion = "ID"

// MoneyPlaces is the largest number of decimal places the "money" rule accepts.
const MoneyPlaces = 2

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator. Decimal fields are compared
// as numbers, so gt/gte/lte work on money inputs. "money" rejects decimals
// with more than two places and "phone" accepts numbers libphonenumber
// considers valid.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("money", validateMoney)
		_ = v.RegisterValidation("phone", validatePhone)
		instance = v
	})
	return instance
}

func Struct(s any) error {
	return Validator().Struct(s)
}

// Fields flattens validation errors into a field -> failed tag map.
func Fields(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = fe.Tag()
	}
	return fields
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// validateMoney reads the decimal back from the parent struct, because the
// custom type func has already turned fl.Field() into a float64.
func validateMoney(fl validator.FieldLevel) bool {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	field := reflect.Indirect(parent.FieldByName(fl.StructFieldName()))
	if !field.IsValid() {
		return true
	}
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return d.Equal(d.Round(MoneyPlaces))
}

func validatePhone(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

func IsValidPhone(raw string) bool {
	p, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(p)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
