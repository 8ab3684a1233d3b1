package dto

import (
	"reflect"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations adds the ledger tags to v.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("ledger_amount", validateLedgerAmount)
	_ = v.RegisterValidation("currency_code", validateCurrencyCode)
	_ = v.RegisterValidation("idem_key", validateIdempotencyKey)
}

// validateLedgerAmount checks the wire format only; positivity is enforced
// by the ledger itself.
func validateLedgerAmount(fl validator.FieldLevel) bool {
	return money.Valid(fl.Field().String())
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	return domain.ValidCurrencyCode(fl.Field().String())
}

func validateIdempotencyKey(fl validator.FieldLevel) bool {
	return domain.ValidIdempotencyKey(fl.Field().String())
}

// SanitizeStruct trims whitespace from every exported string field (including
// *string) of a struct pointer. Values are otherwise stored verbatim, so a
// field that passed its length check still fits its column.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(s)
}
