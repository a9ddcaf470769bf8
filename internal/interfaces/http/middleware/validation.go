package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// maxMoneyAmount is the largest amount a decimal(12,2) column holds
var maxMoneyAmount = decimal.RequireFromString("9999999999.99")

// SetupValidator configures gin's validator with JSON field names and the
// billing tags: money, currency and phone.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return RegisterValidations(v)
}

// RegisterValidations adds the billing tags to v
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// Decimals are validated through their string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	for tag, fn := range map[string]validator.Func{
		"money":    validateMoney,
		"currency": validateCurrency,
		"phone":    validatePhone,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// validateMoney accepts a non-negative amount with at most two decimals
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Round(valueobject.MoneyScale).Equal(d) && d.LessThanOrEqual(maxMoneyAmount)
}

func validateCurrency(fl validator.FieldLevel) bool {
	_, err := valueobject.ParseCurrency(fl.Field().String())
	return err == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	_, err := valueobject.NewPhoneNumber(fl.Field().String())
	return err == nil
}

// ValidationDetails turns binding errors into per-field details. Errors that
// are not validator errors (malformed JSON, bad types) yield a single detail.
func ValidationDetails(err error) []dto.ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []dto.ValidationDetail{{Field: "body", Message: err.Error()}}
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   fieldPath(e),
			Message: getValidationMessage(e),
		})
	}
	return details
}

// fieldPath drops the top-level struct name: "CreateClientRequest.address.city" -> "address.city"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "money":
		return "Must be a non-negative amount with at most 2 decimals"
	case "currency":
		return "Must be a 3-letter currency code"
	case "phone":
		return "Invalid phone number"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " items"
		}
		return "Must be at most " + e.Param()
	default:
		return "Invalid value"
	}
}
