package utils

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/vcredible/vcredible-api/internal/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	// Same pattern the intake form enforces client-side: optional +,
	// optional leading 1, then 9-15 digits.
	phoneRegexp = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

// Validator returns the shared validator instance with custom rules
// registered (singleton pattern).
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// Report field errors under their wire names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRegexp.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct runs struct validation and converts failures into the
// domain ValidationError with one message per field.
func ValidateStruct(s interface{}) *types.ValidationError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	} else {
		fields["_"] = err.Error()
	}
	return &types.ValidationError{Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "phone":
		return "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	case "min":
		return "Value is too short (min " + fe.Param() + ")."
	case "max":
		return "Value is too long (max " + fe.Param() + ")."
	case "oneof":
		return "Value must be one of: " + fe.Param() + "."
	default:
		return "Invalid value."
	}
}
