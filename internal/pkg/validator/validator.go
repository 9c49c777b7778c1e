package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Commission model validation
	validate.RegisterValidation("commission_model", func(fl validator.FieldLevel) bool {
		model := fl.Field().String()
		validModels := []string{"DISCOUNT", "MARKUP", "FLAT"}
		for _, m := range validModels {
			if model == m {
				return true
			}
		}
		return false
	})

	// MSISDN validation: local (0XXXXXXXXX) or international (233XXXXXXXXX) format
	validate.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		if len(phone) != 10 && len(phone) != 12 {
			return false
		}
		for _, c := range phone {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "commission_model":
			errors[field] = "Invalid commission model. Must be: DISCOUNT, MARKUP, or FLAT"
		case "msisdn":
			errors[field] = "Invalid phone number format"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
