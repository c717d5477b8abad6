package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct validation and turns the first failure into a
// client-facing validation error.
func validateStruct(v *validator.Validate, value any) error {
	err := v.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError("invalid input")
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return validationError(field + " is required")
	case "email":
		return validationError("please provide a valid email")
	case "min":
		return validationError(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "max":
		return validationError(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "oneof":
		return validationError(fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
	default:
		return validationError("invalid " + field)
	}
}
