package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// validateStruct returns the first failed rule as a client facing message.
func validateStruct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}

	fe := verrs[0]

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("'%s' is required", fe.Field())
	case "nefield":
		return fmt.Errorf("'%s' must differ from '%s'", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Errorf("'%s' must be one of [%s]", fe.Field(), fe.Param())
	case "gte":
		return fmt.Errorf("'%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("'%s' must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("'%s' failed '%s' check", fe.Field(), fe.Tag())
	}
}
