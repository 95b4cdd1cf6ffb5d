// Package inputval validates request structs with go-playground/validator
// and turns failures into validation-category errors with a readable message.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json names, not Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// objectid: a non-zero primitive.ObjectID.
	_ = validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(primitive.ObjectID)
		return ok && !id.IsZero()
	})
}

// Check validates v and returns an apperr validation error naming the first
// offending field, or nil.
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return apperr.Wrap(apperr.KindValidation, "Invalid input", err)
	}
	return apperr.Wrap(apperr.KindValidation, describe(ve[0]), err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "objectid":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
