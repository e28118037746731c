package models

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
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the persistence invariants of the location. It returns a
// *Failure with reason ValidationError listing every violated field.
func (l *Location) Validate() error {
	return validationFailure(validate.Struct(l), "location is invalid")
}

// Validate reports blank fields of the address. Call it on the normalized
// form so whitespace-only input is rejected too.
func (a Address) Validate() error {
	return validationFailure(validate.Struct(a), "address is invalid")
}

func validationFailure(err error, fallback string) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewFailure(ReasonValidation, fallback, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	f := NewFailure(ReasonValidation, strings.Join(fields, ", "), err)
	f.Fields = fields
	return f
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s can't be blank", fe.Field())
	case "len":
		return fmt.Sprintf("%s is the wrong length (should be %s characters)", fe.Field(), fe.Param())
	case "alpha", "uppercase":
		return fmt.Sprintf("%s must be uppercase letters", fe.Field())
	case "number":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	case "latitude", "longitude":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
