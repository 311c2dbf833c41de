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
	// Report fields by their JSON name so messages match the wire format
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the restaurant invariants: required text fields,
// a well-formed image URL, a non-empty owner list and a complete geo point.
func (r *Restaurant) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if r.Geo != nil {
		if err := r.Geo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the point is a complete GeoJSON Point
func (g *GeoPoint) Validate() error {
	if err := validate.Struct(g); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateVar runs a single validator tag against a value, e.g. "email"
func ValidateVar(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		field = "value"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s element(s)", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s element(s)", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email address"
	case "eq":
		return fmt.Sprintf("%s must be %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
