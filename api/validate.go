package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	ret := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON name
	ret.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return ret
}

// ValidationError lists invalid fields of a request, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// Validate checks request against its validate tags.
func Validate(request interface{}) error {
	err := validate.Struct(request)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	ret := &ValidationError{Fields: map[string]string{}}
	for _, fieldErr := range fieldErrors {
		ret.Fields[fieldErr.Field()] = describe(fieldErr)
	}
	return ret
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %v characters", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %v characters", fieldErr.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fieldErr.Param(), " ", ", ")
	}
	return "is invalid (" + fieldErr.Tag() + ")"
}
