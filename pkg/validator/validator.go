// Package validator wraps go-playground/validator so every layer reports
// invalid input as the same AppError.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

// FieldError names one rejected field by its json name.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Validator is safe for concurrent use.
type Validator struct {
	v *playground.Validate
}

func New() *Validator {
	v := playground.New()
	v.RegisterTagNameFunc(jsonName)
	return &Validator{v: v}
}

// Engine exposes the underlying validator, e.g. to share tag name rules
// with gin's binding.
func (v *Validator) Engine() *playground.Validate {
	return v.v
}

// Struct validates s and returns a Validation AppError listing every failed
// field.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	fields := Fields(err)
	if len(fields) == 0 {
		return apperrors.Validation("invalid input", err)
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return apperrors.Validation(strings.Join(msgs, "; "), err)
}

// Fields extracts per-field failures from a validator error. It returns nil
// for any other error.
func Fields(err error) []FieldError {
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Tag: e.Tag(), Message: message(e)})
	}
	return out
}

func message(e playground.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", e.Field())
	}
	return fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag())
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
