package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func validateStruct(v any) *ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	out := &ValidationError{Fields: map[string]string{}}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Fields["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must not be negative"
	}
	return "is invalid (" + fe.Tag() + ")"
}

func (e *ValidationError) add(field, msg string) *ValidationError {
	if e == nil {
		e = &ValidationError{Fields: map[string]string{}}
	}
	e.Fields[field] = msg
	return e
}

// asError avoids returning a typed nil inside the error interface.
func (e *ValidationError) asError() error {
	if e == nil {
		return nil
	}
	return e
}

func (c Certificate) Validate() error {
	verr := validateStruct(c)
	if err := c.CeremonyDate.Validate(); err != nil {
		verr = verr.add("CeremonyDate", err.Error())
	}
	return verr.asError()
}

func (r CommunionRecord) Validate() error {
	verr := validateStruct(r)
	if err := r.Date.Validate(); err != nil {
		verr = verr.add("Date", err.Error())
	}
	return verr.asError()
}

func (t MemberTransfer) Validate() error {
	return validateStruct(t).asError()
}

func (u StaffUser) Validate() error {
	return validateStruct(u).asError()
}
