package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is a locally detected fault. It is raised before any
// gateway call is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Description is what an Error state shows for this fault.
func (e *ValidationError) Description() string {
	return e.Error()
}

// Validate checks v against its validate tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = describeField(e)
	}
	return &ValidationError{Fields: fields}
}

func describeField(e validator.FieldError) string {
	switch e.Tag() {
	case "eqfield":
		if e.Field() == "Confirm" {
			return "passwords do not match"
		}
		return fmt.Sprintf("Field '%s' must equal '%s'", e.Field(), e.Param())
	case "required":
		return fmt.Sprintf("Field '%s' is required", e.Field())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}
