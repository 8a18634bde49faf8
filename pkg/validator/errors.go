package validator

import (
	"strings"
)

// ValidationErrors is the set of fields that failed validation.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string `json:"field"`           // JSON field name
	Tag     string `json:"tag"`             // rule that failed
	Value   any    `json:"value,omitempty"` // rejected value
	Param   string `json:"param,omitempty"` // rule parameter
	Message string `json:"message"`         // translated message
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("validation failed: ")

	for i, fe := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Message)
	}

	return sb.String()
}

// First returns the first error message, or empty string if no errors.
func (v *ValidationErrors) First() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}
	return v.Errors[0].Message
}

// Fields returns the names of the failed fields in order.
func (v *ValidationErrors) Fields() []string {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}

	fields := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		fields[i] = fe.Field
	}
	return fields
}

// NewValidationError creates a ValidationErrors holding a single error.
func NewValidationError(field, tag, message string) *ValidationErrors {
	return &ValidationErrors{
		Errors: []FieldError{
			{
				Field:   field,
				Tag:     tag,
				Message: message,
			},
		},
	}
}
