package models

import (
	"errors"
	"strings"
)

// FieldError is a single validation failure on one attribute
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field-level failures returned by Validate and store saves
type ValidationErrors []FieldError

func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no errors were collected so callers can `return errs.OrNil()`
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+" "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// IsValidation reports whether err carries field-level validation errors
func IsValidation(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
