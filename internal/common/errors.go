package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
	ErrEmailTaken             = errors.New("user with this email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrTooManyAttempts        = errors.New("too many login attempts")
	ErrMailDisabled           = errors.New("email delivery is not configured")
)

// ValidationError carries field level messages keyed by JSON field path,
// e.g. "items[0].quantity".
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
