// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrIncidentNotFound   = errors.New("incident not found")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It carries one entry per invalid field.
type ValidationError struct {
	Fields []FieldError
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records an invalid field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// errOrNil returns e when it holds at least one field error.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ConflictError reports a uniqueness conflict, such as a taken email.
type ConflictError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ConflictError) Error() string {
	return e.Message
}

func emailConflict(message string) *ConflictError {
	return &ConflictError{Field: "email", Message: message}
}
