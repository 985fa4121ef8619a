// Package domain defines core types, interfaces, and errors for the
// SynthLab workspace backend.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource or a stale
// pipeline version token).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// DependencyConflictError is returned when a non-cascading step delete would
// strand downstream steps. It carries the server-computed impact so the
// caller can offer a cascade retry.
type DependencyConflictError struct {
	Message         string
	AffectedStepIDs []string
	AffectedColumns []string
}

func (e *DependencyConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrDependencyConflict creates a DependencyConflictError.
func ErrDependencyConflict(message string, stepIDs, columns []string) *DependencyConflictError {
	return &DependencyConflictError{Message: message, AffectedStepIDs: stepIDs, AffectedColumns: columns}
}
