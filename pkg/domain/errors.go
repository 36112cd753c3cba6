package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConcurrencyConflict is matched by every ConcurrencyError.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError reports invalid input at construction or mutation time.
// No state is changed when it is returned.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func newValidationError(entity EntityType, field, format string, args ...any) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s %s", e.Entity, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError is returned by commands that target a missing aggregate.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

// NewNotFoundError builds a NotFoundError for a uuid keyed entity.
func NewNotFoundError(entity EntityType, id uuid.UUID) NotFoundError {
	return NotFoundError{Entity: entity, ID: id.String()}
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConcurrencyError is returned when an update presents a stale token.
type ConcurrencyError struct {
	Entity EntityType
	ID     uuid.UUID
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s %s was modified since it was read", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrConcurrencyConflict) match.
func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrencyConflict }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err carries a ConcurrencyError.
func IsConflict(err error) bool { return errors.Is(err, ErrConcurrencyConflict) }
