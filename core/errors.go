package core

import (
	"errors"
	"fmt"
)

// Category sentinels for errors.Is checks across the typed errors below.
// HTTP and CLI layers map these to status codes without inspecting messages.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found error")
	ErrConflict   = errors.New("conflict error")
	ErrStorage    = errors.New("storage error")
)

// ValidationError reports bad input: a required field empty or too long.
// The reason is suitable for direct display to the caller.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BuildValidationError creates a ValidationError with the given reason.
func BuildValidationError(reason string) ValidationError {
	return ValidationError{Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) match any NotFoundError.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BuildNotFoundError creates a NotFoundError for the given entity kind and id.
func BuildNotFoundError(kind, id string) NotFoundError {
	return NotFoundError{Kind: kind, ID: id}
}

// ConflictError reports an invariant violation: already borrowed, borrow
// limit reached, library has borrowed books, loan already returned.
// The reason is suitable for direct display to the caller.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// Is makes errors.Is(err, ErrConflict) match any ConflictError.
func (e ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// BuildConflictError creates a ConflictError with the given reason.
func BuildConflictError(reason string) ConflictError {
	return ConflictError{Reason: reason}
}

// StorageError wraps an underlying store failure. Transient by assumption;
// callers may retry idempotent reads but must not blindly retry writes.
type StorageError struct {
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s", e.Err)
}

// Unwrap exposes the underlying store error.
func (e StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) match any StorageError.
func (e StorageError) Is(target error) bool {
	return target == ErrStorage
}

// BuildStorageError wraps an underlying store failure.
func BuildStorageError(err error) StorageError {
	return StorageError{Err: err}
}
