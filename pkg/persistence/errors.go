// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate indicates a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")

	// ErrRecordNotFound indicates a write targeted a record that does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

// RepositoryError wraps storage errors with the operation and record involved.
type RepositoryError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // Record kind, e.g. "team" or "prompt_version"
	ID     string
	Err    error
}

func (e *RepositoryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s failed: %v", e.Op, e.Entity, e.Err)
	}

	return fmt.Sprintf("%s %s %s failed: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for repository errors.
func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a new repository error with context.
func NewRepositoryError(op, entity, id string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsDuplicate checks if an error indicates a unique key violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsRecordNotFound checks if an error indicates a write against a missing record.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
