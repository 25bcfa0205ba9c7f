// Package errdefs defines the error taxonomy shared by the resolution, expansion and
// workflow packages.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a missing team, prompt, version, workflow or step reference.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates caller input that does not satisfy a schema or a rule.
	ErrValidation = errors.New("validation failed")

	// ErrCycleDetected indicates a cycle in the team hierarchy or a workflow graph.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrScope indicates a cross-tenant or ownership mismatch.
	ErrScope = errors.New("scope mismatch")

	// ErrCancelled indicates the caller cancelled the operation.
	ErrCancelled = errors.New("cancelled")

	// ErrInvalidWorkflow indicates a workflow whose structure cannot be executed.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
)

// NotFoundError names the kind of record and the key that was looked up.
type NotFoundError struct {
	Kind   string // team, user, project, policy, objective, prompt, version, workflow
	Key    string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Kind, e.Key, e.Reason)
	}

	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound creates a NotFoundError.
func NotFound(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// FieldError describes one offending field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field that failed validation for a subject.
type ValidationError struct {
	Subject string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Subject + ": validation failed"
	}

	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}

	return fmt.Sprintf("%s: validation failed (%s)", e.Subject, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid creates a ValidationError with a single field.
func Invalid(subject, field, reason string) *ValidationError {
	return &ValidationError{Subject: subject, Fields: []FieldError{{Field: field, Reason: reason}}}
}

// CycleError carries the path that closes the cycle, for example ["a", "b", "a"].
type CycleError struct {
	Kind string // team or workflow
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle detected: %s", e.Kind, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// ScopeError reports an operation attempted outside the caller's scope.
type ScopeError struct {
	Op     string
	Scope  string
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: scope %s: %s", e.Op, e.Scope, e.Reason)
}

func (e *ScopeError) Is(target error) bool {
	return target == ErrScope
}

// InvalidWorkflowError reports a structural problem found before any step runs.
type InvalidWorkflowError struct {
	WorkflowID string
	Reason     string
}

func (e *InvalidWorkflowError) Error() string {
	return fmt.Sprintf("workflow %s is invalid: %s", e.WorkflowID, e.Reason)
}

func (e *InvalidWorkflowError) Is(target error) bool {
	return target == ErrInvalidWorkflow
}

// CancelledError wraps the context error that stopped an operation.
type CancelledError struct {
	Op    string
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s cancelled: %v", e.Op, e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// ConflictError reports a duplicate key or a state that forbids the operation.
type ConflictError struct {
	Kind   string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsCycleDetected(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

func IsScope(err error) bool {
	return errors.Is(err, ErrScope)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func IsInvalidWorkflow(err error) bool {
	return errors.Is(err, ErrInvalidWorkflow)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Kind returns the short token naming the category of err, as used in problem
// documents and span attributes. Uncategorized errors are "internal_error".
func Kind(err error) string {
	switch {
	case IsValidation(err):
		return "validation_error"
	case IsNotFound(err):
		return "not_found"
	case IsCycleDetected(err):
		return "cycle_detected"
	case IsInvalidWorkflow(err):
		return "invalid_workflow"
	case IsScope(err):
		return "scope_error"
	case IsConflict(err):
		return "conflict"
	case IsCancelled(err):
		return "cancelled"
	default:
		return "internal_error"
	}
}
