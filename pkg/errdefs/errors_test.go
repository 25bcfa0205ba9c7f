package errdefs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{err: NotFound("prompt", "greet"), kind: "not_found"},
		{err: fmt.Errorf("wrapped: %w", Invalid("input", "word", "required")), kind: "validation_error"},
		{err: ErrCycleDetected, kind: "cycle_detected"},
		{err: ErrInvalidWorkflow, kind: "invalid_workflow"},
		{err: ErrScope, kind: "scope_error"},
		{err: ErrConflict, kind: "conflict"},
		{err: ErrCancelled, kind: "cancelled"},
		{err: errors.New("disk full"), kind: "internal_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err), tt.err.Error())
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFound("version", "2.0.0")
	assert.Equal(t, `version "2.0.0" not found`, err.Error())

	err.Reason = "prompt is deprecated"
	assert.Equal(t, `version "2.0.0" not found: prompt is deprecated`, err.Error())
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsValidation(err))
}

func TestCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.False(t, IsCancelled(context.Canceled))
}
