package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "prompt", "greet")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown prompt=greet")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer

	fallback := slog.Default()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	logger := New(&buf, "info").With("workflow_id", "wf1")
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx, fallback).Info("step finished")
	assert.Contains(t, buf.String(), "workflow_id=wf1")
}
