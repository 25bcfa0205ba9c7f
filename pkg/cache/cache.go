// Package cache provides the optional read-through cache used by the hierarchy resolver
// and the aggregators. Every entry records the scope ids it was computed from, so a write
// to any of them can drop it through Invalidate.
package cache

import (
	"context"
	"strings"
)

type Cache interface {
	// Get decodes the entry stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores value under key, recording that it depends on every id in deps.
	Set(ctx context.Context, key string, value any, deps []string) error
	// Invalidate drops every entry that depends on scopeID.
	Invalidate(ctx context.Context, scopeID string) error
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (Noop) Set(context.Context, string, any, []string) error {
	return nil
}

func (Noop) Invalidate(context.Context, string) error {
	return nil
}
