package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/events"
)

// Broadcast wraps a local cache and announces every invalidation on the event bus, so
// other instances drop their copies too. Events published by this instance are ignored
// on receipt.
type Broadcast struct {
	local  Cache
	bus    eventbus.EventBus
	source string
	logger *slog.Logger
}

func NewBroadcast(local Cache, bus eventbus.EventBus, source string, logger *slog.Logger) *Broadcast {
	return &Broadcast{local: local, bus: bus, source: source, logger: logger}
}

func (b *Broadcast) Get(ctx context.Context, key string, dst any) (bool, error) {
	return b.local.Get(ctx, key, dst)
}

func (b *Broadcast) Set(ctx context.Context, key string, value any, deps []string) error {
	return b.local.Set(ctx, key, value, deps)
}

func (b *Broadcast) Invalidate(ctx context.Context, scopeID string) error {
	err := b.local.Invalidate(ctx, scopeID)
	if err != nil {
		return err
	}

	event := events.ScopeInvalidated{
		BaseEvent: events.NewBase(b.bus.GenerateID(), events.ScopeInvalidatedEvent, b.source),
		ScopeID:   scopeID,
	}

	err = b.bus.Publish(ctx, scopeID, event)
	if err != nil {
		// The local entry is gone; peers keep theirs until it expires.
		b.logger.WarnContext(ctx, "failed to broadcast invalidation", "scope", scopeID, "error", err)
	}

	return nil
}

// Register installs the invalidation handler. It must be called before the bus subscribes.
func (b *Broadcast) Register(sub eventbus.EventSubscriber) error {
	return sub.Handle(events.ScopeInvalidatedEvent, func(ctx context.Context, event any) error {
		invalidated, ok := event.(*events.ScopeInvalidated)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		if invalidated.Source == b.source {
			return nil
		}

		return b.local.Invalidate(ctx, invalidated.ScopeID)
	})
}
