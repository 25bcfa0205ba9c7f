// Package eventbus carries control plane events between instances: usage records for
// the collector and scope invalidations for peer caches.
package eventbus

import (
	"context"

	"github.com/dukex/pcp/pkg/events"
)

// Event is anything the events package knows how to decode.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is what services and the usage recorder depend on.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber is what the collector and cache broadcaster register against.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.ScopeInvalidated.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
