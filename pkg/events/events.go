// Package events defines the messages exchanged on the event bus.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/pcp/pkg/models"
)

type EventType string

// Topic carries every control plane event.
const Topic = "pcp.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExpansionRecordedEvent   EventType = "expansion.recorded"
	WorkflowRunFinishedEvent EventType = "workflow.run.finished"
	ScopeInvalidatedEvent    EventType = "scope.invalidated"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// ExpansionRecorded carries the usage record of one expansion.
type ExpansionRecorded struct {
	BaseEvent

	Record models.UsageRecord `json:"record"`
}

func (e ExpansionRecorded) GetType() EventType {
	return ExpansionRecordedEvent
}

type WorkflowRunFinished struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

func (e WorkflowRunFinished) GetType() EventType {
	return WorkflowRunFinishedEvent
}

// ScopeInvalidated tells every instance to drop cached resolutions depending on ScopeID.
// Source identifies the instance that made the write, so it can skip its own event.
type ScopeInvalidated struct {
	BaseEvent

	ScopeID string `json:"scope_id"`
}

func (e ScopeInvalidated) GetType() EventType {
	return ScopeInvalidatedEvent
}

// NewBase fills the common event fields.
func NewBase(id string, eventType EventType, source string) BaseEvent {
	return BaseEvent{ID: id, Type: eventType, Timestamp: time.Now().UTC(), Source: source}
}

var factories = map[EventType]func() any{
	ExpansionRecordedEvent:   func() any { return &ExpansionRecorded{} },
	WorkflowRunFinishedEvent: func() any { return &WorkflowRunFinished{} },
	ScopeInvalidatedEvent:    func() any { return &ScopeInvalidated{} },
}

// ErrUnknownEvent is returned by Decode for event types this build does not know.
var ErrUnknownEvent = errors.New("unknown event type")

// Decode unmarshals payload into a pointer to the concrete event of eventType.
func Decode(eventType EventType, payload []byte) (any, error) {
	factory, ok := factories[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	return event, nil
}
