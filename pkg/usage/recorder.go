package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/events"
	"github.com/dukex/pcp/pkg/models"
	"github.com/google/uuid"
)

// EventRecorder publishes usage records on the event bus from a background goroutine,
// retrying with exponential backoff. Record never blocks the caller.
type EventRecorder struct {
	bus     eventbus.EventBus
	metrics *Metrics
	source  string
	logger  *slog.Logger

	newBackOff func() backoff.BackOff
	wg         sync.WaitGroup
}

func NewEventRecorder(bus eventbus.EventBus, metrics *Metrics, source string, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{
		bus:     bus,
		metrics: metrics,
		source:  source,
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 100 * time.Millisecond
			bo.MaxElapsedTime = 30 * time.Second

			return backoff.WithMaxRetries(bo, 5)
		},
	}
}

func (r *EventRecorder) Record(ctx context.Context, record *models.UsageRecord) {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			r.logger.WarnContext(ctx, "failed to generate usage id", "error", err)

			return
		}

		record.ID = id.String()
	}

	if r.metrics != nil {
		r.metrics.ObserveExpansion(record)
	}

	event := events.ExpansionRecorded{
		BaseEvent: events.NewBase(r.bus.GenerateID(), events.ExpansionRecordedEvent, r.source),
		Record:    *record,
	}

	// The publish outlives the request that triggered it.
	publishCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		err := backoff.Retry(func() error {
			return r.bus.Publish(publishCtx, record.PromptName, event)
		}, backoff.WithContext(r.newBackOff(), publishCtx))
		if err != nil {
			r.logger.WarnContext(publishCtx, "dropping usage record", "prompt", record.PromptName, "error", err)
		}
	}()
}

// Wait blocks until every pending publish has finished.
func (r *EventRecorder) Wait() {
	r.wg.Wait()
}
