package usage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/events"
	"github.com/dukex/pcp/pkg/persistence"
)

// Collector stores usage records received from the event bus. Saves are keyed by record
// id, so a record delivered to several instances is stored once.
type Collector struct {
	usage  persistence.UsageRepository
	logger *slog.Logger
}

func NewCollector(usage persistence.UsageRepository, logger *slog.Logger) *Collector {
	return &Collector{usage: usage, logger: logger}
}

// Register installs the collector's handler. It must be called before the bus subscribes.
func (c *Collector) Register(sub eventbus.EventSubscriber) error {
	return sub.Handle(events.ExpansionRecordedEvent, c.handle)
}

func (c *Collector) handle(ctx context.Context, event any) error {
	recorded, ok := event.(*events.ExpansionRecorded)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	record := recorded.Record

	err := c.usage.Save(ctx, &record)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to store usage record", "id", record.ID, "error", err)

		return err
	}

	return nil
}
