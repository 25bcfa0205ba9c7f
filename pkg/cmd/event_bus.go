package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/pcp/pkg/channels/gochannel"
	"github.com/dukex/pcp/pkg/channels/kafka"
	"github.com/dukex/pcp/pkg/eventbus"
)

// NewEventBus creates the event bus for provider. kafka needs brokers; group names the
// consumer group and should be unique per instance so every instance sees invalidations.
func NewEventBus(provider string, brokers []string, group string, otel bool, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		ch := gochannel.New(adapter, gochannel.DefaultBuffer)

		return eventbus.NewWatermillEventBus(ch, ch, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, kafka.Config{Brokers: brokers, Group: group, OTEL: otel})
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
