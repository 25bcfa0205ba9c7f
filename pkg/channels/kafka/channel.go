// Package kafka creates Kafka backed publishers and subscribers.
package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/pcp/pkg/events"
)

// KeyMetadata is the message metadata field used as the Kafka partition key.
const KeyMetadata = events.EventMetadataKey

// Config selects the brokers and the consumer group. Instances that must each see
// every event need distinct groups.
type Config struct {
	Brokers []string
	Group   string
	// OTEL propagates trace context through message headers.
	OTEL bool
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 || c.Brokers[0] == "" {
		return errors.New("no Kafka brokers configured")
	}

	if c.Group == "" {
		return errors.New("no Kafka consumer group configured")
	}

	return nil
}

// CreateChannel connects a publisher and a subscriber. The subscriber starts from the
// oldest offset the group has not committed, so a new group replays retained events.
func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subscriberConfig,
			ConsumerGroup:         cfg.Group,
			OTELEnabled:           cfg.OTEL,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	publisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	publisherConfig.Producer.RequiredAcks = sarama.WaitForAll

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.NewWithPartitioningMarshaler(partitionKey),
			OverwriteSaramaConfig: publisherConfig,
			OTELEnabled:           cfg.OTEL,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}

// partitionKey routes on the bus key, falling back to the message id.
func partitionKey(_ string, msg *message.Message) (string, error) {
	if key := msg.Metadata.Get(KeyMetadata); key != "" {
		return key, nil
	}

	return msg.UUID, nil
}
