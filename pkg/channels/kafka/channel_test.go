package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestCreateChannel_InvalidConfig(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, Config{Group: "pcp-test"})
	require.ErrorContains(t, err, "brokers")

	_, _, err = CreateChannel(watermill.NopLogger{}, Config{Brokers: []string{""}, Group: "pcp-test"})
	require.ErrorContains(t, err, "brokers")

	_, _, err = CreateChannel(watermill.NopLogger{}, Config{Brokers: []string{"localhost:9092"}})
	assert.ErrorContains(t, err, "consumer group")
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("m1", nil)

	key, err := partitionKey("pcp.events", msg)
	require.NoError(t, err)
	assert.Equal(t, "m1", key)

	msg.Metadata.Set(KeyMetadata, "greet")

	key, err = partitionKey("pcp.events", msg)
	require.NoError(t, err)
	assert.Equal(t, "greet", key)
}

func TestCreateChannel_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}

	ctx := t.Context()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("pcp-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	pub, sub, err := CreateChannel(watermill.NopLogger{}, Config{Brokers: brokers, Group: "pcp-test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pub.Close()
		_ = sub.Close()
	})

	messages, err := sub.Subscribe(ctx, "pcp.test")
	require.NoError(t, err)

	require.NoError(t, pub.Publish("pcp.test", message.NewMessage(watermill.NewUUID(), []byte(`{"ok":true}`))))

	select {
	case msg := <-messages:
		assert.JSONEq(t, `{"ok":true}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(60 * time.Second):
		t.Fatal("message not delivered")
	}
}
