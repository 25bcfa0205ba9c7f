package cache_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/channels/gochannel"
	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast(t *testing.T) {
	exerciseCache(t, cache.NewBroadcast(cache.NewMemory(0, 0), newBus(t), "node-1", slog.Default()))
}

func TestBroadcast_InvalidatesPeers(t *testing.T) {
	ctx := t.Context()
	bus := newBus(t)

	first := cache.NewMemory(0, 0)
	second := cache.NewMemory(0, 0)

	a := cache.NewBroadcast(first, bus, "node-a", slog.Default())
	b := cache.NewBroadcast(second, bus, "node-b", slog.Default())

	// Both instances share one in-process bus here, so only b listens.
	require.NoError(t, b.Register(bus))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, b.Set(ctx, "policies:team:eng", entry{IDs: []string{"p1"}}, []string{"eng"}))
	require.NoError(t, a.Invalidate(ctx, "eng"))

	assert.Eventually(t, func() bool {
		var got entry
		found, err := second.Get(ctx, "policies:team:eng", &got)

		return err == nil && !found
	}, 2*time.Second, 10*time.Millisecond)
}

func newBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	ch := gochannel.New(watermill.NopLogger{}, 0)
	bus := eventbus.NewWatermillEventBus(ch, ch, slog.Default())
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}
