// Package gochannel provides the in-process event channel used by single instance
// deployments and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer is the per-subscriber output buffer used when none is given.
const DefaultBuffer = 1000

// New returns one GoChannel acting as both publisher and subscriber. Messages are not
// persisted, so events published before Subscribe are lost.
func New(logger watermill.LoggerAdapter, buffer int64) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logger)
}
