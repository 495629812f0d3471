// Package events provides EventSink implementations: a logging sink and a
// buffered channel sink for external consumers.
package events

import (
	"fmt"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

var (
	_ ports.EventSink = (*LogSink)(nil)
	_ ports.EventSink = (*ChannelSink)(nil)
	_ ports.EventSink = (Multi)(nil)
)

// LogSink forwards engine events to the logger at debug level.
type LogSink struct {
	logger ports.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger ports.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish implements ports.EventSink.
func (s *LogSink) Publish(event domain.Event) {
	s.logger.Debug("engine event", "kind", string(event.Kind()), "event", fmt.Sprintf("%+v", event))
}

// ChannelSink exposes events on a buffered channel. When the consumer
// falls behind the buffer, events are dropped rather than blocking the
// engine.
type ChannelSink struct {
	ch chan domain.Event
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan domain.Event, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan domain.Event {
	return s.ch
}

// Publish implements ports.EventSink.
func (s *ChannelSink) Publish(event domain.Event) {
	select {
	case s.ch <- event:
	default:
		// Consumer is behind, drop rather than block a cache operation.
	}
}

// Multi fans one event out to several sinks.
type Multi []ports.EventSink

// Publish implements ports.EventSink.
func (m Multi) Publish(event domain.Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}
