package ports

import "go.trai.ch/memo/internal/core/domain"

// EventSink receives engine events. Publish must never block the caller;
// sinks that fan out to slow consumers buffer or drop internally.
type EventSink interface {
	Publish(event domain.Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements EventSink.
func (NopSink) Publish(domain.Event) {}
