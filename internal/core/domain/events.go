package domain

// EventKind identifies the type of an emitted engine event.
type EventKind string

const (
	// EventCacheHit is emitted when a probe finds a valid entry.
	EventCacheHit EventKind = "cache_hit"
	// EventCacheMiss is emitted when a probe finds no valid entry.
	EventCacheMiss EventKind = "cache_miss"
	// EventFileTracked is emitted when a file is analyzed and registered.
	EventFileTracked EventKind = "file_tracked"
	// EventFileInvalidated is emitted when a file's entries are removed.
	EventFileInvalidated EventKind = "file_invalidated"
	// EventDependencyInvalidated is emitted for each dependent removed by a cascade.
	EventDependencyInvalidated EventKind = "dependency_invalidated"
	// EventPatternInvalidated is emitted when a key pattern or table scope is cleared.
	EventPatternInvalidated EventKind = "pattern_invalidated"
	// EventSimilarQuery is emitted when a normalized pattern was seen before.
	EventSimilarQuery EventKind = "similar_query"
	// EventMetricsUpdated is emitted periodically with a metrics snapshot.
	EventMetricsUpdated EventKind = "metrics_updated"
	// EventShutdown is emitted once when the engine shuts down.
	EventShutdown EventKind = "shutdown"
)

// Event is an observability notification emitted by the engine. Consumers
// subscribe through ports.EventSink; emission is decoupled from logging.
type Event interface {
	Kind() EventKind
}

// CacheHitEvent reports a served cache hit.
type CacheHitEvent struct {
	Cache   string
	Key     string
	Subject string
}

// Kind implements Event.
func (CacheHitEvent) Kind() EventKind { return EventCacheHit }

// CacheMissEvent reports a miss that triggered fresh computation.
type CacheMissEvent struct {
	Cache   string
	Key     string
	Subject string
}

// Kind implements Event.
func (CacheMissEvent) Kind() EventKind { return EventCacheMiss }

// FileTrackedEvent reports a newly analyzed and registered file.
type FileTrackedEvent struct {
	Path      string
	Operation string
}

// Kind implements Event.
func (FileTrackedEvent) Kind() EventKind { return EventFileTracked }

// FileInvalidatedEvent reports removal of a file's cached entries.
type FileInvalidatedEvent struct {
	Path string
	// Cascaded is the number of transitive dependents also invalidated.
	Cascaded int
}

// Kind implements Event.
func (FileInvalidatedEvent) Kind() EventKind { return EventFileInvalidated }

// DependencyInvalidatedEvent reports a dependent invalidated by a cascade.
type DependencyInvalidatedEvent struct {
	Subject   string
	Dependent string
}

// Kind implements Event.
func (DependencyInvalidatedEvent) Kind() EventKind { return EventDependencyInvalidated }

// PatternInvalidatedEvent reports a table- or pattern-scoped invalidation.
type PatternInvalidatedEvent struct {
	Pattern string
	Removed int
}

// Kind implements Event.
func (PatternInvalidatedEvent) Kind() EventKind { return EventPatternInvalidated }

// SimilarQueryEvent is a best-effort hint that a structurally identical
// query pattern has been seen before. Never required for correctness.
type SimilarQueryEvent struct {
	Pattern string
	Seen    int64
}

// Kind implements Event.
func (SimilarQueryEvent) Kind() EventKind { return EventSimilarQuery }

// MetricsUpdatedEvent carries a periodic metrics snapshot.
type MetricsUpdatedEvent struct {
	Cache    string
	Snapshot MetricsSnapshot
}

// Kind implements Event.
func (MetricsUpdatedEvent) Kind() EventKind { return EventMetricsUpdated }

// ShutdownEvent signals engine shutdown.
type ShutdownEvent struct{}

// Kind implements Event.
func (ShutdownEvent) Kind() EventKind { return EventShutdown }
