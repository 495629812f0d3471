// Package metrics implements the shared hit/miss/health accounting used by
// both caches.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

const (
	// minSamples is the number of requests required before the hit-ratio
	// threshold can downgrade health.
	minSamples = 10
	// warnHitRatio is the hit ratio below which health degrades to warning.
	warnHitRatio = 0.1
	// warnErrorRate is the error rate above which health degrades to warning.
	warnErrorRate = 0.25
)

// Reporter accumulates per-cache counters and latency averages and derives
// a health verdict from hit ratio and error rate.
type Reporter struct {
	name string

	mu         sync.Mutex
	total      int64
	hits       int64
	fresh      int64
	errors     int64
	hitTime    time.Duration
	freshTime  time.Duration
	hitCount   int64
	freshCount int64
}

// NewReporter creates a Reporter for the named cache.
func NewReporter(name string) *Reporter {
	return &Reporter{name: name}
}

// Name returns the cache name this reporter accounts for.
func (r *Reporter) Name() string { return r.name }

// RecordHit accounts a served cache hit and its lookup latency.
func (r *Reporter) RecordHit(elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.hits++
	r.hitCount++
	r.hitTime += elapsed
}

// RecordFresh accounts a fresh computation and its latency.
func (r *Reporter) RecordFresh(elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.fresh++
	r.freshCount++
	r.freshTime += elapsed
}

// RecordError accounts a failed operation.
func (r *Reporter) RecordError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.errors++
}

// Snapshot returns a point-in-time view of the counters.
func (r *Reporter) Snapshot() domain.MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := domain.MetricsSnapshot{
		Total:  r.total,
		Hits:   r.hits,
		Fresh:  r.fresh,
		Errors: r.errors,
		Health: domain.HealthHealthy,
	}
	if r.total > 0 {
		snap.HitRatio = float64(r.hits) / float64(r.total)
	}
	if r.hitCount > 0 {
		snap.AvgHitTime = r.hitTime / time.Duration(r.hitCount)
	}
	if r.freshCount > 0 {
		snap.AvgFreshTime = r.freshTime / time.Duration(r.freshCount)
	}

	if r.total > 0 && float64(r.errors)/float64(r.total) > warnErrorRate {
		snap.Health = domain.HealthWarning
	}
	if r.total >= minSamples && snap.HitRatio < warnHitRatio {
		snap.Health = domain.HealthWarning
	}
	return snap
}

// EmitPeriodically publishes a MetricsUpdated event every interval until
// ctx is done. It runs on its own timer and never blocks cache operations.
func (r *Reporter) EmitPeriodically(
	ctx context.Context,
	clock clockwork.Clock,
	interval time.Duration,
	sink ports.EventSink,
) {
	ticker := clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				sink.Publish(domain.MetricsUpdatedEvent{
					Cache:    r.name,
					Snapshot: r.Snapshot(),
				})
			}
		}
	}()
}
