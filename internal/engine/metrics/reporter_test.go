package metrics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/engine/metrics"
)

func TestReporter_Snapshot(t *testing.T) {
	t.Parallel()

	r := metrics.NewReporter("analysis")
	r.RecordHit(10 * time.Millisecond)
	r.RecordHit(20 * time.Millisecond)
	r.RecordFresh(100 * time.Millisecond)
	r.RecordError()

	snap := r.Snapshot()
	assert.Equal(t, int64(4), snap.Total)
	assert.Equal(t, int64(2), snap.Hits)
	assert.Equal(t, int64(1), snap.Fresh)
	assert.Equal(t, int64(1), snap.Errors)
	assert.InDelta(t, 0.5, snap.HitRatio, 0.001)
	assert.Equal(t, 15*time.Millisecond, snap.AvgHitTime)
	assert.Equal(t, 100*time.Millisecond, snap.AvgFreshTime)
	assert.Equal(t, domain.HealthHealthy, snap.Health)
}

func TestReporter_HealthWarnsOnErrorRate(t *testing.T) {
	t.Parallel()

	r := metrics.NewReporter("query")
	r.RecordFresh(time.Millisecond)
	r.RecordError()

	assert.Equal(t, domain.HealthWarning, r.Snapshot().Health)
}

func TestReporter_HealthWarnsOnLowHitRatio(t *testing.T) {
	t.Parallel()

	r := metrics.NewReporter("query")
	for range 12 {
		r.RecordFresh(time.Millisecond)
	}

	assert.Equal(t, domain.HealthWarning, r.Snapshot().Health)
}

func TestReporter_HealthHealthyBelowSampleFloor(t *testing.T) {
	t.Parallel()

	// Too few samples for the hit-ratio threshold to apply.
	r := metrics.NewReporter("query")
	r.RecordFresh(time.Millisecond)

	assert.Equal(t, domain.HealthHealthy, r.Snapshot().Health)
}

// collectSink records published events for assertions.
type collectSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *collectSink) Publish(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *collectSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestReporter_EmitPeriodically(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	sink := &collectSink{}
	r := metrics.NewReporter("analysis")
	r.RecordHit(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.EmitPeriodically(ctx, clock, time.Minute, sink)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return sink.len() >= 1
	}, time.Second, time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	event, ok := sink.events[0].(domain.MetricsUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "analysis", event.Cache)
	assert.Equal(t, int64(1), event.Snapshot.Hits)
}
