package limiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/engine/limiter"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const bound = 3
	const workers = 20

	l := limiter.New(bound)

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup

	for range workers {
		wg.Go(func() {
			err := l.Do(context.Background(), func() error {
				current := inFlight.Add(1)
				for {
					highest := peak.Load()
					if current <= highest || peak.CompareAndSwap(highest, current) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(bound))
	assert.Positive(t, peak.Load())
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	l := limiter.New(1)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_MinimumBound(t *testing.T) {
	t.Parallel()

	l := limiter.New(0)
	assert.Equal(t, 1, l.Max())
}
