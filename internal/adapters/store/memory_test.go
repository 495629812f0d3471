package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/store"
)

func TestMemory_SetGet(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	ctx := t.Context()

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), 0))

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got, err = m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	m := store.NewMemoryWithClock(clock)
	ctx := t.Context()

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), time.Minute))

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	clock.Advance(2 * time.Minute)

	got, err = m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, m.Len())
}

func TestMemory_ExpiryCleanupKeepsConcurrentSet(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	m := store.NewMemoryWithClock(clock)
	ctx := t.Context()

	for range 200 {
		require.NoError(t, m.Set(ctx, "k1", []byte("stale"), time.Minute))
		clock.Advance(2 * time.Minute)

		// Expired readers racing a fresh write must not delete the new
		// entry during lazy cleanup.
		var wg sync.WaitGroup
		for range 4 {
			wg.Go(func() {
				_, _ = m.Get(ctx, "k1")
			})
		}
		require.NoError(t, m.Set(ctx, "k1", []byte("fresh"), 0))
		wg.Wait()

		got, err := m.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("fresh"), got)
	}
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	ctx := t.Context()

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), 0))
	require.NoError(t, m.Set(ctx, "k2", []byte("v2"), 0))

	require.NoError(t, m.Delete(ctx, "k1", "k2", "missing"))
	assert.Zero(t, m.Len())
}

func TestMemory_ClearPattern(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	ctx := t.Context()

	require.NoError(t, m.Set(ctx, "memo:analysis:ast:aaa", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "memo:analysis:ast:bbb", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "memo:query:1:ccc", []byte("3"), 0))

	removed, err := m.Clear(ctx, "memo:analysis:*")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(ctx, "memo:query:1:ccc")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
