package query_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/adapters/store"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/memo/internal/engine/keys"
	"go.trai.ch/memo/internal/engine/query"
	"go.uber.org/mock/gomock"
)

// countingExecutor counts invocations and echoes the query text back as the
// payload.
type countingExecutor struct {
	calls atomic.Int64
}

func (e *countingExecutor) execute(_ context.Context, text string, _, _ map[string]any) (*domain.QueryResult, error) {
	e.calls.Add(1)
	payload, _ := json.Marshal(map[string]string{"query": text})
	return &domain.QueryResult{Payload: payload}, nil
}

// collectSink records published events for assertions.
type collectSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *collectSink) Publish(event domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *collectSink) ofKind(kind domain.EventKind) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	cache    *query.Cache
	store    *store.Memory
	executor *countingExecutor
	sink     *collectSink
	clock    clockwork.FakeClock
}

func newFixture(t *testing.T, mutate func(*domain.Config)) *fixture {
	t.Helper()

	cfg := domain.DefaultConfig()
	cfg.Expiration.Strategy = domain.ExpireFixed
	cfg.Caching.TTL = 10 * time.Minute
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	clock := clockwork.NewFakeClock()
	executor := &countingExecutor{}
	sink := &collectSink{}
	mem := store.NewMemoryWithClock(clock)

	cache, err := query.New(cfg, query.Deps{
		Store:    mem,
		Keys:     keys.NewBuilder(cfg.Caching.KeyPrefix),
		Executor: executor.execute,
		Logger:   logger.NewWithWriter(os.Stderr, slog.LevelWarn),
		Events:   sink,
		Clock:    clock,
	})
	require.NoError(t, err)

	return &fixture{cache: cache, store: mem, executor: executor, sink: sink, clock: clock}
}

func TestExecuteCachesRepeatedQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first, err := f.cache.Execute(t.Context(), "SELECT * FROM users WHERE active = true", nil, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, first.Cacheable)

	second, err := f.cache.Execute(t.Context(), "SELECT * FROM users WHERE active = true", nil, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
	assert.Equal(t, int64(1), f.executor.calls.Load())
}

func TestExecuteNormalizationUnifiesWhitespaceAndCase(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first, err := f.cache.Execute(t.Context(), "SELECT name FROM users WHERE id = 7", nil, nil)
	require.NoError(t, err)

	second, err := f.cache.Execute(t.Context(), "select   name\n  from users\twhere id = 7", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
	assert.True(t, second.Cached)
	assert.Equal(t, int64(1), f.executor.calls.Load())
}

func TestExecuteInlinedLiteralsStayDistinct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first, err := f.cache.Execute(t.Context(), "select name from users where id = 7", nil, nil)
	require.NoError(t, err)
	second, err := f.cache.Execute(t.Context(), "select name from users where id = 8", nil, nil)
	require.NoError(t, err)

	// Same normalized pattern, different keys: the literal is part of the
	// key identity.
	assert.Equal(t, first.Pattern, second.Pattern)
	assert.NotEqual(t, first.Key, second.Key)
	assert.False(t, second.Cached)
	assert.Equal(t, int64(2), f.executor.calls.Load())
}

func TestExecuteParameterizationDisabledKeepsLiterals(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *domain.Config) {
		c.Optimization.ParameterizeQueries = false
	})

	first, err := f.cache.Execute(t.Context(), "SELECT name   FROM users WHERE id = 7", nil, nil)
	require.NoError(t, err)
	second, err := f.cache.Execute(t.Context(), "select name from users where id = 8", nil, nil)
	require.NoError(t, err)

	// Case and whitespace still fold, but the literal stays in the
	// pattern, so the two queries do not share one.
	assert.Equal(t, "select name from users where id = 7", first.Pattern)
	assert.NotEqual(t, first.Pattern, second.Pattern)
	assert.NotEqual(t, first.Key, second.Key)

	// Folding alone still unifies formatting variants of the same query.
	repeat, err := f.cache.Execute(t.Context(), "select name from users\nwhere id = 7", nil, nil)
	require.NoError(t, err)
	assert.True(t, repeat.Cached)
	assert.Equal(t, int64(2), f.executor.calls.Load())
}

func TestExecuteParametersKeyedSeparately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(), "select name from users where id = ?", map[string]any{"1": 7}, nil)
	require.NoError(t, err)
	second, err := f.cache.Execute(t.Context(), "select name from users where id = ?", map[string]any{"1": 8}, nil)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, int64(2), f.executor.calls.Load())
}

func TestExecuteMutatingStatementBypassesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	for range 2 {
		res, err := f.cache.Execute(t.Context(), "UPDATE users SET name = 'x' WHERE id = 1", nil, nil)
		require.NoError(t, err)
		assert.False(t, res.Cacheable)
		assert.False(t, res.Cached)
		assert.Empty(t, res.Key)
	}

	assert.Equal(t, int64(2), f.executor.calls.Load(), "mutating statements always execute")
	assert.Zero(t, f.store.Len(), "mutating statements are never stored")
}

func TestExecuteVolatileFunctionBypassesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	res, err := f.cache.Execute(t.Context(), "select * from events where ts > now()", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Cacheable)
	assert.Zero(t, f.store.Len())
}

func TestExecuteEmptyQueryRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.cache.Execute(t.Context(), "   ", nil, nil)
	require.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Zero(t, f.executor.calls.Load())
}

func TestExecutorErrorPropagatesUncached(t *testing.T) {
	t.Parallel()

	boom := fmt.Errorf("executor exploded")
	var calls atomic.Int64
	failing := func(context.Context, string, map[string]any, map[string]any) (*domain.QueryResult, error) {
		calls.Add(1)
		return nil, boom
	}

	cfg := domain.DefaultConfig()
	cache, err := query.New(cfg, query.Deps{
		Store:    store.NewMemory(),
		Keys:     keys.NewBuilder(cfg.Caching.KeyPrefix),
		Executor: failing,
		Logger:   logger.NewWithWriter(os.Stderr, slog.LevelWarn),
	})
	require.NoError(t, err)

	_, err = cache.Execute(t.Context(), "select 1", nil, nil)
	require.ErrorIs(t, err, boom)
	_, err = cache.Execute(t.Context(), "select 1", nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), calls.Load(), "failures are never cached")
}

func TestExecuteFailOpenOnStoreErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	broken := mocks.NewMockStore(ctrl)
	broken.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("connection refused")).AnyTimes()
	broken.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection refused")).AnyTimes()

	cfg := domain.DefaultConfig()
	executor := &countingExecutor{}
	cache, err := query.New(cfg, query.Deps{
		Store:    broken,
		Keys:     keys.NewBuilder(cfg.Caching.KeyPrefix),
		Executor: executor.execute,
		Logger:   logger.NewWithWriter(os.Stderr, slog.LevelWarn),
	})
	require.NoError(t, err)

	res, err := cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err, "store failures must not fail the query")
	assert.False(t, res.Cached)
	assert.Equal(t, int64(1), executor.calls.Load())
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *domain.Config) {
		cfg.Expiration.AccessBasedExtension = false
	})

	_, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)

	res, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Cached, "entry must expire after its TTL")
	assert.Equal(t, int64(2), f.executor.calls.Load())
}

func TestHotEntryTTLExtended(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *domain.Config) {
		cfg.Expiration.AccessBasedExtension = true
		cfg.Expiration.ExtensionFactor = 2
	})

	_, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)

	// Two hits push the access count over the extension threshold, the
	// second rewrite extends the 10m TTL to 20m.
	for range 2 {
		res, hitErr := f.cache.Execute(t.Context(), "select * from users", nil, nil)
		require.NoError(t, hitErr)
		require.True(t, res.Cached)
	}

	f.clock.Advance(15 * time.Minute)

	res, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Cached, "hot entry must outlive its original TTL")
	assert.Equal(t, int64(1), f.executor.calls.Load())
}

func TestInvalidateByTableScopesExactly(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	_, err = f.cache.Execute(t.Context(), "select * from orders", nil, nil)
	require.NoError(t, err)

	removed, err := f.cache.InvalidateByTable(t.Context(), "users")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	users, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	assert.False(t, users.Cached, "users entry was invalidated")

	orders, err := f.cache.Execute(t.Context(), "select * from orders", nil, nil)
	require.NoError(t, err)
	assert.True(t, orders.Cached, "orders entry must survive")
}

func TestInvalidateByTableCoversJoins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(),
		"select * from users u join orders o on o.user_id = u.id", nil, nil)
	require.NoError(t, err)

	removed, err := f.cache.InvalidateByTable(t.Context(), "orders")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	res, err := f.cache.Execute(t.Context(),
		"select * from users u join orders o on o.user_id = u.id", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestInvalidateByUnknownTableIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	removed, err := f.cache.InvalidateByTable(t.Context(), "ghosts")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestInvalidateAllClearsEveryEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	_, err = f.cache.Execute(t.Context(), "select * from orders", nil, nil)
	require.NoError(t, err)

	removed, err := f.cache.InvalidateAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, f.store.Len())
}

func TestSimilarQueryHintEmitted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(), "select name from users where id = 1", nil, nil)
	require.NoError(t, err)
	_, err = f.cache.Execute(t.Context(), "select name from users where id = 2", nil, nil)
	require.NoError(t, err)

	hints := f.sink.ofKind(domain.EventSimilarQuery)
	require.Len(t, hints, 1)
	hint, ok := hints[0].(domain.SimilarQueryEvent)
	require.True(t, ok)
	assert.Equal(t, int64(2), hint.Seen)
}

func TestKeyStatsTrackAccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)
	_, err = f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)

	stats, ok := f.cache.KeyStats(first.Key)
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.AccessCount)
	assert.Positive(t, stats.ResultSize)
}

func TestMaintenancePrunesStaleStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	f.cache.StartMaintenance(ctx, time.Minute, 30*time.Minute)

	// Let the maintenance goroutine reach its ticker before advancing.
	f.clock.BlockUntil(1)
	f.clock.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		_, ok := f.cache.KeyStats(first.Key)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestReportingPublishesSnapshots(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.cache.Execute(t.Context(), "select * from users", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	f.cache.StartReporting(ctx, f.clock, time.Minute)

	// Let the reporting goroutine reach its ticker before advancing.
	f.clock.BlockUntil(1)
	f.clock.Advance(time.Minute)

	assert.Eventually(t, func() bool {
		for _, ev := range f.sink.ofKind(domain.EventMetricsUpdated) {
			update, ok := ev.(domain.MetricsUpdatedEvent)
			if ok && update.Cache == "query" && update.Snapshot.Fresh == 1 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
