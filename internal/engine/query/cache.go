// Package query orchestrates query-result caching: normalization-based key
// derivation, TTL policy, table-level invalidation and access statistics.
package query

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/compress"
	"go.trai.ch/memo/internal/engine/keys"
	"go.trai.ch/memo/internal/engine/limiter"
	"go.trai.ch/memo/internal/engine/metrics"
)

const (
	// cacheName identifies this cache in metrics and events.
	cacheName = "query"

	// entryVersion tags query entries; bump to orphan every existing entry
	// after an incompatible format change.
	entryVersion = "1"

	// extensionThreshold is the access count from which a hit extends the
	// entry's TTL.
	extensionThreshold = 3

	// maxPatterns bounds the similar-pattern map. The map resets when full,
	// similarity hints are best-effort.
	maxPatterns = 4096
)

// Result is the outcome of an Execute call.
type Result struct {
	// Payload is the executor output.
	Payload json.RawMessage
	// Key is the cache key, empty for non-cacheable statements.
	Key string
	// Pattern is the normalized query pattern, empty for non-cacheable
	// statements.
	Pattern string
	// Cached reports whether the result was served from the store.
	Cached bool
	// Cacheable reports whether the statement shape is cacheable at all.
	Cacheable bool
}

// Deps are the collaborators of the query cache.
type Deps struct {
	Store    ports.Store
	Keys     *keys.Builder
	Executor ports.QueryExecutor
	Limiter  *limiter.Limiter
	Reporter *metrics.Reporter
	Logger   ports.Logger
	Events   ports.EventSink
	Tracer   ports.Tracer
	Clock    clockwork.Clock
}

// Cache memoizes query results in the external store, keyed by normalized
// query text, extracted literals and bound parameters. Mutating and
// non-deterministic statements bypass the cache entirely.
type Cache struct {
	cfg   domain.Config
	deps  Deps
	stats *statsTracker
	index *tableIndex

	patternMu sync.Mutex
	patterns  map[string]int64
}

// New creates a query cache. The executor is required; events, tracer,
// reporter and clock default to no-ops and the real clock.
func New(cfg domain.Config, deps Deps) (*Cache, error) {
	if deps.Executor == nil {
		return nil, domain.ErrNilExecutor
	}
	if deps.Events == nil {
		deps.Events = ports.NopSink{}
	}
	if deps.Tracer == nil {
		deps.Tracer = ports.NopTracer{}
	}
	if deps.Reporter == nil {
		deps.Reporter = metrics.NewReporter(cacheName)
	}
	if deps.Limiter == nil {
		deps.Limiter = limiter.New(cfg.Performance.MaxParallelFiles)
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Cache{
		cfg:      cfg,
		deps:     deps,
		stats:    newStatsTracker(deps.Clock),
		index:    newTableIndex(),
		patterns: make(map[string]int64),
	}, nil
}

// Execute returns the result for the query, serving from the store when a
// previous execution of an equivalent query is still valid. Non-cacheable
// statements fall through to direct execution. Executor errors propagate
// as-is and are never retried.
func (c *Cache) Execute(ctx context.Context, text string, params, options map[string]any) (*Result, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "query.execute")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		span.RecordError(domain.ErrEmptyQuery)
		return nil, domain.ErrEmptyQuery
	}

	lowered := strings.ToLower(strings.TrimSpace(text))

	if !c.cfg.Caching.Enabled || !cacheable(lowered) {
		span.SetAttribute("cacheable", false)
		payload, err := c.run(ctx, text, params, options)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return &Result{Payload: payload, Cacheable: false}, nil
	}

	normalized := c.normalize(text, lowered)
	c.noteSimilar(normalized.Pattern)

	key := c.deps.Keys.QueryKey(normalized, params, entryVersion)
	span.SetAttribute("key", key)

	if hit := c.probe(ctx, key, normalized.Pattern, lowered); hit != nil {
		return hit, nil
	}
	c.deps.Events.Publish(domain.CacheMissEvent{Cache: cacheName, Key: key, Subject: normalized.Pattern})

	return c.executeAndStore(ctx, text, lowered, normalized.Pattern, key, params, options)
}

// run invokes the executor while holding a concurrency slot.
func (c *Cache) run(ctx context.Context, text string, params, options map[string]any) (json.RawMessage, error) {
	var payload json.RawMessage
	err := c.deps.Limiter.Do(ctx, func() error {
		res, execErr := c.deps.Executor(ctx, text, params, options)
		if execErr != nil {
			return execErr
		}
		payload = res.Payload
		return nil
	})
	if err != nil {
		c.deps.Reporter.RecordError()
		return nil, err
	}
	return payload, nil
}

// normalize canonicalizes the query text per configuration. With
// normalization disabled the lower-cased text itself is the pattern and no
// literals are extracted; with parameterization disabled inlined literals
// stay in the pattern, so each literal combination keys its own entry.
func (c *Cache) normalize(text, lowered string) keys.Normalized {
	if !c.cfg.Optimization.NormalizeQueries {
		return keys.Normalized{Pattern: lowered}
	}
	if !c.cfg.Optimization.ParameterizeQueries {
		return keys.Normalized{Pattern: keys.Fold(text)}
	}
	return keys.Normalize(text)
}

// noteSimilar counts pattern sightings and emits a best-effort hint event
// when a structurally identical query was seen before.
func (c *Cache) noteSimilar(pattern string) {
	if !c.cfg.Optimization.DetectSimilarQueries {
		return
	}

	c.patternMu.Lock()
	if len(c.patterns) >= maxPatterns {
		c.patterns = make(map[string]int64)
	}
	c.patterns[pattern]++
	seen := c.patterns[pattern]
	c.patternMu.Unlock()

	if seen > 1 {
		c.deps.Events.Publish(domain.SimilarQueryEvent{Pattern: pattern, Seen: seen})
	}
}

// probe looks the key up in the store, bumps access statistics on a hit and
// extends hot entries' TTL. Store errors and undecodable entries degrade to
// a miss.
func (c *Cache) probe(ctx context.Context, key, pattern, lowered string) *Result {
	start := time.Now()

	data, err := c.deps.Store.Get(ctx, key)
	if err != nil {
		c.deps.Logger.Warn("store read failed, treating as miss", "key", key, "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.deps.Logger.Warn("undecodable cache entry, treating as miss", "key", key, "error", err)
		return nil
	}
	if entry.Result == nil {
		return nil
	}

	payload := entry.Result
	if entry.Metadata.Compressed {
		payload, err = compress.Decompress(payload)
		if err != nil {
			c.deps.Logger.Warn("corrupt compressed entry, treating as miss", "key", key, "error", err)
			return nil
		}
	}

	stats := c.stats.accessed(key, entry.Metadata.SizeBytes)
	c.maybeExtend(ctx, key, data, lowered, entry, stats)

	c.deps.Reporter.RecordHit(time.Since(start))
	c.deps.Events.Publish(domain.CacheHitEvent{Cache: cacheName, Key: key, Subject: pattern})

	return &Result{
		Payload:   json.RawMessage(payload),
		Key:       key,
		Pattern:   pattern,
		Cached:    true,
		Cacheable: true,
	}
}

// maybeExtend rewrites a frequently accessed entry with a longer TTL so hot
// results outlive their original lifetime, clamped to the configured
// maximum. Best-effort, a failed rewrite leaves the original expiry.
func (c *Cache) maybeExtend(ctx context.Context, key string, data []byte, lowered string, entry domain.CacheEntry, stats domain.QueryStats) {
	if !c.cfg.Expiration.AccessBasedExtension || stats.AccessCount < extensionThreshold {
		return
	}

	base := ttlFor(c.cfg.Expiration, c.cfg.Caching.TTL, lowered, entry.Metadata.SizeBytes, len(entry.Metadata.Dependencies))
	extended := extendTTL(c.cfg.Expiration, base)

	if err := c.deps.Store.Set(ctx, key, data, extended); err != nil {
		c.deps.Logger.Warn("ttl extension failed", "key", key, "error", err)
	}
}

// executeAndStore runs the executor and writes the result back with table
// dependencies and a strategy-derived TTL. Store failures are fail-open,
// the fresh result is always returned.
func (c *Cache) executeAndStore(ctx context.Context, text, lowered, pattern, key string, params, options map[string]any) (*Result, error) {
	start := time.Now()
	payload, err := c.run(ctx, text, params, options)
	if err != nil {
		return nil, err
	}
	c.deps.Reporter.RecordFresh(time.Since(start))

	tables := extractTables(lowered)
	c.write(ctx, key, pattern, lowered, payload, tables, params)

	return &Result{
		Payload:   payload,
		Key:       key,
		Pattern:   pattern,
		Cached:    false,
		Cacheable: true,
	}, nil
}

// write persists the entry and registers its table dependencies. Oversized
// payloads and store errors are logged and skipped.
func (c *Cache) write(ctx context.Context, key, pattern, lowered string, payload json.RawMessage, tables []string, params map[string]any) {
	if int64(len(payload)) > c.cfg.Caching.MaxResultSize {
		c.deps.Logger.Debug("result exceeds max size, not cached", "key", key, "size", len(payload))
		return
	}

	stored := []byte(payload)
	compressed := false
	if c.cfg.Optimization.CompressResults {
		stored, compressed = compress.Maybe(stored, c.cfg.Optimization.CompressionMinSaving)
	}

	paramNames := make([]string, 0, len(params))
	for name := range params {
		paramNames = append(paramNames, name)
	}

	entry := domain.CacheEntry{
		Result: stored,
		Metadata: domain.EntryMetadata{
			Subject:      pattern,
			Operation:    "query",
			Digest:       keys.Digest(paramNames...),
			Version:      entryVersion,
			CachedAt:     time.Now(),
			SizeBytes:    int64(len(stored)),
			Compressed:   compressed,
			Dependencies: tableDependencies(tables),
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.deps.Logger.Warn("failed to marshal cache entry", "key", key, "error", err)
		return
	}

	ttl := ttlFor(c.cfg.Expiration, c.cfg.Caching.TTL, lowered, int64(len(stored)), len(tables))
	if err := c.deps.Store.Set(ctx, key, data, ttl); err != nil {
		c.deps.Logger.Warn("store write failed, result not cached", "key", key, "error", err)
		return
	}

	c.index.record(key, tables)
	c.stats.created(key, int64(len(stored)))
}

// InvalidateByTable removes exactly the cached entries whose recorded
// dependency set contains the table. Returns the number of entries removed.
func (c *Cache) InvalidateByTable(ctx context.Context, table string) (int, error) {
	table = strings.ToLower(strings.TrimSpace(table))
	removed := c.index.take(table)
	if len(removed) == 0 {
		return 0, nil
	}

	if err := c.deps.Store.Delete(ctx, removed...); err != nil {
		return 0, err
	}
	c.stats.forget(removed...)

	c.deps.Events.Publish(domain.PatternInvalidatedEvent{Pattern: tablePrefix + table, Removed: len(removed)})
	return len(removed), nil
}

// InvalidateByPattern removes every entry whose key matches the glob-style
// pattern, delegating the match to the store. Returns the number removed.
func (c *Cache) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	removed, err := c.deps.Store.Clear(ctx, pattern)
	if err != nil {
		return removed, err
	}
	c.deps.Events.Publish(domain.PatternInvalidatedEvent{Pattern: pattern, Removed: removed})
	return removed, nil
}

// InvalidateAll removes every query entry under this cache's key prefix.
func (c *Cache) InvalidateAll(ctx context.Context) (int, error) {
	return c.InvalidateByPattern(ctx, c.deps.Keys.QueryPrefix())
}

// KeyStats returns the access statistics recorded for a cache key.
func (c *Cache) KeyStats(key string) (domain.QueryStats, bool) {
	return c.stats.get(key)
}

// Statistics returns the cache's accounting snapshot.
func (c *Cache) Statistics() domain.MetricsSnapshot {
	return c.deps.Reporter.Snapshot()
}

// StartMaintenance launches the background stats sweep. It returns
// immediately and stops when ctx is done.
func (c *Cache) StartMaintenance(ctx context.Context, interval, retention time.Duration) {
	c.stats.pruneLoop(ctx, interval, retention)
}

// StartReporting publishes periodic metrics snapshots to the event sink
// until ctx is done.
func (c *Cache) StartReporting(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	c.deps.Reporter.EmitPeriodically(ctx, clock, interval, c.deps.Events)
}
