// Package analysis orchestrates file-analysis caching: fingerprinting,
// key derivation, store probes, injected analyzer calls and
// dependency-driven invalidation.
package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/compress"
	"go.trai.ch/memo/internal/engine/depgraph"
	"go.trai.ch/memo/internal/engine/keys"
	"go.trai.ch/memo/internal/engine/limiter"
	"go.trai.ch/memo/internal/engine/metrics"
	"go.trai.ch/zerr"
)

// cacheName identifies this cache in metrics and events.
const cacheName = "analysis"

// Result is the outcome of an Analyze call.
type Result struct {
	// Payload is the analyzer output.
	Payload json.RawMessage
	// Dependencies are the resolved file dependencies recorded for the
	// subject.
	Dependencies []string
	// Key is the cache key the result lives under.
	Key string
	// Cached reports whether the result was served from the store.
	Cached bool
	// Fingerprint is the subject's fingerprint at serve time.
	Fingerprint domain.Fingerprint
}

// Deps are the collaborators of the analysis cache.
type Deps struct {
	Store         ports.Store
	Fingerprinter ports.Fingerprinter
	Keys          *keys.Builder
	Graph         *depgraph.Graph
	Analyzer      ports.Analyzer
	Limiter       *limiter.Limiter
	Reporter      *metrics.Reporter
	Logger        ports.Logger
	Events        ports.EventSink
	Tracer        ports.Tracer
}

// Cache memoizes file-analysis results in the external store, keyed by
// file identity + content. There is no per-key single-flight: concurrent
// requests for the same uncached key each invoke the analyzer.
type Cache struct {
	cfg  domain.Config
	deps Deps

	mu sync.RWMutex
	// tracked maps canonical path -> operation type -> last written key, so
	// invalidation can remove every entry recorded against a path.
	tracked map[string]map[string]string
}

// New creates an analysis cache. The analyzer is required; events, tracer
// and reporter default to no-ops.
func New(cfg domain.Config, deps Deps) (*Cache, error) {
	if deps.Analyzer == nil {
		return nil, domain.ErrNilAnalyzer
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
	return &Cache{
		cfg:     cfg,
		deps:    deps,
		tracked: make(map[string]map[string]string),
	}, nil
}

// Analyze returns the analysis result for path, serving from the store
// when the file's content is unchanged and invoking the injected analyzer
// otherwise. Validation errors surface immediately and are never cached;
// analyzer errors propagate as-is and are never retried.
func (c *Cache) Analyze(ctx context.Context, path, operation string, options map[string]any) (*Result, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "analysis.analyze")
	defer span.End()
	span.SetAttribute("operation", operation)

	typeCfg, abs, err := c.validate(path, operation)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("path", abs)

	fp, err := c.deps.Fingerprinter.Fingerprint(abs)
	if err != nil {
		c.deps.Reporter.RecordError()
		span.RecordError(err)
		return nil, err
	}

	key := c.deps.Keys.AnalysisKey(abs, operation, fp, typeCfg.Version)

	if c.cfg.Caching.Enabled {
		if hit := c.probe(ctx, key, abs); hit != nil {
			hit.Fingerprint = fp
			return hit, nil
		}
	}
	c.deps.Events.Publish(domain.CacheMissEvent{Cache: cacheName, Key: key, Subject: abs})

	return c.computeAndStore(ctx, abs, operation, typeCfg, fp, key, options)
}

// validate checks the subject and operation type and resolves the
// canonical absolute path.
func (c *Cache) validate(path, operation string) (domain.AnalysisTypeConfig, string, error) {
	if path == "" {
		return domain.AnalysisTypeConfig{}, "", domain.ErrEmptyPath
	}
	typeCfg, err := c.cfg.AnalysisType(operation)
	if err != nil {
		return domain.AnalysisTypeConfig{}, "", err
	}
	abs, err := canonicalPath(path)
	if err != nil {
		return domain.AnalysisTypeConfig{}, "", err
	}
	if ignored(abs, c.cfg.FileTracking.IgnorePatterns) {
		return domain.AnalysisTypeConfig{}, "", domain.WithDetail(domain.ErrPathIgnored, "path", abs)
	}
	return typeCfg, abs, nil
}

// probe looks the key up in the store. Store errors and undecodable
// entries degrade to a miss.
func (c *Cache) probe(ctx context.Context, key, subject string) *Result {
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

	c.deps.Reporter.RecordHit(time.Since(start))
	c.deps.Events.Publish(domain.CacheHitEvent{Cache: cacheName, Key: key, Subject: subject})

	return &Result{
		Payload:      json.RawMessage(payload),
		Dependencies: entry.Metadata.Dependencies,
		Key:          key,
		Cached:       true,
	}
}

// computeAndStore invokes the analyzer and writes the result back with
// metadata and dependency edges. Store and dependency failures are
// fail-open: the fresh result is always returned.
func (c *Cache) computeAndStore(
	ctx context.Context,
	abs, operation string,
	typeCfg domain.AnalysisTypeConfig,
	fp domain.Fingerprint,
	key string,
	options map[string]any,
) (*Result, error) {
	start := time.Now()

	analyzed, err := c.deps.Analyzer(ctx, abs, operation, fp, options)
	if err != nil {
		c.deps.Reporter.RecordError()
		return nil, err
	}
	c.deps.Reporter.RecordFresh(time.Since(start))

	resolved := resolveDependencies(abs, analyzed.Dependencies, c.deps.Logger)

	c.write(ctx, abs, operation, typeCfg, fp, key, analyzed.Payload, resolved)

	if c.cfg.Dependencies.Enabled {
		c.deps.Graph.Record(abs, resolved)
	}
	c.track(abs, operation, key)

	return &Result{
		Payload:      analyzed.Payload,
		Dependencies: resolved,
		Key:          key,
		Cached:       false,
		Fingerprint:  fp,
	}, nil
}

// write persists the entry. Oversized payloads and store errors are logged
// and skipped.
func (c *Cache) write(
	ctx context.Context,
	abs, operation string,
	typeCfg domain.AnalysisTypeConfig,
	fp domain.Fingerprint,
	key string,
	payload json.RawMessage,
	resolved []string,
) {
	if !c.cfg.Caching.Enabled {
		return
	}
	if int64(len(payload)) > c.cfg.Caching.MaxResultSize {
		c.deps.Logger.Debug("result exceeds max size, not cached",
			"key", key, "size", len(payload))
		return
	}

	stored := payload
	compressed := false
	if c.cfg.Caching.CompressResults {
		stored, compressed = compress.Maybe(payload, c.cfg.Optimization.CompressionMinSaving)
	}

	entry := domain.CacheEntry{
		Result: stored,
		Metadata: domain.EntryMetadata{
			Subject:      abs,
			Operation:    operation,
			Digest:       keys.Digest(fp.ContentHash),
			Version:      typeCfg.Version,
			CachedAt:     time.Now(),
			SizeBytes:    int64(len(stored)),
			Compressed:   compressed,
			Dependencies: resolved,
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.deps.Logger.Warn("failed to marshal cache entry", "key", key, "error", err)
		return
	}
	if err := c.deps.Store.Set(ctx, key, data, typeCfg.TTL); err != nil {
		c.deps.Logger.Warn("store write failed, result not cached", "key", key, "error", err)
	}
}

// track records path -> operation -> key and emits FileTracked on first
// sight of the pair.
func (c *Cache) track(abs, operation, key string) {
	c.mu.Lock()
	ops, ok := c.tracked[abs]
	if !ok {
		ops = make(map[string]string)
		c.tracked[abs] = ops
	}
	_, known := ops[operation]
	ops[operation] = key
	c.mu.Unlock()

	if !known {
		c.deps.Events.Publish(domain.FileTrackedEvent{Path: abs, Operation: operation})
	}
}

// Invalidate removes every cached entry for every operation type recorded
// against path. Unless cascade is false, all transitive dependents are
// invalidated too, bounded by the configured max depth. Returns the number
// of subjects invalidated.
func (c *Cache) Invalidate(ctx context.Context, path string, cascade bool) (int, error) {
	abs, err := canonicalPath(path)
	if err != nil {
		return 0, err
	}

	subjects := []string{abs}
	if cascade && c.cfg.Dependencies.Enabled {
		subjects = c.deps.Graph.CascadeSet(abs, c.cfg.Dependencies.MaxDepth)
	}

	invalidated := 0
	for _, subject := range subjects {
		if c.drop(ctx, subject) {
			invalidated++
		}
		if subject != abs {
			c.deps.Events.Publish(domain.DependencyInvalidatedEvent{Subject: abs, Dependent: subject})
		}
	}

	c.deps.Events.Publish(domain.FileInvalidatedEvent{Path: abs, Cascaded: len(subjects) - 1})
	return invalidated, nil
}

// InvalidateOperation removes every stored entry for one analysis type
// across all files, for example after the analyzer backing that type
// changed. Per-path tracking state is pruned alongside the entries.
func (c *Cache) InvalidateOperation(ctx context.Context, operation string) (int, error) {
	pattern := c.deps.Keys.AnalysisPrefix(operation)
	removed, err := c.deps.Store.Clear(ctx, pattern)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to clear operation entries"), "operation", operation)
	}

	c.mu.Lock()
	for subject, ops := range c.tracked {
		delete(ops, operation)
		if len(ops) == 0 {
			delete(c.tracked, subject)
		}
	}
	c.mu.Unlock()

	c.deps.Events.Publish(domain.PatternInvalidatedEvent{Pattern: pattern, Removed: removed})
	return removed, nil
}

// drop deletes the stored entries and tracking state for one subject.
// Store failures are logged; the tracking state is cleared regardless, so
// a later analyze re-writes the entries.
func (c *Cache) drop(ctx context.Context, subject string) bool {
	c.mu.Lock()
	ops := c.tracked[subject]
	delete(c.tracked, subject)
	c.mu.Unlock()

	c.deps.Fingerprinter.Forget(subject)

	if len(ops) == 0 {
		return false
	}

	storeKeys := make([]string, 0, len(ops))
	for _, key := range ops {
		storeKeys = append(storeKeys, key)
	}
	if err := c.deps.Store.Delete(ctx, storeKeys...); err != nil {
		c.deps.Logger.Warn("store delete failed during invalidation", "subject", subject, "error", err)
	}
	return true
}

// Untrack removes a subject entirely: its cached entries, fingerprint memo
// and its own dependency declarations. Used when a watched file is removed.
func (c *Cache) Untrack(ctx context.Context, path string) error {
	abs, err := canonicalPath(path)
	if err != nil {
		return err
	}
	c.drop(ctx, abs)
	c.deps.Graph.Remove(abs)
	c.deps.Events.Publish(domain.FileInvalidatedEvent{Path: abs})
	return nil
}

// Tracked returns the operation types recorded against path.
func (c *Cache) Tracked(path string) []string {
	abs, err := canonicalPath(path)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	ops := make([]string, 0, len(c.tracked[abs]))
	for op := range c.tracked[abs] {
		ops = append(ops, op)
	}
	return ops
}

// Statistics returns the cache's accounting snapshot.
func (c *Cache) Statistics() domain.MetricsSnapshot {
	return c.deps.Reporter.Snapshot()
}

// StartReporting publishes periodic metrics snapshots to the event sink
// until ctx is done.
func (c *Cache) StartReporting(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	c.deps.Reporter.EmitPeriodically(ctx, clock, interval, c.deps.Events)
}
