// Package app implements the application layer for memo.
package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/adapters/watcher"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/analysis"
	"go.trai.ch/memo/internal/engine/depgraph"
	"go.trai.ch/memo/internal/engine/keys"
	"go.trai.ch/memo/internal/engine/limiter"
	"go.trai.ch/memo/internal/engine/query"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// metricsInterval is how often watch mode publishes a metrics snapshot.
const metricsInterval = time.Minute

// App wires the caching engine to its collaborators and drives the CLI
// use cases.
type App struct {
	cfg      *domain.Config
	analysis *analysis.Cache
	queries  *query.Cache
	watcher  ports.Watcher
	logger   ports.Logger
	events   ports.EventSink
	clock    clockwork.Clock
}

// Deps are the collaborators assembled by the wiring layer.
type Deps struct {
	Config        *domain.Config
	Store         ports.Store
	Fingerprinter ports.Fingerprinter
	Analyzer      ports.Analyzer
	Executor      ports.QueryExecutor
	Watcher       ports.Watcher
	Logger        ports.Logger
	Events        ports.EventSink
	Tracer        ports.Tracer
	Clock         clockwork.Clock
}

// New builds the engine pair and returns the application. The query cache
// is only constructed when an executor is supplied; the CLI surface works
// without one.
func New(deps Deps) (*App, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Events == nil {
		deps.Events = ports.NopSink{}
	}

	cfg := *deps.Config
	shared := limiter.New(cfg.Performance.MaxParallelFiles)
	builder := keys.NewBuilder(cfg.Caching.KeyPrefix)

	analysisCache, err := analysis.New(cfg, analysis.Deps{
		Store:         deps.Store,
		Fingerprinter: deps.Fingerprinter,
		Keys:          builder,
		Graph:         depgraph.New(),
		Analyzer:      deps.Analyzer,
		Limiter:       shared,
		Logger:        deps.Logger,
		Events:        deps.Events,
		Tracer:        deps.Tracer,
	})
	if err != nil {
		return nil, err
	}

	var queryCache *query.Cache
	if deps.Executor != nil {
		queryCache, err = query.New(cfg, query.Deps{
			Store:    deps.Store,
			Keys:     builder,
			Executor: deps.Executor,
			Limiter:  shared,
			Logger:   deps.Logger,
			Events:   deps.Events,
			Tracer:   deps.Tracer,
			Clock:    deps.Clock,
		})
		if err != nil {
			return nil, err
		}
	}

	return &App{
		cfg:      deps.Config,
		analysis: analysisCache,
		queries:  queryCache,
		watcher:  deps.Watcher,
		logger:   deps.Logger,
		events:   deps.Events,
		clock:    deps.Clock,
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *domain.Config {
	return a.cfg
}

// AnalysisCache exposes the analysis engine for embedders.
func (a *App) AnalysisCache() *analysis.Cache {
	return a.analysis
}

// QueryCache exposes the query engine for embedders. Nil when no executor
// was injected.
func (a *App) QueryCache() *query.Cache {
	return a.queries
}

// AnalyzeOptions configure the Analyze use case.
type AnalyzeOptions struct {
	// Operation is the analysis type to run.
	Operation string
	// Options are passed through to the injected analyzer.
	Options map[string]any
}

// Analyze runs the analysis cache over the given paths, expanding
// directories recursively, and returns the per-file outcomes.
func (a *App) Analyze(ctx context.Context, paths []string, opts AnalyzeOptions) ([]analysis.BatchResult, error) {
	files, err := a.expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrEmptyPath
	}

	if a.cfg.Performance.BatchProcessing {
		return a.analysis.AnalyzeMany(ctx, files, opts.Operation, opts.Options), nil
	}

	results := make([]analysis.BatchResult, 0, len(files))
	for _, file := range files {
		res, analyzeErr := a.analysis.Analyze(ctx, file, opts.Operation, opts.Options)
		results = append(results, analysis.BatchResult{Path: file, Result: res, Err: analyzeErr})
	}
	return results, nil
}

// expand resolves the argument list to concrete files, walking directories.
func (a *App) expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.WithDetailCause(domain.ErrFileStatFailed, err, "path", path)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(sub string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				a.logger.Warn("skipping unreadable path", "path", sub, "error", walkErr)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			files = append(files, sub)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Invalidate drops cached analysis results for the given paths and returns
// the total number of files whose entries were removed. With cascade set,
// dependents found in the dependency graph are dropped as well.
func (a *App) Invalidate(ctx context.Context, paths []string, cascade bool) (int, error) {
	dropped := 0
	for _, path := range paths {
		n, err := a.analysis.Invalidate(ctx, path, cascade)
		if err != nil {
			return dropped, err
		}
		dropped += n
	}
	return dropped, nil
}

// Statistics returns the accounting snapshots for both caches. The query
// snapshot is zero-valued when no executor is wired.
func (a *App) Statistics() (analysisSnap, querySnap domain.MetricsSnapshot) {
	analysisSnap = a.analysis.Statistics()
	if a.queries != nil {
		querySnap = a.queries.Statistics()
	}
	return analysisSnap, querySnap
}

// Watch runs the invalidation loop over root until ctx is done: modified
// files are invalidated (cascading per configuration) and re-analyzed,
// created files are analyzed and tracked, removed files are untracked.
func (a *App) Watch(ctx context.Context, root string) error {
	if a.watcher == nil {
		return domain.ErrWatcherClosed
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return domain.WithDetailCause(domain.ErrPathResolutionFailed, err, "path", root)
	}

	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		a.reconcile(ctx, paths)
	})

	if err := a.watcher.Start(ctx, root); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start watcher"), "root", root)
	}
	a.logger.Info("watching for changes", "root", root)

	a.analysis.StartReporting(ctx, a.clock, metricsInterval)
	if a.queries != nil {
		a.queries.StartReporting(ctx, a.clock, metricsInterval)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range a.watcher.Events() {
			debouncer.Add(event.Path)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		err := a.watcher.Stop()
		debouncer.Flush()
		a.events.Publish(domain.ShutdownEvent{})
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// reconcile maps a debounced batch of changed paths onto cache operations.
// The operation is derived from current filesystem state rather than the
// raw event kind, a burst of create/write/remove for one path collapses to
// its end state.
func (a *App) reconcile(ctx context.Context, paths []string) {
	cascade := a.cfg.Dependencies.AutoInvalidate
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if untrackErr := a.analysis.Untrack(ctx, path); untrackErr != nil {
				a.logger.Warn("failed to untrack removed file", "path", path, "error", untrackErr)
			}
			continue
		}

		tracked := a.analysis.Tracked(path)
		if len(tracked) > 0 {
			if _, err := a.analysis.Invalidate(ctx, path, cascade); err != nil {
				a.logger.Warn("failed to invalidate changed file", "path", path, "error", err)
				continue
			}
			// Re-analyze the operations previously recorded so the entries
			// stay warm.
			for _, operation := range tracked {
				a.track(ctx, path, operation)
			}
			continue
		}

		for operation := range a.cfg.AnalysisTypes {
			a.track(ctx, path, operation)
		}
	}
}

// track analyzes path for one operation type, logging instead of failing:
// the watch loop never stops over one bad file.
func (a *App) track(ctx context.Context, path, operation string) {
	if _, err := a.analysis.Analyze(ctx, path, operation, nil); err != nil {
		a.logger.Debug("analysis skipped", "path", path, "operation", operation, "error", err)
	}
}
