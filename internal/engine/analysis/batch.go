package analysis

import (
	"context"
	"sync"
)

// BatchResult pairs one batch input with its outcome. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Path   string
	Result *Result
	Err    error
}

// AnalyzeMany analyzes a set of files, in parallel up to the configured
// limit when parallel analysis is enabled. Results are returned in input
// order and one file's failure never aborts the rest of the batch.
func (c *Cache) AnalyzeMany(ctx context.Context, paths []string, operation string, options map[string]any) []BatchResult {
	results := make([]BatchResult, len(paths))

	if !c.cfg.Performance.ParallelAnalysis {
		for i, path := range paths {
			results[i] = c.analyzeOne(ctx, path, operation, options)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Go(func() {
			err := c.deps.Limiter.Do(ctx, func() error {
				results[i] = c.analyzeOne(ctx, path, operation, options)
				return nil
			})
			if err != nil {
				// Context canceled before a slot opened.
				results[i] = BatchResult{Path: path, Err: err}
			}
		})
	}
	wg.Wait()

	return results
}

func (c *Cache) analyzeOne(ctx context.Context, path, operation string, options map[string]any) BatchResult {
	res, err := c.Analyze(ctx, path, operation, options)
	return BatchResult{Path: path, Result: res, Err: err}
}
