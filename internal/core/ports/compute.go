package ports

import (
	"context"

	"go.trai.ch/memo/internal/core/domain"
)

// Analyzer is the injected computation behind the analysis cache. It may
// fail; the engine propagates the error as-is and never retries.
type Analyzer func(
	ctx context.Context,
	path string,
	operation string,
	fp domain.Fingerprint,
	options map[string]any,
) (*domain.AnalysisResult, error)

// QueryExecutor is the injected computation behind the query cache. It may
// fail; the engine propagates the error as-is and never retries.
type QueryExecutor func(
	ctx context.Context,
	query string,
	params map[string]any,
	options map[string]any,
) (*domain.QueryResult, error)
