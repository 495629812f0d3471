package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
)

func TestWithDetailKeepsSentinelMatchable(t *testing.T) {
	t.Parallel()

	err := domain.WithDetail(domain.ErrUnknownAnalysisType, "type", "lint")
	require.ErrorIs(t, err, domain.ErrUnknownAnalysisType)
	assert.Contains(t, err.Error(), domain.ErrUnknownAnalysisType.Error())
}

func TestWithDetailCauseMatchesSentinelAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := domain.WithDetailCause(domain.ErrPathResolutionFailed, cause, "path", "./src")
	require.ErrorIs(t, err, domain.ErrPathResolutionFailed)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), domain.ErrPathResolutionFailed.Error())
	assert.Contains(t, err.Error(), "permission denied")
}

func TestValidateErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		mutate   func(*domain.Config)
		sentinel error
	}{
		{
			name:     "chunk size",
			mutate:   func(c *domain.Config) { c.FileTracking.ChunkSize = 0 },
			sentinel: domain.ErrInvalidChunkSize,
		},
		{
			name:     "hash algorithm",
			mutate:   func(c *domain.Config) { c.FileTracking.HashAlgorithm = "crc32" },
			sentinel: domain.ErrUnknownHashAlgorithm,
		},
		{
			name:     "max depth",
			mutate:   func(c *domain.Config) { c.Dependencies.MaxDepth = 0 },
			sentinel: domain.ErrInvalidMaxDepth,
		},
		{
			name:     "parallelism",
			mutate:   func(c *domain.Config) { c.Performance.MaxParallelFiles = 0 },
			sentinel: domain.ErrInvalidParallelism,
		},
		{
			name:     "ttl bounds",
			mutate:   func(c *domain.Config) { c.Expiration.MinTTL = 2 * c.Expiration.MaxTTL },
			sentinel: domain.ErrInvalidTTLBounds,
		},
		{
			name:     "expiration strategy",
			mutate:   func(c *domain.Config) { c.Expiration.Strategy = "lru" },
			sentinel: domain.ErrUnknownExpirationStrategy,
		},
		{
			name:     "extension factor",
			mutate:   func(c *domain.Config) { c.Expiration.ExtensionFactor = 1 },
			sentinel: domain.ErrInvalidExtensionFactor,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := domain.DefaultConfig()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.sentinel)
		})
	}
}

func TestAnalysisTypeErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	cfg := domain.DefaultConfig()
	disabled := cfg.AnalysisTypes["ast"]
	disabled.Enabled = false
	cfg.AnalysisTypes["ast"] = disabled

	_, err := cfg.AnalysisType("nonexistent")
	require.ErrorIs(t, err, domain.ErrUnknownAnalysisType)

	_, err = cfg.AnalysisType("ast")
	require.ErrorIs(t, err, domain.ErrAnalysisTypeDisabled)
}
