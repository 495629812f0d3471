package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// ConfigFileName is the configuration file searched for from the working
// directory upward.
const ConfigFileName = "memo.yaml"

// HashAlgorithm selects the strong content hash used for fingerprints.
type HashAlgorithm string

const (
	// HashSHA256 selects SHA-256 for content hashing.
	HashSHA256 HashAlgorithm = "sha256"
	// HashXX64 selects 64-bit XXHash for content hashing.
	HashXX64 HashAlgorithm = "xxhash"
)

// ExpirationStrategy selects how query-result TTLs are computed.
type ExpirationStrategy string

const (
	// ExpireFixed uses the configured base TTL for every entry.
	ExpireFixed ExpirationStrategy = "ttl"
	// ExpireAdaptive derives TTL from query complexity, result size and
	// access frequency.
	ExpireAdaptive ExpirationStrategy = "adaptive"
	// ExpireDependency derives TTL from the number of table dependencies:
	// entries touching many tables are invalidated sooner.
	ExpireDependency ExpirationStrategy = "dependency"
)

// FileTrackingConfig controls fingerprinting.
type FileTrackingConfig struct {
	HashAlgorithm  HashAlgorithm
	ChunkSize      int
	IgnorePatterns []string
}

// CachingConfig controls the shared store behavior.
type CachingConfig struct {
	Enabled         bool
	TTL             time.Duration
	KeyPrefix       string
	CompressResults bool
	// MaxResultSize caps the payload size written to the store; larger
	// results are returned uncached.
	MaxResultSize int64
}

// DependenciesConfig controls dependency tracking and cascades.
type DependenciesConfig struct {
	Enabled        bool
	MaxDepth       int
	AutoInvalidate bool
}

// AnalysisTypeConfig describes one configured analysis operation.
type AnalysisTypeConfig struct {
	Enabled bool
	TTL     time.Duration
	Version string
}

// PerformanceConfig controls batch analysis.
type PerformanceConfig struct {
	BatchProcessing  bool
	ParallelAnalysis bool
	MaxParallelFiles int
}

// ExpirationConfig controls query-result TTL policy.
type ExpirationConfig struct {
	Strategy             ExpirationStrategy
	MinTTL               time.Duration
	MaxTTL               time.Duration
	AccessBasedExtension bool
	// ExtensionFactor multiplies the remaining TTL when a hot entry is
	// extended. Must be > 1.
	ExtensionFactor float64
}

// OptimizationConfig controls query normalization and compression.
type OptimizationConfig struct {
	// NormalizeQueries folds case and whitespace before key derivation.
	NormalizeQueries bool
	// ParameterizeQueries additionally replaces inlined literals with
	// placeholders when normalization is on.
	ParameterizeQueries  bool
	DetectSimilarQueries bool
	CompressResults      bool
	// CompressionMinSaving is the fraction of size a compressed payload must
	// save for compression to be kept.
	CompressionMinSaving float64
}

// Config is the exhaustively validated engine configuration. Defaults are
// applied at load time, never at call sites.
type Config struct {
	FileTracking  FileTrackingConfig
	Caching       CachingConfig
	Dependencies  DependenciesConfig
	AnalysisTypes map[string]AnalysisTypeConfig
	Performance   PerformanceConfig
	Expiration    ExpirationConfig
	Optimization  OptimizationConfig
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		FileTracking: FileTrackingConfig{
			HashAlgorithm:  HashSHA256,
			ChunkSize:      64 * 1024,
			IgnorePatterns: []string{"node_modules/**", ".git/**", "**/*.min.js"},
		},
		Caching: CachingConfig{
			Enabled:         true,
			TTL:             15 * time.Minute,
			KeyPrefix:       "memo",
			CompressResults: false,
			MaxResultSize:   8 * 1024 * 1024,
		},
		Dependencies: DependenciesConfig{
			Enabled:        true,
			MaxDepth:       5,
			AutoInvalidate: true,
		},
		AnalysisTypes: map[string]AnalysisTypeConfig{
			"ast":     {Enabled: true, TTL: 30 * time.Minute, Version: "1"},
			"symbols": {Enabled: true, TTL: 30 * time.Minute, Version: "1"},
			"metrics": {Enabled: true, TTL: time.Hour, Version: "1"},
		},
		Performance: PerformanceConfig{
			BatchProcessing:  true,
			ParallelAnalysis: true,
			MaxParallelFiles: 8,
		},
		Expiration: ExpirationConfig{
			Strategy:             ExpireAdaptive,
			MinTTL:               time.Minute,
			MaxTTL:               time.Hour,
			AccessBasedExtension: true,
			ExtensionFactor:      1.5,
		},
		Optimization: OptimizationConfig{
			NormalizeQueries:     true,
			ParameterizeQueries:  true,
			DetectSimilarQueries: true,
			CompressResults:      true,
			CompressionMinSaving: 0.2,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.FileTracking.ChunkSize <= 0 {
		return WithDetail(ErrInvalidChunkSize, "chunk_size", c.FileTracking.ChunkSize)
	}
	switch c.FileTracking.HashAlgorithm {
	case HashSHA256, HashXX64:
	default:
		return WithDetail(ErrUnknownHashAlgorithm, "algorithm", string(c.FileTracking.HashAlgorithm))
	}
	if c.Dependencies.MaxDepth <= 0 {
		return WithDetail(ErrInvalidMaxDepth, "max_depth", c.Dependencies.MaxDepth)
	}
	if c.Performance.MaxParallelFiles <= 0 {
		return WithDetail(ErrInvalidParallelism, "max_parallel_files", c.Performance.MaxParallelFiles)
	}
	if len(c.AnalysisTypes) == 0 {
		return ErrNoAnalysisTypes
	}
	if c.Expiration.MinTTL > c.Expiration.MaxTTL {
		err := WithDetail(ErrInvalidTTLBounds, "min_ttl", c.Expiration.MinTTL.String())
		return zerr.With(err, "max_ttl", c.Expiration.MaxTTL.String())
	}
	switch c.Expiration.Strategy {
	case ExpireFixed, ExpireAdaptive, ExpireDependency:
	default:
		return WithDetail(ErrUnknownExpirationStrategy, "strategy", string(c.Expiration.Strategy))
	}
	if c.Expiration.AccessBasedExtension && c.Expiration.ExtensionFactor <= 1 {
		return WithDetail(ErrInvalidExtensionFactor, "factor", c.Expiration.ExtensionFactor)
	}
	return nil
}

// AnalysisType returns the configuration for the named analysis type.
func (c *Config) AnalysisType(name string) (AnalysisTypeConfig, error) {
	tc, ok := c.AnalysisTypes[name]
	if !ok {
		return AnalysisTypeConfig{}, WithDetail(ErrUnknownAnalysisType, "type", name)
	}
	if !tc.Enabled {
		return AnalysisTypeConfig{}, WithDetail(ErrAnalysisTypeDisabled, "type", name)
	}
	if tc.TTL <= 0 {
		tc.TTL = c.Caching.TTL
	}
	return tc, nil
}
