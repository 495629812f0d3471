package config

// Memofile represents the structure of the memo.yaml configuration file.
// Pointer fields distinguish "unset, keep the default" from an explicit
// zero value.
type Memofile struct {
	FileTracking  *FileTrackingDTO           `yaml:"fileTracking"`
	Caching       *CachingDTO                `yaml:"caching"`
	Dependencies  *DependenciesDTO           `yaml:"dependencies"`
	AnalysisTypes map[string]AnalysisTypeDTO `yaml:"analysisTypes"`
	Performance   *PerformanceDTO            `yaml:"performance"`
	Expiration    *ExpirationDTO             `yaml:"expiration"`
	Optimization  *OptimizationDTO           `yaml:"optimization"`
}

// FileTrackingDTO configures fingerprinting.
type FileTrackingDTO struct {
	HashAlgorithm  *string  `yaml:"hashAlgorithm"`
	ChunkSize      *int     `yaml:"chunkSize"`
	IgnorePatterns []string `yaml:"ignorePatterns"`
}

// CachingDTO configures the shared store behavior.
type CachingDTO struct {
	Enabled         *bool   `yaml:"enabled"`
	TTL             *string `yaml:"ttl"`
	KeyPrefix       *string `yaml:"keyPrefix"`
	CompressResults *bool   `yaml:"compressResults"`
	MaxResultSize   *int64  `yaml:"maxResultSize"`
}

// DependenciesDTO configures dependency tracking and cascades.
type DependenciesDTO struct {
	Enabled        *bool `yaml:"enabled"`
	MaxDepth       *int  `yaml:"maxDepth"`
	AutoInvalidate *bool `yaml:"autoInvalidate"`
}

// AnalysisTypeDTO configures one analysis operation.
type AnalysisTypeDTO struct {
	Enabled *bool   `yaml:"enabled"`
	TTL     *string `yaml:"ttl"`
	Version *string `yaml:"version"`
}

// PerformanceDTO configures batch analysis.
type PerformanceDTO struct {
	BatchProcessing  *bool `yaml:"batchProcessing"`
	ParallelAnalysis *bool `yaml:"parallelAnalysis"`
	MaxParallelFiles *int  `yaml:"maxParallelFiles"`
}

// ExpirationDTO configures query-result TTL policy.
type ExpirationDTO struct {
	Strategy             *string  `yaml:"strategy"`
	MinTTL               *string  `yaml:"minTtl"`
	MaxTTL               *string  `yaml:"maxTtl"`
	AccessBasedExtension *bool    `yaml:"accessBasedExtension"`
	ExtensionFactor      *float64 `yaml:"extensionFactor"`
}

// OptimizationDTO configures query normalization and compression.
type OptimizationDTO struct {
	NormalizeQueries     *bool    `yaml:"normalizeQueries"`
	ParameterizeQueries  *bool    `yaml:"parameterizeQueries"`
	DetectSimilarQueries *bool    `yaml:"detectSimilarQueries"`
	CompressResults      *bool    `yaml:"compressResults"`
	CompressionMinSaving *float64 `yaml:"compressionMinSaving"`
}
