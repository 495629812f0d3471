package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

// WithDetail attaches a key-value pair to a sentinel error while keeping
// the sentinel reachable through Unwrap, so errors.Is still matches it.
// zerr.With on a sentinel returns a detached copy that errors.Is cannot
// match.
func WithDetail(sentinel error, key string, value any) error {
	return zerr.With(zerr.Wrap(sentinel, ""), key, value)
}

// WithDetailCause is WithDetail with an underlying cause joined in, so
// errors.Is matches both the sentinel and the cause.
func WithDetailCause(sentinel, cause error, key string, value any) error {
	return zerr.With(zerr.Wrap(errors.Join(sentinel, cause), ""), key, value)
}

var (
	// ErrEmptyPath is returned when an analysis request has no subject path.
	ErrEmptyPath = zerr.New("path must not be empty")

	// ErrEmptyQuery is returned when a query execution request has no query text.
	ErrEmptyQuery = zerr.New("query text must not be empty")

	// ErrUnknownAnalysisType is returned when the requested analysis type is not configured.
	ErrUnknownAnalysisType = zerr.New("unknown analysis type")

	// ErrAnalysisTypeDisabled is returned when the requested analysis type is configured but disabled.
	ErrAnalysisTypeDisabled = zerr.New("analysis type is disabled")

	// ErrPathIgnored is returned when a subject path matches a configured ignore pattern.
	ErrPathIgnored = zerr.New("path matches an ignore pattern")

	// ErrPathResolutionFailed is returned when a subject path cannot be resolved to an absolute path.
	ErrPathResolutionFailed = zerr.New("failed to resolve absolute path")

	// ErrNilAnalyzer is returned when an analysis cache is constructed without an analyzer.
	ErrNilAnalyzer = zerr.New("analyzer must not be nil")

	// ErrNilExecutor is returned when a query cache is constructed without an executor.
	ErrNilExecutor = zerr.New("query executor must not be nil")

	// ErrFileOpenFailed is returned when a subject file cannot be opened for fingerprinting.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileStatFailed is returned when a subject file cannot be stat'ed.
	ErrFileStatFailed = zerr.New("failed to stat file")

	// ErrFileHashFailed is returned when hashing a subject file fails mid-read.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrEntryMarshalFailed is returned when a cache entry cannot be serialized.
	ErrEntryMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrEntryUnmarshalFailed is returned when a stored cache entry cannot be deserialized.
	ErrEntryUnmarshalFailed = zerr.New("failed to unmarshal cache entry")

	// ErrStoreReadFailed is returned when the backing store fails a read.
	ErrStoreReadFailed = zerr.New("store read failed")

	// ErrStoreWriteFailed is returned when the backing store fails a write.
	ErrStoreWriteFailed = zerr.New("store write failed")

	// ErrStoreDeleteFailed is returned when the backing store fails a delete.
	ErrStoreDeleteFailed = zerr.New("store delete failed")

	// ErrStoreClearFailed is returned when the backing store fails a pattern clear.
	ErrStoreClearFailed = zerr.New("store clear failed")

	// ErrInvalidChunkSize is returned when fileTracking.chunkSize is not positive.
	ErrInvalidChunkSize = zerr.New("chunk size must be positive")

	// ErrUnknownHashAlgorithm is returned when fileTracking.hashAlgorithm is not recognized.
	ErrUnknownHashAlgorithm = zerr.New("unknown hash algorithm, expected 'sha256' or 'xxhash'")

	// ErrInvalidTTLBounds is returned when expiration.minTtl exceeds expiration.maxTtl.
	ErrInvalidTTLBounds = zerr.New("minTtl must not exceed maxTtl")

	// ErrUnknownExpirationStrategy is returned when expiration.strategy is not recognized.
	ErrUnknownExpirationStrategy = zerr.New("unknown expiration strategy, expected 'ttl', 'adaptive' or 'dependency'")

	// ErrInvalidMaxDepth is returned when dependencies.maxDepth is not positive.
	ErrInvalidMaxDepth = zerr.New("max depth must be positive")

	// ErrInvalidParallelism is returned when performance.maxParallelFiles is not positive.
	ErrInvalidParallelism = zerr.New("max parallel files must be positive")

	// ErrInvalidExtensionFactor is returned when expiration.extensionFactor is not greater than 1.
	ErrInvalidExtensionFactor = zerr.New("extension factor must be greater than 1")

	// ErrNoAnalysisTypes is returned when the configuration declares no analysis types.
	ErrNoAnalysisTypes = zerr.New("at least one analysis type must be configured")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrWatcherClosed is returned when events are requested from a stopped watcher.
	ErrWatcherClosed = zerr.New("watcher is closed")
)
