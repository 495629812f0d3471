package domain

import (
	"encoding/json"
	"time"
)

// EntryMetadata describes how and when a cached result was produced.
type EntryMetadata struct {
	// Subject is the canonical identity the entry was computed for: an
	// absolute file path for analysis entries, normalized query text for
	// query entries.
	Subject string `json:"subject"`

	// Operation is the analysis type ("ast", "symbols", ...) or "query".
	Operation string `json:"operation"`

	// Digest identifies the exact fingerprint or parameter set that produced
	// the result.
	Digest string `json:"digest"`

	// Version is the operation version the entry was produced under. Keys
	// are never reused across versions.
	Version string `json:"version"`

	// CachedAt is the time the entry was written.
	CachedAt time.Time `json:"cachedAt"`

	// SizeBytes is the stored payload size, after compression if any.
	SizeBytes int64 `json:"sizeBytes"`

	// Compressed reports whether Result holds a zstd-compressed payload.
	Compressed bool `json:"compressed"`

	// Dependencies lists the subjects this entry was recorded to depend on:
	// resolved file paths for analysis entries, "table:<name>" references
	// for query entries.
	Dependencies []string `json:"dependencies,omitempty"`
}

// CacheEntry is the unit written to and read from the backing store. Expiry
// is enforced by the store's TTL, not by the engine. Result is stored
// base64-encoded so compressed payloads round-trip through JSON.
type CacheEntry struct {
	Result   []byte        `json:"result"`
	Metadata EntryMetadata `json:"metadata"`
}

// AnalysisResult is what an injected analyzer produces for a subject file.
type AnalysisResult struct {
	// Payload is the analyzer's output, opaque to the engine.
	Payload json.RawMessage `json:"payload"`

	// Dependencies holds import/include-style references discovered during
	// analysis, as written in the source. The engine resolves them relative
	// to the subject's directory before recording them.
	Dependencies []string `json:"dependencies,omitempty"`
}

// QueryResult is what an injected query executor produces.
type QueryResult struct {
	// Payload is the executor's output, opaque to the engine.
	Payload json.RawMessage `json:"payload"`
}
