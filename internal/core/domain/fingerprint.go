// Package domain contains the core data model of the caching engine:
// fingerprints, cache entries, access statistics and emitted events.
package domain

import "time"

// Fingerprint is a content-derived digest of a subject file. It is created
// on first access and refreshed only when the file's size or mtime differ
// from the last observation.
type Fingerprint struct {
	// ContentHash is the strong hash over the raw file bytes. It is the only
	// part of the fingerprint that participates in cache-key derivation.
	ContentHash string `json:"contentHash"`

	// Similarity is a cheap secondary hash over a normalized form of the file
	// (whitespace collapsed, comments stripped). It is bookkeeping only and
	// never drives keys or invalidation.
	Similarity uint64 `json:"similarity"`

	// Size is the file size in bytes at hashing time.
	Size int64 `json:"size"`

	// ModTime is the file modification time at hashing time.
	ModTime time.Time `json:"modTime"`

	// ComputedAt records when the fingerprint was computed.
	ComputedAt time.Time `json:"computedAt"`

	// Changed reports whether this fingerprint differs from the previous
	// observation of the same path. False means the cached fingerprint was
	// returned without re-reading the file.
	Changed bool `json:"-"`
}
