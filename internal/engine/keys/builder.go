// Package keys derives deterministic, namespaced cache keys and implements
// the query-text normalization used to unify structurally identical
// queries. Building a key never performs I/O.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"go.trai.ch/memo/internal/core/domain"
)

// digestLen is the number of hex characters kept from the key digest.
// 128 bits is enough to make accidental collisions a non-concern.
const digestLen = 32

// Builder derives cache keys under a configured namespace prefix.
type Builder struct {
	prefix string
}

// NewBuilder creates a Builder with the given key prefix.
func NewBuilder(prefix string) *Builder {
	if prefix == "" {
		prefix = "memo"
	}
	return &Builder{prefix: prefix}
}

// AnalysisKey derives the key for an analysis result. Identical inputs
// always yield the identical key; any change to content or operation
// version yields a different key.
func (b *Builder) AnalysisKey(path, operation string, fp domain.Fingerprint, version string) string {
	h := sha256.New()
	writeField(h, path)
	writeField(h, fp.ContentHash)
	writeField(h, version)
	return fmt.Sprintf("%s:analysis:%s:v%s:%s", b.prefix, operation, version, sum(h))
}

// AnalysisPrefix returns the match pattern covering every key for the given
// operation type, used for store-side pattern clears.
func (b *Builder) AnalysisPrefix(operation string) string {
	return fmt.Sprintf("%s:analysis:%s:*", b.prefix, operation)
}

// QueryKey derives the key for a query result. The normalized pattern, the
// extracted literal values and the bound parameters all feed the digest, so
// two queries differing only in an inlined literal never collapse to the
// same key even though they share a pattern.
func (b *Builder) QueryKey(n Normalized, params map[string]any, version string) string {
	h := sha256.New()
	writeField(h, n.Pattern)
	for _, lit := range n.Literals {
		writeField(h, lit)
	}
	writeField(h, paramsDigest(params))
	writeField(h, version)
	return fmt.Sprintf("%s:query:v%s:%s", b.prefix, version, sum(h))
}

// QueryPrefix returns the match pattern covering every query key.
func (b *Builder) QueryPrefix() string {
	return b.prefix + ":query:*"
}

// Digest returns the fingerprint-or-params digest recorded in entry
// metadata, so a structurally valid hit can be attributed to its inputs.
func Digest(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		writeField(h, f)
	}
	return sum(h)
}

// paramsDigest folds a parameter map into a deterministic string. Keys are
// sorted so map iteration order never leaks into the key.
func paramsDigest(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		writeField(h, name)
		writeField(h, fmt.Sprintf("%v", params[name]))
	}
	return sum(h)
}

func writeField(h interface{ Write([]byte) (int, error) }, field string) {
	_, _ = h.Write([]byte(field))
	_, _ = h.Write([]byte{0}) // Separator
}

func sum(h interface{ Sum([]byte) []byte }) string {
	return hex.EncodeToString(h.Sum(nil))[:digestLen]
}
