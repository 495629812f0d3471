// Package fingerprint computes content fingerprints for subject files.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// observation is the last recorded stat and fingerprint for a path.
type observation struct {
	size    int64
	modTime time.Time
	fp      domain.Fingerprint
}

// Fingerprinter computes a strong content hash and a secondary
// whitespace/comment-insensitive similarity hash, reading files in fixed
// size chunks. Results are memoized per path keyed on (size, mtime) so
// unchanged files are never re-read.
type Fingerprinter struct {
	algorithm domain.HashAlgorithm
	chunkSize int

	mu   sync.RWMutex
	seen map[string]observation
}

// New creates a Fingerprinter from the file tracking configuration.
func New(cfg domain.FileTrackingConfig) *Fingerprinter {
	return &Fingerprinter{
		algorithm: cfg.HashAlgorithm,
		chunkSize: cfg.ChunkSize,
		seen:      make(map[string]observation),
	}
}

// Fingerprint returns the fingerprint for path. If the file's size and
// mtime match the last observation the memoized fingerprint is returned
// with Changed=false and the file is not read.
func (f *Fingerprinter) Fingerprint(path string) (domain.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, domain.ErrFileStatFailed.Error()), "path", path)
	}

	f.mu.RLock()
	obs, ok := f.seen[path]
	f.mu.RUnlock()

	if ok && obs.size == info.Size() && obs.modTime.Equal(info.ModTime()) {
		fp := obs.fp
		fp.Changed = false
		return fp, nil
	}

	fp, err := f.compute(path, info)
	if err != nil {
		// No partial fingerprint is memoized on failure.
		return domain.Fingerprint{}, err
	}

	f.mu.Lock()
	f.seen[path] = observation{size: info.Size(), modTime: info.ModTime(), fp: fp}
	f.mu.Unlock()

	return fp, nil
}

// Forget drops the memoized observation for path.
func (f *Fingerprinter) Forget(path string) {
	f.mu.Lock()
	delete(f.seen, path)
	f.mu.Unlock()
}

// compute streams the file once through both digests, in chunks, so memory
// stays bounded regardless of file size.
func (f *Fingerprinter) compute(path string, info os.FileInfo) (domain.Fingerprint, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	strong := newStrongDigest(f.algorithm)
	similarity := xxhash.New()
	normalizer := newNormalizer(similarity)

	buf := make([]byte, f.chunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			_, _ = strong.Write(buf[:n])
			normalizer.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return domain.Fingerprint{}, zerr.With(zerr.Wrap(readErr, domain.ErrFileHashFailed.Error()), "path", path)
		}
	}

	return domain.Fingerprint{
		ContentHash: strong.Sum(),
		Similarity:  similarity.Sum64(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ComputedAt:  time.Now(),
		Changed:     true,
	}, nil
}

// strongDigest abstracts over the configured content hash.
type strongDigest interface {
	io.Writer
	Sum() string
}

func newStrongDigest(algorithm domain.HashAlgorithm) strongDigest {
	if algorithm == domain.HashXX64 {
		return &xxDigest{h: xxhash.New()}
	}
	return &shaDigest{h: sha256.New()}
}

type shaDigest struct{ h hash.Hash }

func (d *shaDigest) Write(p []byte) (int, error) { return d.h.Write(p) }
func (d *shaDigest) Sum() string                 { return hex.EncodeToString(d.h.Sum(nil)) }

type xxDigest struct{ h *xxhash.Digest }

func (d *xxDigest) Write(p []byte) (int, error) { return d.h.Write(p) }
func (d *xxDigest) Sum() string                 { return fmt.Sprintf("%016x", d.h.Sum64()) }
