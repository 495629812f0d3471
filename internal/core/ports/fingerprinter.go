package ports

import "go.trai.ch/memo/internal/core/domain"

// Fingerprinter computes content fingerprints for subject files.
//
//go:generate go run go.uber.org/mock/mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint returns the fingerprint for path, re-reading the file only
	// when its size or mtime changed since the last observation. I/O errors
	// propagate and nothing partial is memoized.
	Fingerprint(path string) (domain.Fingerprint, error)

	// Forget drops the memoized observation for path.
	Forget(path string)
}
