package analysis

import (
	"path/filepath"
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// canonicalPath resolves path to its cleaned absolute form so the same file
// always maps to the same key regardless of how the caller spelled it.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", domain.WithDetailCause(domain.ErrPathResolutionFailed, err, "path", path)
	}
	return filepath.Clean(abs), nil
}

// ignored reports whether path matches any of the configured ignore
// patterns. Patterns containing "**" match by path segment; plain patterns
// match against the base name and the full path.
func ignored(path string, patterns []string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)

	for _, pattern := range patterns {
		if strings.Contains(pattern, "**") {
			if matchRecursive(slashed, pattern) {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// matchRecursive handles the two common "**" shapes: "dir/**" matches any
// path containing the dir segment, and "**/glob" matches the glob against
// any trailing segment.
func matchRecursive(slashed, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return containsSegment(slashed, prefix)
	}
	if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
		for _, segment := range strings.Split(slashed, "/") {
			if matched, _ := filepath.Match(suffix, segment); matched {
				return true
			}
		}
	}
	return false
}

func containsSegment(slashed, segment string) bool {
	for _, part := range strings.Split(slashed, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// resolveDependencies turns analyzer-reported dependency references into
// canonical absolute paths, relative references resolving against the
// subject's directory. Unresolvable references are logged and skipped, a
// bad reference never fails the analysis that produced it.
func resolveDependencies(subject string, refs []string, log ports.Logger) []string {
	if len(refs) == 0 {
		return nil
	}
	dir := filepath.Dir(subject)

	resolved := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		candidate := ref
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(dir, candidate)
		}
		abs, err := canonicalPath(candidate)
		if err != nil {
			log.Warn("skipping unresolvable dependency", "subject", subject, "reference", ref)
			continue
		}
		if abs == subject {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		resolved = append(resolved, abs)
	}
	return resolved
}
