// Package analyzer provides the built-in source file analyzer used when no
// external analyzer is injected. It produces a lightweight structural
// summary and extracts import-style references for dependency tracking.
package analyzer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

// importRes match the common import/include shapes across the source
// languages a code-intelligence server sees. Group 1 or 2 carries the
// referenced module.
var importRes = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+(?:[\w{},*\s]+\s+from\s+)?["']([^"']+)["']`),
	regexp.MustCompile(`^\s*(?:const|let|var)\s+[\w{},\s]+\s*=\s*require\(["']([^"']+)["']\)`),
	regexp.MustCompile(`^\s*#include\s+["<]([^">]+)[">]`),
	regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s`),
}

// summary is the payload produced for each analyzed file.
type summary struct {
	Path     string   `json:"path"`
	Language string   `json:"language"`
	Lines    int      `json:"lines"`
	Bytes    int64    `json:"bytes"`
	Imports  []string `json:"imports,omitempty"`
}

var languagesByExtension = map[string]string{
	".go":  "go",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".py":  "python",
	".c":   "c",
	".h":   "c",
	".cc":  "cpp",
	".cpp": "cpp",
	".hpp": "cpp",
}

// New returns the built-in imports-scanning analyzer.
func New() ports.Analyzer {
	return analyze
}

func analyze(_ context.Context, path, _ string, fp domain.Fingerprint, _ map[string]any) (*domain.AnalysisResult, error) {
	file, err := os.Open(path) //nolint:gosec // Path is validated by the cache before this runs
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	var (
		lines   int
		imports []string
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
		if ref := matchImport(scanner.Text()); ref != "" {
			imports = append(imports, ref)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	payload, err := json.Marshal(summary{
		Path:     path,
		Language: languageOf(path),
		Lines:    lines,
		Bytes:    fp.Size,
		Imports:  imports,
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrEntryMarshalFailed.Error())
	}

	return &domain.AnalysisResult{
		Payload:      payload,
		Dependencies: relativeRefs(imports),
	}, nil
}

func matchImport(line string) string {
	for _, re := range importRes {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// relativeRefs keeps only references naming files relative to the subject.
// Package and stdlib references cannot be resolved to tracked files.
func relativeRefs(imports []string) []string {
	var refs []string
	for _, ref := range imports {
		if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
			refs = append(refs, ref)
		}
	}
	return refs
}

func languageOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "unknown"
	}
	if lang, ok := languagesByExtension[path[idx:]]; ok {
		return lang
	}
	return "unknown"
}
