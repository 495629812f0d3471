package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/config"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o600))
}

func newLoader() *config.Loader {
	return config.NewLoader(logger.NewWithWriter(os.Stderr, slog.LevelWarn))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := newLoader().Load(t.TempDir())
	require.NoError(t, err)

	defaults := domain.DefaultConfig()
	assert.Equal(t, &defaults, cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
fileTracking:
  hashAlgorithm: xxhash
  chunkSize: 1024
caching:
  ttl: 5m
  keyPrefix: ci
expiration:
  strategy: ttl
  minTtl: 30s
  maxTtl: 2h
`)

	cfg, err := newLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, domain.HashXX64, cfg.FileTracking.HashAlgorithm)
	assert.Equal(t, 1024, cfg.FileTracking.ChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.Caching.TTL)
	assert.Equal(t, "ci", cfg.Caching.KeyPrefix)
	assert.Equal(t, domain.ExpireFixed, cfg.Expiration.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Expiration.MinTTL)
	assert.Equal(t, 2*time.Hour, cfg.Expiration.MaxTTL)

	// Untouched sections keep their defaults.
	assert.True(t, cfg.Caching.Enabled)
	assert.Equal(t, 5, cfg.Dependencies.MaxDepth)
}

func TestLoadExplicitFalseOverridesDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
caching:
  enabled: false
dependencies:
  enabled: false
`)

	cfg, err := newLoader().Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Caching.Enabled)
	assert.False(t, cfg.Dependencies.Enabled)
}

func TestLoadMergesAnalysisTypes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
analysisTypes:
  ast:
    ttl: 1h
    version: "2"
  lint:
    ttl: 10m
`)

	cfg, err := newLoader().Load(dir)
	require.NoError(t, err)

	ast := cfg.AnalysisTypes["ast"]
	assert.True(t, ast.Enabled)
	assert.Equal(t, time.Hour, ast.TTL)
	assert.Equal(t, "2", ast.Version)

	lint, ok := cfg.AnalysisTypes["lint"]
	require.True(t, ok, "new types from the file are added")
	assert.True(t, lint.Enabled)
	assert.Equal(t, 10*time.Minute, lint.TTL)

	_, ok = cfg.AnalysisTypes["symbols"]
	assert.True(t, ok, "default types not named in the file are kept")
}

func TestLoadSearchesUpward(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "caching:\n  keyPrefix: fromparent\n")

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cfg, err := newLoader().Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "fromparent", cfg.Caching.KeyPrefix)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "caching: [not a mapping")

	_, err := newLoader().Load(dir)
	require.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "caching:\n  ttl: soon\n")

	_, err := newLoader().Load(dir)
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
expiration:
  minTtl: 2h
  maxTtl: 1m
`)

	_, err := newLoader().Load(dir)
	require.ErrorContains(t, err, domain.ErrInvalidTTLBounds.Error())
}
