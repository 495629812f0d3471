// Package config provides the configuration loader for memo.
package config

import (
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load searches for memo.yaml from cwd upward and returns the parsed
// configuration with defaults applied. When no file exists anywhere up the
// tree the defaults are returned as-is.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	configPath, found := l.findConfiguration(cwd)
	if !found {
		l.Logger.Debug("no config file found, using defaults", "cwd", cwd)
		return &cfg, nil
	}
	l.Logger.Debug("loading configuration", "path", configPath)

	data, err := os.ReadFile(configPath) // #nosec G304 -- path found by upward search from cwd
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", configPath)
	}

	var file Memofile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", configPath)
	}

	if err := apply(&cfg, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return &cfg, nil
}

func (l *Loader) findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

// apply overlays the file's set fields onto the defaults.
func apply(cfg *domain.Config, file *Memofile) error {
	if ft := file.FileTracking; ft != nil {
		if ft.HashAlgorithm != nil {
			cfg.FileTracking.HashAlgorithm = domain.HashAlgorithm(*ft.HashAlgorithm)
		}
		if ft.ChunkSize != nil {
			cfg.FileTracking.ChunkSize = *ft.ChunkSize
		}
		if ft.IgnorePatterns != nil {
			cfg.FileTracking.IgnorePatterns = ft.IgnorePatterns
		}
	}

	if ca := file.Caching; ca != nil {
		setBool(&cfg.Caching.Enabled, ca.Enabled)
		setBool(&cfg.Caching.CompressResults, ca.CompressResults)
		if ca.KeyPrefix != nil {
			cfg.Caching.KeyPrefix = *ca.KeyPrefix
		}
		if ca.MaxResultSize != nil {
			cfg.Caching.MaxResultSize = *ca.MaxResultSize
		}
		if err := setDuration(&cfg.Caching.TTL, ca.TTL); err != nil {
			return err
		}
	}

	if de := file.Dependencies; de != nil {
		setBool(&cfg.Dependencies.Enabled, de.Enabled)
		setBool(&cfg.Dependencies.AutoInvalidate, de.AutoInvalidate)
		if de.MaxDepth != nil {
			cfg.Dependencies.MaxDepth = *de.MaxDepth
		}
	}

	if file.AnalysisTypes != nil {
		if err := applyAnalysisTypes(cfg, file.AnalysisTypes); err != nil {
			return err
		}
	}

	if pe := file.Performance; pe != nil {
		setBool(&cfg.Performance.BatchProcessing, pe.BatchProcessing)
		setBool(&cfg.Performance.ParallelAnalysis, pe.ParallelAnalysis)
		if pe.MaxParallelFiles != nil {
			cfg.Performance.MaxParallelFiles = *pe.MaxParallelFiles
		}
	}

	if ex := file.Expiration; ex != nil {
		setBool(&cfg.Expiration.AccessBasedExtension, ex.AccessBasedExtension)
		if ex.Strategy != nil {
			cfg.Expiration.Strategy = domain.ExpirationStrategy(*ex.Strategy)
		}
		if ex.ExtensionFactor != nil {
			cfg.Expiration.ExtensionFactor = *ex.ExtensionFactor
		}
		if err := setDuration(&cfg.Expiration.MinTTL, ex.MinTTL); err != nil {
			return err
		}
		if err := setDuration(&cfg.Expiration.MaxTTL, ex.MaxTTL); err != nil {
			return err
		}
	}

	if op := file.Optimization; op != nil {
		setBool(&cfg.Optimization.NormalizeQueries, op.NormalizeQueries)
		setBool(&cfg.Optimization.ParameterizeQueries, op.ParameterizeQueries)
		setBool(&cfg.Optimization.DetectSimilarQueries, op.DetectSimilarQueries)
		setBool(&cfg.Optimization.CompressResults, op.CompressResults)
		if op.CompressionMinSaving != nil {
			cfg.Optimization.CompressionMinSaving = *op.CompressionMinSaving
		}
	}

	return nil
}

// applyAnalysisTypes merges configured types over the defaults. A type
// named in the file but absent from the defaults is added; defaults not
// named in the file are kept.
func applyAnalysisTypes(cfg *domain.Config, types map[string]AnalysisTypeDTO) error {
	for name, dto := range types {
		tc, ok := cfg.AnalysisTypes[name]
		if !ok {
			tc = domain.AnalysisTypeConfig{Enabled: true, Version: "1"}
		}
		setBool(&tc.Enabled, dto.Enabled)
		if dto.Version != nil {
			tc.Version = *dto.Version
		}
		if err := setDuration(&tc.TTL, dto.TTL); err != nil {
			return err
		}
		cfg.AnalysisTypes[name] = tc
	}
	return nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "duration", *src)
	}
	*dst = d
	return nil
}
