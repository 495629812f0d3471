package ports

import "go.trai.ch/memo/internal/core/domain"

// ConfigLoader loads the engine configuration.
type ConfigLoader interface {
	// Load reads the configuration from the given working directory,
	// applying defaults for anything unset. A missing file yields the
	// default configuration.
	Load(cwd string) (*domain.Config, error)
}
