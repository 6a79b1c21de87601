package ports

import "go.trai.ch/ember/internal/core/domain"

// ConfigLoader loads the engine configuration.
type ConfigLoader interface {
	// Load discovers and parses the config file starting from cwd.
	// A missing file yields the default configuration, not an error.
	Load(cwd string) (domain.Config, error)
}
