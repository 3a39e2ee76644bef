package photon

import (
	"github.com/oktal/photon/internal/app/config"
	"github.com/oktal/photon/internal/ports"
)

// Config aliases so consumers never import internal packages directly.
type (
	Config          = config.Config
	ComponentConfig = config.ComponentConfig
	Duration        = config.Duration
	Policy          = ports.Policy
	WALConfig       = config.WALConfig
	MetricsConfig   = config.MetricsConfig
	LogConfig       = config.LogConfig
)

// LoadConfig reads, defaults, and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
