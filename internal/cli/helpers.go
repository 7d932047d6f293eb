package cli

import (
	"fmt"
	"path/filepath"

	"github.com/aura-core/aura/internal/config"
)

// resolveConfigPath returns the explicit --config path, or the default
// $AURA_HOME/config.toml.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(config.Home(), "config.toml")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return cfg, wrapConfigError(err)
	}
	if cfg.Pipeline.TargetFPS <= 0 {
		return cfg, wrapConfigError(fmt.Errorf("pipeline.target_fps must be positive, got %d", cfg.Pipeline.TargetFPS))
	}
	if cfg.Pipeline.ParticleCount <= 0 {
		return cfg, wrapConfigError(fmt.Errorf("pipeline.particle_count must be positive, got %d", cfg.Pipeline.ParticleCount))
	}
	return cfg, nil
}
