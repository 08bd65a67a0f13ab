package config

import (
	"time"

	"go.uber.org/fx"
)

// NewPipelineConfigProvider exposes the pipeline section on its own.
func NewPipelineConfigProvider(cfg *Config) *PipelineConfig {
	return &cfg.Songplays.Pipeline
}

// NewLocationProvider resolves the configured timezone.
func NewLocationProvider(cfg *Config) (*time.Location, error) {
	return time.LoadLocation(cfg.Songplays.System.Timezone)
}

// Module provides the values derived from a supplied *Config.
var Module = fx.Options(
	fx.Provide(NewPipelineConfigProvider),
	fx.Provide(NewLocationProvider),
)
