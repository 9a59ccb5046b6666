// Package config loads process-wide runtime settings from the environment.
// Objective hyperparameters are not read here; they arrive as string
// key/value pairs through Objective.Configure.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

// Runtime holds settings shared by every objective in the process.
type Runtime struct {
	LogLevel          string        `env:"GBOBJ_LOG_LEVEL" envDefault:"info"`
	Threads           int           `env:"GBOBJ_THREADS" envDefault:"0"`
	ParallelThreshold int           `env:"GBOBJ_PARALLEL_THRESHOLD" envDefault:"4096"`
	SyncTimeout       time.Duration `env:"GBOBJ_SYNC_TIMEOUT" envDefault:"30s"`
	Seed              int64         `env:"GBOBJ_SEED" envDefault:"0"`
}

// Load reads Runtime from the process environment.
func Load() (Runtime, error) {
	return parse(env.Options{})
}

// LoadFrom reads Runtime from the given variables instead of the process
// environment.
func LoadFrom(environment map[string]string) (Runtime, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Runtime, error) {
	var cfg Runtime
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Runtime{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Runtime{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Runtime) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return errors.NewConfigurationError("config.Load", "GBOBJ_LOG_LEVEL", "must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.Threads < 0 {
		return errors.NewConfigurationError("config.Load", "GBOBJ_THREADS", "must be >= 0", c.Threads)
	}
	if c.ParallelThreshold < 0 {
		return errors.NewConfigurationError("config.Load", "GBOBJ_PARALLEL_THRESHOLD", "must be >= 0", c.ParallelThreshold)
	}
	if c.SyncTimeout <= 0 {
		return errors.NewConfigurationError("config.Load", "GBOBJ_SYNC_TIMEOUT", "must be positive", c.SyncTimeout)
	}
	return nil
}
