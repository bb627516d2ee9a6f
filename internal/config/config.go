// Package config handles configuration loading for the quantum mesh
// planner. It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the planner.
type Config struct {
	Evolution EvolutionConfig `mapstructure:"evolution"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Annealing AnnealingConfig `mapstructure:"annealing"`
	Perf      PerfConfig      `mapstructure:"perf"`
	Events    EventsConfig    `mapstructure:"events"`
}

// EvolutionConfig tunes the background evolution loop.
type EvolutionConfig struct {
	// Interval is the tick cadence of the single evolution scheduler.
	Interval time.Duration `mapstructure:"interval"`
	// Seed makes every stochastic component reproducible; 0 uses the
	// clock.
	Seed int64 `mapstructure:"seed"`
}

// PlannerConfig toggles the planning strategies.
type PlannerConfig struct {
	// AnnealingEnabled selects the annealing optimizer for larger task
	// sets.
	AnnealingEnabled bool `mapstructure:"annealing_enabled"`
	// InterferenceEnabled applies wave interference to priorities.
	InterferenceEnabled bool `mapstructure:"interference_enabled"`
}

// AnnealingConfig exposes the optimizer knobs worth tuning per
// deployment.
type AnnealingConfig struct {
	InitialTemperature float64 `mapstructure:"initial_temperature"`
	FinalTemperature   float64 `mapstructure:"final_temperature"`
	CoolingSchedule    string  `mapstructure:"cooling_schedule"`
	MaxIterations      int     `mapstructure:"max_iterations"`
	ParallelChains     int     `mapstructure:"parallel_chains"`
	TunnelingBonus     float64 `mapstructure:"tunneling_bonus"`
}

// PerfConfig sizes the performance layer.
type PerfConfig struct {
	// PoolSize is the per-kind resource pool capacity.
	PoolSize int `mapstructure:"pool_size"`
	// CacheSize caps memoization cache entries.
	CacheSize int `mapstructure:"cache_size"`
	// MemoryThreshold is the heap fraction that triggers reclamation.
	MemoryThreshold float64 `mapstructure:"memory_threshold"`
}

// EventsConfig sizes the event stream.
type EventsConfig struct {
	// BufferSize is the subscriber channel capacity; events beyond it
	// are dropped and counted.
	BufferSize int `mapstructure:"buffer_size"`
}

// Load loads configuration with the following precedence (highest to
// lowest):
// 1. Environment variables (QMESH_*)
// 2. Project config (.qmesh.yaml in current directory or a parent)
// 3. User config (~/.config/qmesh/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("QMESH")
	v.AutomaticEnv()
	v.BindEnv("evolution.interval", "QMESH_EVOLUTION_INTERVAL")
	v.BindEnv("evolution.seed", "QMESH_EVOLUTION_SEED")
	v.BindEnv("planner.annealing_enabled", "QMESH_ANNEALING_ENABLED")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for internal consistency.
func (c *Config) Validate() error {
	if c.Evolution.Interval <= 0 {
		return fmt.Errorf("evolution.interval must be positive, got %s", c.Evolution.Interval)
	}
	if c.Annealing.InitialTemperature <= c.Annealing.FinalTemperature {
		return fmt.Errorf("annealing.initial_temperature %.2f must exceed final_temperature %.2f",
			c.Annealing.InitialTemperature, c.Annealing.FinalTemperature)
	}
	switch c.Annealing.CoolingSchedule {
	case "linear", "exponential", "logarithmic", "adaptive":
	default:
		return fmt.Errorf("unknown annealing.cooling_schedule %q", c.Annealing.CoolingSchedule)
	}
	if c.Annealing.MaxIterations < 1 {
		return fmt.Errorf("annealing.max_iterations must be at least 1, got %d", c.Annealing.MaxIterations)
	}
	if c.Annealing.ParallelChains < 1 {
		return fmt.Errorf("annealing.parallel_chains must be at least 1, got %d", c.Annealing.ParallelChains)
	}
	if c.Perf.PoolSize < 1 {
		return fmt.Errorf("perf.pool_size must be at least 1, got %d", c.Perf.PoolSize)
	}
	if c.Perf.CacheSize < 1 {
		return fmt.Errorf("perf.cache_size must be at least 1, got %d", c.Perf.CacheSize)
	}
	if c.Perf.MemoryThreshold <= 0 || c.Perf.MemoryThreshold > 1 {
		return fmt.Errorf("perf.memory_threshold must be in (0,1], got %.2f", c.Perf.MemoryThreshold)
	}
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("events.buffer_size must be at least 1, got %d", c.Events.BufferSize)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("evolution.interval", "1s")
	v.SetDefault("evolution.seed", 0)

	v.SetDefault("planner.annealing_enabled", true)
	v.SetDefault("planner.interference_enabled", true)

	v.SetDefault("annealing.initial_temperature", 100.0)
	v.SetDefault("annealing.final_temperature", 0.01)
	v.SetDefault("annealing.cooling_schedule", "exponential")
	v.SetDefault("annealing.max_iterations", 1000)
	v.SetDefault("annealing.parallel_chains", 4)
	v.SetDefault("annealing.tunneling_bonus", 0.2)

	v.SetDefault("perf.pool_size", 32)
	v.SetDefault("perf.cache_size", 64)
	v.SetDefault("perf.memory_threshold", 0.8)

	v.SetDefault("events.buffer_size", 256)
}

// getUserConfigDir returns the XDG config directory for the planner.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "qmesh")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "qmesh")
	}
	return filepath.Join(home, ".config", "qmesh")
}

// findProjectConfig searches for .qmesh.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".qmesh.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Evolution: EvolutionConfig{
			Interval: time.Second,
		},
		Planner: PlannerConfig{
			AnnealingEnabled:    true,
			InterferenceEnabled: true,
		},
		Annealing: AnnealingConfig{
			InitialTemperature: 100.0,
			FinalTemperature:   0.01,
			CoolingSchedule:    "exponential",
			MaxIterations:      1000,
			ParallelChains:     4,
			TunnelingBonus:     0.2,
		},
		Perf: PerfConfig{
			PoolSize:        32,
			CacheSize:       64,
			MemoryThreshold: 0.8,
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
	}
}
