package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config file path.
const EnvPath = "SIMCORE_CONFIG"

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Scripting  ScriptingConfig  `toml:"scripting"`
	Logging    LoggingConfig    `toml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

type SimulationConfig struct {
	Seed         int64         `toml:"seed"`
	FixedStep    time.Duration `toml:"fixed_step"`    // dt used by run/replay when a frame omits one
	MaxFrames    int           `toml:"max_frames"`    // hard stop for headless runs
	InitialLives int           `toml:"initial_lives"` // used when a scene leaves it unset
	StartOnLoad  bool          `toml:"start_on_load"` // ready -> playing immediately after load
}

type ScriptingConfig struct {
	Enabled              bool   `toml:"enabled"` // false: {expr} values resolve to their fallback
	MaxCachedExpressions int    `toml:"max_cached_expressions"`
	ScriptsDir           string `toml:"scripts_dir"` // .lua helpers loaded before any scene expression runs
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Load reads path over the defaults. An empty path falls back to $SIMCORE_CONFIG,
// and when that is unset too the defaults are returned as-is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	if c.Simulation.FixedStep <= 0 {
		return fmt.Errorf("simulation.fixed_step must be positive, got %s", c.Simulation.FixedStep)
	}
	if c.Simulation.InitialLives < 0 {
		return fmt.Errorf("simulation.initial_lives must not be negative, got %d", c.Simulation.InitialLives)
	}
	if c.Scripting.MaxCachedExpressions < 0 {
		return fmt.Errorf("scripting.max_cached_expressions must not be negative")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Seed:         1,
			FixedStep:    time.Second / 60,
			MaxFrames:    3600,
			InitialLives: 3,
			StartOnLoad:  true,
		},
		Scripting: ScriptingConfig{
			Enabled:              true,
			MaxCachedExpressions: 512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}
