// Package config resolves CLI defaults from an optional choreo.yaml file
// and CHOREO_* environment variables.
//
// Precedence, lowest first: built-in defaults, the config file, the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads:
// CHOREO_FRAME_DELAY, CHOREO_DURATION_SCALE, CHOREO_DB, CHOREO_FORMAT.
const EnvPrefix = "CHOREO"

// FileName is the config file looked up in the search paths, without
// extension.
const FileName = "choreo"

// Config holds the defaults shared by every command.
type Config struct {
	// FrameDelay is the interval between simulated or real frames.
	FrameDelay time.Duration `mapstructure:"frame_delay"`
	// DurationScale multiplies every duration during playback.
	DurationScale float64 `mapstructure:"duration_scale"`
	// DB is the SQLite database recorded runs are written to. Empty means
	// runs are not persisted.
	DB string `mapstructure:"db"`
	// Format is the output format, text or json.
	Format string `mapstructure:"format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		FrameDelay:    16 * time.Millisecond,
		DurationScale: 1,
		Format:        "text",
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.FrameDelay <= 0 {
		errs = append(errs, fmt.Errorf("frame_delay must be positive, got %s", c.FrameDelay))
	}
	if c.DurationScale < 0 {
		errs = append(errs, fmt.Errorf("duration_scale must be zero or greater, got %g", c.DurationScale))
	}
	if c.Format != "text" && c.Format != "json" {
		errs = append(errs, fmt.Errorf("format must be text or json, got %q", c.Format))
	}
	return errors.Join(errs...)
}

// LoaderConfig holds optional overrides for Load.
type LoaderConfig struct {
	ConfigFile  string   // Direct config file path (optional)
	SearchPaths []string // Directories searched for choreo.yaml
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path. A missing explicit
// file is an error; a missing searched one is not.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithSearchPaths replaces the directories searched for choreo.yaml.
func WithSearchPaths(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchPaths = dirs }
}

// Load resolves the configuration. It returns the config and the file it
// was read from, if any.
func Load(opts ...LoaderOption) (Config, string, error) {
	lc := LoaderConfig{SearchPaths: []string{"."}}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("frame_delay", def.FrameDelay)
	v.SetDefault("duration_scale", def.DurationScale)
	v.SetDefault("db", def.DB)
	v.SetDefault("format", def.Format)

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("failed to load config file %s: %w", lc.ConfigFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, dir := range lc.SearchPaths {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, "", fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}
