// Package config loads Kairoi's TOML configuration file with
// github.com/spf13/viper — the teacher's CLI already depends on viper and
// cobra; the server binary reuses viper for its own file instead of
// reaching for environment variables, matching the original's
// `config`+`validator` crate pair (original_source/src/configuration.rs).
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the root configuration object consumed by cmd/kairoid (§6.2).
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Controller    ControllerConfig    `mapstructure:"controller"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Runner        RunnerConfig        `mapstructure:"runner"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// RunnerConfig groups the two runner back-end toggles under the `[runner]`
// table, matching the TOML schema's `[runner.shell]` / `[runner.amqp]`.
type RunnerConfig struct {
	Shell RunnerShellConfig `mapstructure:"shell"`
	Amqp  RunnerAmqpConfig  `mapstructure:"amqp"`
}

// LogConfig configures process-wide structured logging (§1.1). Level
// mirrors the original's LogLevel enum (original_source/src/logger.rs):
// off, error, warn, info, debug, trace. trace maps onto slog's debug level
// (slog has no finer level); off disables logging output entirely.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ControllerConfig configures the Controller Front's TCP listener.
type ControllerConfig struct {
	Listen string `mapstructure:"listen"`
}

// DatabaseConfig configures the Database Engine and its journal.
type DatabaseConfig struct {
	Persistence    bool   `mapstructure:"persistence"`
	FsyncOnPersist bool   `mapstructure:"fsync_on_persist"`
	Framerate      int    `mapstructure:"framerate"`
	JournalPath    string `mapstructure:"journal_path"`
}

// RunnerShellConfig toggles the Shell runner back-end (§9 Open Question:
// feature toggles are runtime booleans, not build tags).
type RunnerShellConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RunnerAmqpConfig toggles the AMQP runner back-end.
type RunnerAmqpConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ObservabilityConfig configures the optional Prometheus and OTLP exporters
// (§2 Domain Stack). Empty strings disable the corresponding exporter.
type ObservabilityConfig struct {
	MetricsListen string `mapstructure:"metrics_listen"`
	OtlpEndpoint  string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("controller.listen", "127.0.0.1:5678")
	v.SetDefault("database.persistence", true)
	v.SetDefault("database.fsync_on_persist", true)
	v.SetDefault("database.framerate", 512)
	v.SetDefault("database.journal_path", "kairoi.journal")
	v.SetDefault("runner.shell.enabled", true)
	v.SetDefault("runner.amqp.enabled", false)
	v.SetDefault("observability.metrics_listen", "")
	v.SetDefault("observability.otlp_endpoint", "")
}

// Load reads path as TOML into a Config, applying defaults for any
// unspecified key. A missing file is not an error, matching the original's
// `.required(false)`; a malformed file or one that fails Validate is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// Validate enforces the invariants named in §1.2: framerate within
// [1, 65535], a known log level, and a non-empty controller listen address.
func (c *Config) Validate() error {
	if c.Database.Framerate < 1 || c.Database.Framerate > 65535 {
		return fmt.Errorf("database.framerate %d out of range [1, 65535]", c.Database.Framerate)
	}
	if _, ok := logLevels[c.Log.Level]; !ok {
		return fmt.Errorf("log.level %q is not one of off|error|warn|info|debug|trace", c.Log.Level)
	}
	if c.Controller.Listen == "" {
		return fmt.Errorf("controller.listen must not be empty")
	}

	return nil
}

var logLevels = map[string]struct{}{
	"off": {}, "error": {}, "warn": {}, "info": {}, "debug": {}, "trace": {},
}
