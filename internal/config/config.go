// Package config loads the application configuration from an optional
// viny.yaml file, VINY_* environment variables and built-in defaults,
// in that order of precedence (environment wins over the file).
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BackendConfig selects and configures the storage backend. Kind is always
// explicit; there is no environment sniffing or fallback chain.
type BackendConfig struct {
	Kind          string `mapstructure:"kind"`
	Path          string `mapstructure:"path"`
	CouchURL      string `mapstructure:"couch_url"`
	CouchDatabase string `mapstructure:"couch_database"`
	MaxEntries    int    `mapstructure:"max_entries"`
}

// RetryConfig tunes retries for backend operations.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// SyncConfig tunes conflict resolution.
type SyncConfig struct {
	DefaultStrategy string `mapstructure:"default_strategy"`
}

// LoggingConfig tunes the logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration. path may name a specific file; when empty,
// viny.yaml is searched in the working directory and $HOME/.config/viny.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backend.kind", "file")
	v.SetDefault("backend.path", "./vault")
	v.SetDefault("backend.max_entries", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 100*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("retry.attempt_timeout", 10*time.Second)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", 30*time.Second)
	v.SetDefault("sync.default_strategy", "merge")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("VINY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("viny")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/viny")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
