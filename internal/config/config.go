// internal/config/config.go
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	ListenAddr         string        `mapstructure:"LISTEN_ADDR"`
	GithubToken        string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL       string        `mapstructure:"GITHUB_API_URL"`
	ProfileBatchSize   int           `mapstructure:"PROFILE_BATCH_SIZE"`
	ProfileBatchDelay  time.Duration `mapstructure:"PROFILE_BATCH_DELAY"`
	ResponseCharBudget int           `mapstructure:"RESPONSE_CHAR_BUDGET"`
	ServerRatePerSec   float64       `mapstructure:"SERVER_RATE_PER_SEC"`
	ServerRateBurst    int           `mapstructure:"SERVER_RATE_BURST"`
	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT"`
}

// LoadConfig reads configuration from file and/or environment variables.
// GITHUB_TOKEN is optional: without it the adapter runs unauthenticated
// against a much lower quota ceiling.
func LoadConfig() (*Config, error) {
	// Set default values. Registering GITHUB_TOKEN makes the env-only key
	// visible to Unmarshal.
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("GITHUB_TOKEN", "")
	viper.SetDefault("GITHUB_API_URL", "")
	viper.SetDefault("PROFILE_BATCH_SIZE", 10)
	viper.SetDefault("PROFILE_BATCH_DELAY", "1s")
	viper.SetDefault("RESPONSE_CHAR_BUDGET", 90000)
	viper.SetDefault("SERVER_RATE_PER_SEC", 5.0)
	viper.SetDefault("SERVER_RATE_BURST", 10)
	viper.SetDefault("HTTP_TIMEOUT", "30s")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ProfileBatchSize < 1 {
		return errors.New("PROFILE_BATCH_SIZE must be at least 1")
	}
	if c.ProfileBatchDelay < 0 {
		return errors.New("PROFILE_BATCH_DELAY must not be negative")
	}
	if c.ResponseCharBudget < 1000 {
		return errors.New("RESPONSE_CHAR_BUDGET must be at least 1000")
	}
	if c.ServerRatePerSec <= 0 {
		return errors.New("SERVER_RATE_PER_SEC must be positive")
	}
	if c.ServerRateBurst < 1 {
		return errors.New("SERVER_RATE_BURST must be at least 1")
	}
	return nil
}

// Watch re-unmarshals the configuration whenever the backing file changes
// and hands each valid result to onChange. It is a no-op when configuration
// came from the environment alone.
func Watch(logger *slog.Logger, onChange func(*Config)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", "file", e.Name)

		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			logger.Error("failed to reload config", "error", err)
			return
		}
		if err := cfg.validate(); err != nil {
			logger.Error("rejecting reloaded config", "error", err)
			return
		}
		onChange(&cfg)
	})
}
