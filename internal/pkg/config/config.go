package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Bundle BundleConfig `mapstructure:"bundle"`
	Store  StoreConfig  `mapstructure:"store"`
	Spill  SpillConfig  `mapstructure:"spill"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Valkey ValkeyConfig `mapstructure:"valkey"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// BundleConfig controls bundle composition.
type BundleConfig struct {
	// Mode is "split" (core + per-category heavy bundles) or "single".
	Mode string `mapstructure:"mode"`
	// Dir is where bundle files are written and read.
	Dir string `mapstructure:"dir"`
}

// StoreConfig controls the relational store output.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// SpillConfig controls heavy-category scratch sinks.
type SpillConfig struct {
	// Dir for scratch files; empty means the system temp directory.
	Dir string `mapstructure:"dir"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("bundle.mode", "split")
	v.SetDefault("bundle.dir", "./bundles")
	v.SetDefault("store.dir", "./stores")
	v.SetDefault("spill.dir", "")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROADPACK_BUNDLE_DIR → bundle.dir
	v.SetEnvPrefix("ROADPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Bundle.Mode != "split" && c.Bundle.Mode != "single" {
		errs = append(errs, fmt.Sprintf("bundle.mode must be split or single, got %q", c.Bundle.Mode))
	}
	if c.Bundle.Dir == "" {
		errs = append(errs, "bundle.dir is required")
	}
	if c.Store.Dir == "" {
		errs = append(errs, "store.dir is required")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats.enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey.enabled")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
