// Package config loads broker configuration. Defaults are overridden by an
// optional YAML file (COLLAB_CONFIG), which is in turn overridden by the
// individual COLLAB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for a locally run broker.
const (
	DefaultBind        = "127.0.0.1:7878"
	DefaultObserverDir = "/tmp/frostwall-observer/frames"
	DefaultScanMs      = 800
	DefaultInstance    = "default"
)

// Config is the full broker configuration.
type Config struct {
	// Bind is the HTTP listen address.
	Bind string `yaml:"bind"`

	// ObserverDir is the directory scanned for frame files.
	ObserverDir string `yaml:"observer_dir"`

	// ObserverScanMs is the scan interval in milliseconds. Must be positive.
	ObserverScanMs int `yaml:"observer_scan_ms"`

	// ObserverSeedExisting makes the first scan treat already-present files
	// as known instead of re-emitting the full directory on cold start.
	ObserverSeedExisting bool `yaml:"observer_seed_existing"`

	// RedisAddr enables the Redis event mirror when non-empty.
	RedisAddr string `yaml:"redis_addr"`

	// Instance namespaces the mirror's Pub/Sub channel.
	Instance string `yaml:"instance"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Bind:           DefaultBind,
		ObserverDir:    DefaultObserverDir,
		ObserverScanMs: DefaultScanMs,
		Instance:       DefaultInstance,
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by COLLAB_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("COLLAB_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ScanInterval returns the observer scan interval as a duration.
func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ObserverScanMs) * time.Millisecond
}

// MirrorEnabled reports whether the Redis event mirror should run.
func (c Config) MirrorEnabled() bool {
	return c.RedisAddr != ""
}

// Validate rejects configurations the broker cannot run with.
func (c Config) Validate() error {
	if c.Bind == "" {
		return fmt.Errorf("bind address cannot be empty")
	}
	if c.ObserverDir == "" {
		return fmt.Errorf("observer directory cannot be empty")
	}
	if c.ObserverScanMs <= 0 {
		return fmt.Errorf("observer scan interval must be a positive number of milliseconds, got %d", c.ObserverScanMs)
	}
	if c.Instance == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COLLAB_BIND"); v != "" {
		c.Bind = v
	}
	if v := os.Getenv("COLLAB_OBSERVER_DIR"); v != "" {
		c.ObserverDir = v
	}
	if v := os.Getenv("COLLAB_OBSERVER_SCAN_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("COLLAB_OBSERVER_SCAN_MS must be a positive integer, got %q", v)
		}
		c.ObserverScanMs = ms
	}
	if v := os.Getenv("COLLAB_OBSERVER_SEED_EXISTING"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COLLAB_OBSERVER_SEED_EXISTING must be a boolean, got %q", v)
		}
		c.ObserverSeedExisting = seed
	}
	if v := os.Getenv("COLLAB_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("COLLAB_INSTANCE"); v != "" {
		c.Instance = v
	}
	return nil
}
