package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as a string ("8s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.msana/config.toml.
type Config struct {
	DefaultTab string `toml:"default_tab"`
	APIURL     string `toml:"api_url"`

	LeaseTTL                       Duration `toml:"lease_ttl"`
	HeartbeatInterval              Duration `toml:"heartbeat_interval"`
	ClearIdentityOnFreshNavigation bool     `toml:"clear_identity_on_fresh_navigation"`

	SyncStartupDelay  Duration `toml:"sync_startup_delay"`
	SyncOnlineDelay   Duration `toml:"sync_online_delay"`
	SyncRatePerSecond float64  `toml:"sync_rate_per_second"`

	ProbeInterval  Duration `toml:"probe_interval"`
	RequestTimeout Duration `toml:"request_timeout"`

	// MetricsAddr enables the metrics listener when set, e.g. "127.0.0.1:9310".
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		APIURL:                         "http://localhost:3000/api",
		LeaseTTL:                       Duration{8 * time.Second},
		HeartbeatInterval:              Duration{4 * time.Second},
		ClearIdentityOnFreshNavigation: true,
		SyncStartupDelay:               Duration{2 * time.Second},
		SyncOnlineDelay:                Duration{1 * time.Second},
		SyncRatePerSecond:              5,
		ProbeInterval:                  Duration{5 * time.Second},
		RequestTimeout:                 Duration{15 * time.Second},
	}
}

// Load reads config from the given path on top of the defaults.
// Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings the lease protocol cannot work with.
func (c *Config) Validate() error {
	if c.LeaseTTL.Duration <= 0 || c.HeartbeatInterval.Duration <= 0 {
		return errors.New("lease_ttl and heartbeat_interval must be positive")
	}
	if c.HeartbeatInterval.Duration >= c.LeaseTTL.Duration {
		return fmt.Errorf("heartbeat_interval (%s) must be shorter than lease_ttl (%s)", c.HeartbeatInterval, c.LeaseTTL)
	}
	if c.SyncRatePerSecond < 0 {
		return errors.New("sync_rate_per_second must not be negative")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
