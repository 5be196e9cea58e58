// Package config provides configuration management for adsync.
// It supports YAML configuration files, environment variables, and sensible defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adlift/adsync/internal/breaker"
	"github.com/adlift/adsync/internal/util"
)

// Config represents the complete adsync configuration.
type Config struct {
	// Platforms configures credentials and endpoints per ad platform
	Platforms PlatformsConfig `yaml:"platforms"`

	// Sync configures default synchronization behavior
	Sync SyncConfig `yaml:"sync"`

	// Breaker configures the per-platform circuit breaker
	Breaker BreakerConfig `yaml:"breaker"`

	// Retry configures the failed-entity retry coordinator
	Retry RetryConfig `yaml:"retry"`

	// Store configures local state persistence
	Store StoreConfig `yaml:"store"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output"`
}

// PlatformsConfig holds platform-specific configuration.
type PlatformsConfig struct {
	GoogleAds PlatformConfig `yaml:"googleads"`
	Meta      PlatformConfig `yaml:"meta"`
}

// PlatformConfig holds configuration for a single ad platform.
type PlatformConfig struct {
	// Endpoint overrides the platform API base URL; empty uses the
	// production endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`
	// CredentialsFile is the TOML credentials file path; ~ expands to
	// the home directory.
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// Transaction rolls back the whole batch when any operation fails
	Transaction bool `yaml:"transaction"`
	// TrackDeletions deletes platform entities that no longer exist locally
	TrackDeletions bool `yaml:"track_deletions"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the breaker
	FailureThreshold int `yaml:"failure_threshold"`
	// Cooldown is how long the breaker stays open before a probe
	Cooldown time.Duration `yaml:"cooldown"`
}

// RetryConfig holds retry coordinator settings.
type RetryConfig struct {
	// MaxAttempts is the per-entity retry ceiling
	MaxAttempts int `yaml:"max_attempts"`
	// Interval is how often the coordinator sweeps for failed entities
	Interval time.Duration `yaml:"interval"`
}

// StoreConfig holds local persistence settings.
type StoreConfig struct {
	// Path is the SQLite database location
	Path string `yaml:"path"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Format is the default output format (table, json, yaml)
	Format string `yaml:"format"`
	// Color controls color output (auto, always, never)
	Color string `yaml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Platforms: PlatformsConfig{
			GoogleAds: PlatformConfig{
				CredentialsFile: util.CredentialsPath("googleads"),
			},
			Meta: PlatformConfig{
				CredentialsFile: util.CredentialsPath("meta"),
			},
		},
		Sync: SyncConfig{
			Transaction:    false,
			TrackDeletions: false,
		},
		Breaker: BreakerConfig{
			FailureThreshold: breaker.DefaultConfig().FailureThreshold,
			Cooldown:         breaker.DefaultConfig().Cooldown,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Interval:    5 * time.Minute,
		},
		Store: StoreConfig{
			Path: util.StatePath(),
		},
		Output: OutputConfig{
			Format:  "table",
			Color:   "auto",
			Verbose: false,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.ConfigPath(), configFileName)
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg := Default()

	configPath := FilePath()
	// #nosec G304 - configPath is constructed from trusted config directory
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvironment()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern ADSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("ADSYNC_SYNC_TRANSACTION"); v != "" {
		c.Sync.Transaction = parseBool(v)
	}
	if v := os.Getenv("ADSYNC_SYNC_TRACK_DELETIONS"); v != "" {
		c.Sync.TrackDeletions = parseBool(v)
	}

	if v := os.Getenv("ADSYNC_BREAKER_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Breaker.FailureThreshold = n
		}
	}
	if v := os.Getenv("ADSYNC_BREAKER_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.Cooldown = d
		}
	}

	if v := os.Getenv("ADSYNC_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("ADSYNC_RETRY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.Interval = d
		}
	}

	if v := os.Getenv("ADSYNC_STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	if v := os.Getenv("ADSYNC_GOOGLEADS_ENDPOINT"); v != "" {
		c.Platforms.GoogleAds.Endpoint = v
	}
	if v := os.Getenv("ADSYNC_GOOGLEADS_CREDENTIALS"); v != "" {
		c.Platforms.GoogleAds.CredentialsFile = v
	}
	if v := os.Getenv("ADSYNC_META_ENDPOINT"); v != "" {
		c.Platforms.Meta.Endpoint = v
	}
	if v := os.Getenv("ADSYNC_META_CREDENTIALS"); v != "" {
		c.Platforms.Meta.CredentialsFile = v
	}

	if v := os.Getenv("ADSYNC_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("ADSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("ADSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// BreakerSettings returns the breaker settings in the breaker package's
// form, falling back to defaults for unset values.
func (c *Config) BreakerSettings() breaker.Config {
	cfg := breaker.DefaultConfig()
	if c.Breaker.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Breaker.FailureThreshold
	}
	if c.Breaker.Cooldown > 0 {
		cfg.Cooldown = c.Breaker.Cooldown
	}
	return cfg
}

// Platform returns the per-platform section for a platform name, with
// the credentials path expanded. Unknown platforms get a zero config.
func (c *Config) Platform(name string) PlatformConfig {
	var pc PlatformConfig
	switch name {
	case "googleads":
		pc = c.Platforms.GoogleAds
	case "meta":
		pc = c.Platforms.Meta
	}
	pc.CredentialsFile = util.ExpandPath(pc.CredentialsFile, "")
	return pc
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
