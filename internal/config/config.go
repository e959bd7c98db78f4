package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Progress modes.
const (
	ProgressAuto = "auto" // show the bar when stderr is a terminal
	ProgressOn   = "on"
	ProgressOff  = "off"
)

// DefaultBaseURL serves raw files of the coins repository.
const DefaultBaseURL = "https://raw.githubusercontent.com/KomodoPlatform/coins"

// Config defines configuration for the fetch-coin-assets CLI.
type Config struct {
	BaseURL        string
	RevisionFile   string
	AssetRoot      string
	CoinsKey       string
	CoinsConfigKey string
	IconDir        string
	Workers        int
	TaskTimeout    time.Duration
	HTTPTimeout    time.Duration
	Progress       string
	Force          bool
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		RevisionFile:   "./coins_ci.json",
		AssetRoot:      "./assets",
		CoinsKey:       "coins.json",
		CoinsConfigKey: "coins_config.json",
		IconDir:        "coin-icons",
		Workers:        4,
		TaskTimeout:    10 * time.Second,
		HTTPTimeout:    60 * time.Second,
		Progress:       ProgressAuto,
	}
}

// IconPrefix returns the key prefix of icon objects.
func (c Config) IconPrefix() string {
	return strings.TrimSuffix(c.IconDir, "/") + "/"
}

// fileConfig is used for file unmarshaling with string durations.
type fileConfig struct {
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	RevisionFile   string `yaml:"revision_file" toml:"revision_file"`
	AssetRoot      string `yaml:"asset_root" toml:"asset_root"`
	CoinsKey       string `yaml:"coins_key" toml:"coins_key"`
	CoinsConfigKey string `yaml:"coins_config_key" toml:"coins_config_key"`
	IconDir        string `yaml:"icon_dir" toml:"icon_dir"`
	Workers        int    `yaml:"workers" toml:"workers"`
	TaskTimeout    string `yaml:"task_timeout" toml:"task_timeout"`
	HTTPTimeout    string `yaml:"http_timeout" toml:"http_timeout"`
	Progress       string `yaml:"progress" toml:"progress"`
	Force          bool   `yaml:"force" toml:"force"`
}

// LoadFromFile loads configuration from a YAML or TOML file, chosen by
// extension, on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("config file %s: unsupported extension %q", path, ext)
	}

	cfg := Default()

	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.RevisionFile != "" {
		cfg.RevisionFile = fc.RevisionFile
	}
	if fc.AssetRoot != "" {
		cfg.AssetRoot = fc.AssetRoot
	}
	if fc.CoinsKey != "" {
		cfg.CoinsKey = fc.CoinsKey
	}
	if fc.CoinsConfigKey != "" {
		cfg.CoinsConfigKey = fc.CoinsConfigKey
	}
	if fc.IconDir != "" {
		cfg.IconDir = fc.IconDir
	}
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	if fc.TaskTimeout != "" {
		d, err := time.ParseDuration(fc.TaskTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse task_timeout: %w", err)
		}
		cfg.TaskTimeout = d
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if fc.Progress != "" {
		cfg.Progress = fc.Progress
	}
	cfg.Force = fc.Force

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the COIN_ASSETS_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("COIN_ASSETS_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("COIN_ASSETS_REVISION_FILE"); v != "" {
		c.RevisionFile = v
	}
	if v := os.Getenv("COIN_ASSETS_ASSET_ROOT"); v != "" {
		c.AssetRoot = v
	}
	if v := os.Getenv("COIN_ASSETS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse COIN_ASSETS_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("COIN_ASSETS_TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse COIN_ASSETS_TASK_TIMEOUT: %w", err)
		}
		c.TaskTimeout = d
	}
	if v := os.Getenv("COIN_ASSETS_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse COIN_ASSETS_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("COIN_ASSETS_PROGRESS"); v != "" {
		c.Progress = v
	}
	if v := os.Getenv("COIN_ASSETS_FORCE"); v != "" {
		c.Force = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base_url %q must be an http(s) URL", c.BaseURL)
	}
	if c.RevisionFile == "" {
		return errors.New("config: revision_file is required")
	}
	if c.AssetRoot == "" {
		return errors.New("config: asset_root is required")
	}
	if c.CoinsKey == "" || c.CoinsConfigKey == "" {
		return errors.New("config: coins_key and coins_config_key are required")
	}
	if c.CoinsKey == c.CoinsConfigKey {
		return errors.New("config: coins_key and coins_config_key must differ")
	}
	if strings.Trim(c.IconDir, "/") == "" {
		return errors.New("config: icon_dir is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.TaskTimeout <= 0 {
		return errors.New("config: task_timeout must be positive")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("config: http_timeout must not be negative")
	}
	switch c.Progress {
	case ProgressAuto, ProgressOn, ProgressOff:
	default:
		return fmt.Errorf("config: progress must be %s, %s or %s", ProgressAuto, ProgressOn, ProgressOff)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.RevisionFile != "" {
		c.RevisionFile = override.RevisionFile
	}
	if override.AssetRoot != "" {
		c.AssetRoot = override.AssetRoot
	}
	if override.CoinsKey != "" {
		c.CoinsKey = override.CoinsKey
	}
	if override.CoinsConfigKey != "" {
		c.CoinsConfigKey = override.CoinsConfigKey
	}
	if override.IconDir != "" {
		c.IconDir = override.IconDir
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.TaskTimeout != 0 {
		c.TaskTimeout = override.TaskTimeout
	}
	if override.HTTPTimeout != 0 {
		c.HTTPTimeout = override.HTTPTimeout
	}
	if override.Progress != "" {
		c.Progress = override.Progress
	}
	if override.Force {
		c.Force = override.Force
	}
	return c
}
