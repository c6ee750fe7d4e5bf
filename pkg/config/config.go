package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration for the portal service and CLI
type Config struct {
	DataDir  string         `yaml:"dataDir"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Registry RegistryConfig `yaml:"registry"`
	Retry    RetryConfig    `yaml:"retry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig sizes the scope snapshot cache
type CacheConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig enables cross-process cache invalidation when Address is set
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type RegistryConfig struct {
	// ValidateNames rejects placements naming an unregistered widget
	ValidateNames bool           `yaml:"validateNames"`
	Widgets       []WidgetConfig `yaml:"widgets"`
}

// WidgetConfig declares one widget factory. Entries sharing a provider are
// registered together.
type WidgetConfig struct {
	Provider    string   `yaml:"provider"`
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Locations   []string `yaml:"locations"`
}

// RetryConfig controls client-side retries of conflicting layout writes
type RetryConfig struct {
	MaxRetries uint64        `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
}

type MetricsConfig struct {
	Addr            string        `yaml:"addr"`
	CollectInterval time.Duration `yaml:"collectInterval"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		DataDir: "./portal-data",
		Log: LogConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Size: 1024,
		},
		Redis: RedisConfig{
			Channel: "portal:invalidate",
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr:            ":9090",
			CollectInterval: 15 * time.Second,
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("dataDir must not be empty"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size))
	}
	if c.Redis.Enabled() && c.Redis.Channel == "" {
		errs = append(errs, errors.New("redis.channel is required when redis.address is set"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	for i, w := range c.Registry.Widgets {
		if strings.TrimSpace(w.Name) == "" {
			errs = append(errs, fmt.Errorf("registry.widgets[%d] has no name", i))
		}
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.baseDelay must not be negative, got %s", c.Retry.BaseDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
