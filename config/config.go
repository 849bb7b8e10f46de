// Package config resolves scanctl's configuration from an optional YAML
// file overlaid by environment variables. Durations accept day-suffixed
// strings ("2d") in addition to the usual Go forms.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Config is the resolved client configuration.
type Config struct {
	// BaseURL is the collaborator API root.
	BaseURL string `yaml:"base_url" env:"SCANKIT_BASE_URL"`
	// Badge identifies the operator on submissions.
	Badge string `yaml:"badge" env:"SCANKIT_BADGE"`

	// Store selects the persistence backend: sqlite, file, memory or redis.
	Store string `yaml:"store" env:"SCANKIT_STORE"`
	// StorePath is the SQLite file or the file-store directory.
	StorePath string `yaml:"store_path" env:"SCANKIT_STORE_PATH"`
	// RedisAddr is the address of the shared state server (redis backend).
	RedisAddr string `yaml:"redis_addr" env:"SCANKIT_REDIS_ADDR"`

	CacheCapacity int    `yaml:"cache_capacity" env:"SCANKIT_CACHE_CAPACITY"`
	CacheTTL      string `yaml:"cache_ttl" env:"SCANKIT_CACHE_TTL"`

	PhotoBudget       int `yaml:"photo_budget" env:"SCANKIT_PHOTO_BUDGET"`
	PhotoMaxDimension int `yaml:"photo_max_dimension" env:"SCANKIT_PHOTO_MAX_DIMENSION"`

	ProbeInterval string `yaml:"probe_interval" env:"SCANKIT_PROBE_INTERVAL"`

	// LogFormat is console or json.
	LogFormat string `yaml:"log_format" env:"SCANKIT_LOG_FORMAT"`

	cacheTTL      time.Duration
	probeInterval time.Duration
}

func defaults() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		Store:         "sqlite",
		StorePath:     "scankit.db",
		CacheTTL:      "1h",
		ProbeInterval: "15s",
		LogFormat:     "console",
	}
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist), overlays the environment, and validates the
// result. Unset values keep their defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "reading config %s", path)
		}
		if err == nil {
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "parsing config %s", path)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing environment")
	}

	var err error
	if cfg.cacheTTL, err = str2duration.ParseDuration(cfg.CacheTTL); err != nil {
		return Config{}, errors.Wrapf(err, "invalid cache_ttl %q", cfg.CacheTTL)
	}
	if cfg.probeInterval, err = str2duration.ParseDuration(cfg.ProbeInterval); err != nil {
		return Config{}, errors.Wrapf(err, "invalid probe_interval %q", cfg.ProbeInterval)
	}
	switch cfg.Store {
	case "sqlite", "file", "memory", "redis":
	default:
		return Config{}, errors.Newf("unknown store backend %q", cfg.Store)
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return Config{}, errors.Newf("unknown log format %q", cfg.LogFormat)
	}
	return cfg, nil
}

// CacheTTLDuration returns the parsed cache TTL.
func (c Config) CacheTTLDuration() time.Duration { return c.cacheTTL }

// ProbeIntervalDuration returns the parsed probe interval.
func (c Config) ProbeIntervalDuration() time.Duration { return c.probeInterval }
