package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "taskboard.toml"
	DefaultAPIBaseURL     = "http://localhost:5000"
)

type Config struct {
	APIBaseURL            string `toml:"api_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// RedisURL enables the read-through cache in front of the sync
	// client when set.
	RedisURL        string `toml:"redis_url"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	Debug           bool   `toml:"debug"`
}

// LoadOrCreate reads the config file, writing one with defaults when it
// does not exist yet. Environment variables override file values.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	return applyEnv(cfg), nil
}

// RequestTimeout returns the HTTP client timeout, zero meaning the
// platform default.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("TASKBOARD_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("TASKBOARD_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("TASKBOARD_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSeconds = n
		}
	}
	if v, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = v
	}
	return cfg
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		APIBaseURL:            DefaultAPIBaseURL,
		RequestTimeoutSeconds: 30,
		CacheTTLSeconds:       300,
	}
}
