// Package config loads Matchlight client settings from the environment and
// an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default base URLs. Search still runs against the v1 API.
const (
	DefaultEndpoint       = "https://api.matchlig.ht/api/v2"
	DefaultSearchEndpoint = "https://api.matchlig.ht/api/v1"
)

// DefaultMaxRetries is used when MaxRetries is left at zero.
const DefaultMaxRetries = 5

// Environment variables for the credential pair.
const (
	EnvAccessKey = "MATCHLIGHT_ACCESS_KEY"
	EnvSecretKey = "MATCHLIGHT_SECRET_KEY"
)

// Config holds all configuration values.
type Config struct {
	// Credentials
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// Endpoints
	Endpoint       string `yaml:"endpoint"`
	SearchEndpoint string `yaml:"search_endpoint"`

	// Transport
	HTTPSProxy    string        `yaml:"https_proxy"`
	Insecure      bool          `yaml:"insecure"`
	Timeout       time.Duration `yaml:"-"`
	SearchTimeout time.Duration `yaml:"-"`
	MaxRetries    int           `yaml:"max_retries"` // 0 means DefaultMaxRetries, negative disables retries
	RateLimit     float64       `yaml:"rate_limit"`  // requests per second, 0 disables

	// Feed exports
	FeedPollInterval time.Duration `yaml:"-"`
	FeedMaxPolls     int           `yaml:"feed_max_polls"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Default returns the built-in settings with no credentials.
func Default() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		SearchEndpoint:   DefaultSearchEndpoint,
		Timeout:          5 * time.Second,
		SearchTimeout:    90 * time.Second,
		MaxRetries:       DefaultMaxRetries,
		FeedPollInterval: time.Second,
		FeedMaxPolls:     600,
		LogLevel:         slog.LevelInfo,
	}
}

// Load reads configuration from environment variables on top of Default.
func Load() Config {
	def := Default()
	return Config{
		AccessKey: os.Getenv(EnvAccessKey),
		SecretKey: os.Getenv(EnvSecretKey),

		Endpoint:       getEnv("MATCHLIGHT_ENDPOINT", def.Endpoint),
		SearchEndpoint: getEnv("MATCHLIGHT_SEARCH_ENDPOINT", def.SearchEndpoint),

		HTTPSProxy:    getEnv("MATCHLIGHT_HTTPS_PROXY", ""),
		Insecure:      getEnv("MATCHLIGHT_INSECURE", "false") == "true",
		Timeout:       getDuration("MATCHLIGHT_TIMEOUT", def.Timeout),
		SearchTimeout: getDuration("MATCHLIGHT_SEARCH_TIMEOUT", def.SearchTimeout),
		MaxRetries:    getInt("MATCHLIGHT_MAX_RETRIES", def.MaxRetries),
		RateLimit:     getFloat("MATCHLIGHT_RATE_LIMIT", 0),

		FeedPollInterval: getDuration("MATCHLIGHT_FEED_POLL_INTERVAL", def.FeedPollInterval),
		FeedMaxPolls:     getInt("MATCHLIGHT_FEED_MAX_POLLS", def.FeedMaxPolls),

		LogFile:  getEnv("MATCHLIGHT_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("MATCHLIGHT_LOG_LEVEL", "INFO")),
	}
}

// fileConfig mirrors Config with string durations so the YAML stays readable.
type fileConfig struct {
	Config           `yaml:",inline"`
	Timeout          string `yaml:"timeout"`
	SearchTimeout    string `yaml:"search_timeout"`
	FeedPollInterval string `yaml:"feed_poll_interval"`
	LogLevel         string `yaml:"log_level"`
}

// LoadFile overlays the YAML file at path onto base. Keys missing from the
// file, or left empty, keep the value from base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("parse config file: %w", err)
	}

	cfg := base
	overlay(&cfg.AccessKey, fc.AccessKey)
	overlay(&cfg.SecretKey, fc.SecretKey)
	overlay(&cfg.Endpoint, fc.Endpoint)
	overlay(&cfg.SearchEndpoint, fc.SearchEndpoint)
	overlay(&cfg.HTTPSProxy, fc.HTTPSProxy)
	overlay(&cfg.LogFile, fc.LogFile)
	if fc.Insecure {
		cfg.Insecure = true
	}
	if fc.MaxRetries != 0 {
		cfg.MaxRetries = fc.MaxRetries
	}
	if fc.RateLimit > 0 {
		cfg.RateLimit = fc.RateLimit
	}
	if fc.FeedMaxPolls > 0 {
		cfg.FeedMaxPolls = fc.FeedMaxPolls
	}

	durations := []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{fc.Timeout, &cfg.Timeout, "timeout"},
		{fc.SearchTimeout, &cfg.SearchTimeout, "search_timeout"},
		{fc.FeedPollInterval, &cfg.FeedPollInterval, "feed_poll_interval"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return base, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}

	return cfg, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
