// Package config resolves the proxy configuration once at process start.
// Sources are layered, later wins: built-in defaults, an optional YAML file,
// PREFIXPROXY_* environment variables, then command-line flags. The resulting
// Config is treated as immutable for the lifetime of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 1234
	DefaultBackendURL     = "http://localhost:12345"
	DefaultRequestTimeout = 300 * time.Second
)

// Config holds all proxy settings.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	BackendURL      string        `yaml:"backend_url"`
	BackendAPIKey   string        `yaml:"backend_api_key"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	StripTimestamps bool          `yaml:"strip_timestamps"`
	StripMessageIDs bool          `yaml:"strip_message_ids"`
	CaptureLog      string        `yaml:"capture_log"`
	Verbose         bool          `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		BackendURL:      DefaultBackendURL,
		RequestTimeout:  DefaultRequestTimeout,
		StripTimestamps: true,
		StripMessageIDs: true,
	}
}

// fileConfig mirrors Config with optional fields so a partial YAML file only
// overrides what it names. request_timeout is a string to accept duration
// syntax ("90s", "5m") or bare seconds.
type fileConfig struct {
	Host            *string `yaml:"host"`
	Port            *int    `yaml:"port"`
	BackendURL      *string `yaml:"backend_url"`
	BackendAPIKey   *string `yaml:"backend_api_key"`
	RequestTimeout  *string `yaml:"request_timeout"`
	StripTimestamps *bool   `yaml:"strip_timestamps"`
	StripMessageIDs *bool   `yaml:"strip_message_ids"`
	CaptureLog      *string `yaml:"capture_log"`
	Verbose         *bool   `yaml:"verbose"`
}

// LoadFile overlays values from a YAML file onto c. Fields absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Host != nil {
		c.Host = *fc.Host
	}
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.BackendURL != nil {
		c.BackendURL = *fc.BackendURL
	}
	if fc.BackendAPIKey != nil {
		c.BackendAPIKey = *fc.BackendAPIKey
	}
	if fc.RequestTimeout != nil {
		d, err := parseDuration(*fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse config file %s: request_timeout: %w", path, err)
		}
		c.RequestTimeout = d
	}
	if fc.StripTimestamps != nil {
		c.StripTimestamps = *fc.StripTimestamps
	}
	if fc.StripMessageIDs != nil {
		c.StripMessageIDs = *fc.StripMessageIDs
	}
	if fc.CaptureLog != nil {
		c.CaptureLog = *fc.CaptureLog
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
	return nil
}

// ApplyEnv overlays PREFIXPROXY_* environment variables onto c.
func (c *Config) ApplyEnv() {
	c.Host = envOrDefault("PREFIXPROXY_HOST", c.Host)
	c.Port = envInt("PREFIXPROXY_PORT", c.Port)
	c.BackendURL = envOrDefault("PREFIXPROXY_BACKEND_URL", c.BackendURL)
	c.BackendAPIKey = envOrDefault("PREFIXPROXY_BACKEND_API_KEY", c.BackendAPIKey)
	c.RequestTimeout = envDuration("PREFIXPROXY_REQUEST_TIMEOUT", c.RequestTimeout)
	c.StripTimestamps = envBool("PREFIXPROXY_STRIP_TIMESTAMPS", c.StripTimestamps)
	c.StripMessageIDs = envBool("PREFIXPROXY_STRIP_MESSAGE_IDS", c.StripMessageIDs)
	c.CaptureLog = envOrDefault("PREFIXPROXY_CAPTURE_LOG", c.CaptureLog)
	c.Verbose = envBool("PREFIXPROXY_VERBOSE", c.Verbose)
}

// DefaultFromEnv is Default followed by ApplyEnv.
func DefaultFromEnv() *Config {
	c := Default()
	c.ApplyEnv()
	return c
}

// Validate reports obviously unusable settings before the server starts.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend_url must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration accepts a Go duration string ("300s", "5m") or a bare number of
// seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := parseDuration(v); err == nil {
		return d
	}
	return fallback
}

func parseDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", v)
}
