package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the process-wide configuration, resolved once at startup.
type Config struct {
	API      APIConfig      `koanf:"api"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// APIConfig describes the REST backend. URL is the base address without
// the /api suffix; it is normalized by Load.
type APIConfig struct {
	URL               string        `koanf:"url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// RealtimeConfig tunes the websocket transport.
type RealtimeConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Path                 string        `koanf:"path"`
	PingInterval         time.Duration `koanf:"ping_interval"`
	ReadTimeout          time.Duration `koanf:"read_timeout"`
	WriteTimeout         time.Duration `koanf:"write_timeout"`
	BufferSize           int           `koanf:"buffer_size"`
	Reconnect            bool          `koanf:"reconnect"`
	ReconnectDelay       time.Duration `koanf:"reconnect_delay"`
	ReconnectMaxDelay    time.Duration `koanf:"reconnect_max_delay"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	PersistSubscriptions bool          `koanf:"persist_subscriptions"`
}

// StorageConfig selects where the session credentials are persisted.
type StorageConfig struct {
	Driver  string        `koanf:"driver"`
	Path    string        `koanf:"path"`
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig configures the prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// DefaultConfig returns every setting except the API URL, which has no
// sensible default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout:           15 * time.Second,
			RequestsPerSecond: 20,
			Burst:             10,
		},
		Realtime: RealtimeConfig{
			Enabled:              true,
			Path:                 "/ws",
			PingInterval:         30 * time.Second,
			ReadTimeout:          60 * time.Second,
			WriteTimeout:         10 * time.Second,
			BufferSize:           100,
			Reconnect:            true,
			ReconnectDelay:       time.Second,
			ReconnectMaxDelay:    30 * time.Second,
			MaxReconnectAttempts: 0,
		},
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			Path:    "./rentdirect.db",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "rentdirect",
		},
	}
}

// Validate checks everything except the API URL, which Load reports as a
// StartupConfigError.
func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api requests_per_second cannot be negative")
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst <= 0 {
		return fmt.Errorf("api burst must be positive when rate limiting is enabled")
	}

	if c.Realtime.Enabled {
		if !strings.HasPrefix(c.Realtime.Path, "/") {
			return fmt.Errorf("realtime path must start with /")
		}
		if c.Realtime.PingInterval <= 0 {
			return fmt.Errorf("realtime ping interval must be positive")
		}
		if c.Realtime.ReadTimeout <= 0 {
			return fmt.Errorf("realtime read timeout must be positive")
		}
		if c.Realtime.WriteTimeout <= 0 {
			return fmt.Errorf("realtime write timeout must be positive")
		}
		if c.Realtime.BufferSize <= 0 {
			return fmt.Errorf("realtime buffer size must be positive")
		}
		if c.Realtime.Reconnect {
			if c.Realtime.ReconnectDelay <= 0 {
				return fmt.Errorf("realtime reconnect delay must be positive")
			}
			if c.Realtime.ReconnectMaxDelay < c.Realtime.ReconnectDelay {
				return fmt.Errorf("realtime reconnect max delay must not be less than reconnect delay")
			}
			if c.Realtime.MaxReconnectAttempts < 0 {
				return fmt.Errorf("realtime max reconnect attempts cannot be negative")
			}
		}
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path cannot be empty for driver %s", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json")
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace cannot be empty")
	}

	return nil
}

// APIURL is the REST root, base + "/api".
func (c *Config) APIURL() string {
	return c.API.URL + "/api"
}

// SocketURL is the websocket endpoint derived from the base URL.
func (c *Config) SocketURL() (string, error) {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + c.Realtime.Path
	return u.String(), nil
}

// NormalizeBaseURL trims whitespace, trailing slashes and one trailing
// "/api" segment so that both "https://h" and "https://h/api/" map to "https://h".
func NormalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, "/api")
	return strings.TrimRight(s, "/")
}
