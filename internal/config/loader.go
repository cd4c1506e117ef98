package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. RENTDIRECT_API_URL.
	EnvPrefix = "RENTDIRECT_"
	// LegacyURLEnv is honored for deployments that share the web client's env file.
	LegacyURLEnv = "VITE_API_URL"
)

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	filePath  string
	envPrefix string
	overrides map[string]any
}

// WithConfigFile reads a YAML file between defaults and the environment.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.filePath = path }
}

// WithEnvPrefix replaces EnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// WithOverrides applies nested values last, above the environment.
// The CLI uses it for flags.
func WithOverrides(values map[string]any) Option {
	return func(o *loadOptions) { o.overrides = values }
}

// Load resolves configuration with precedence defaults < file < env < overrides,
// normalizes the API URL and validates the result. A missing API URL yields
// *StartupConfigError.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	if err := k.Load(mapProvider(defaultsMap()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if o.filePath != "" {
		if err := k.Load(file.Provider(o.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", o.filePath, err)
		}
	}

	if v, ok := os.LookupEnv(LegacyURLEnv); ok && strings.TrimSpace(v) != "" {
		legacy := map[string]any{"api": map[string]any{"url": v}}
		if err := k.Load(mapProvider(legacy), nil); err != nil {
			return nil, fmt.Errorf("load %s: %w", LegacyURLEnv, err)
		}
	}

	prefix := o.envPrefix
	if err := k.Load(env.Provider(prefix, ".", envKey(prefix)), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(o.overrides) > 0 {
		if err := k.Load(mapProvider(o.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.API.URL = NormalizeBaseURL(cfg.API.URL)
	if cfg.API.URL == "" {
		return nil, &StartupConfigError{Key: "api.url", EnvVar: prefix + "API_URL or " + LegacyURLEnv}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKey maps RENTDIRECT_REALTIME_PING_INTERVAL to realtime.ping_interval:
// the first segment is the section, the rest is the field name.
func envKey(prefix string) func(string) string {
	return func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		section, field, found := strings.Cut(s, "_")
		if !found {
			return section
		}
		return section + "." + field
	}
}

func defaultsMap() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"api": map[string]any{
			"url":                 d.API.URL,
			"timeout":             d.API.Timeout.String(),
			"requests_per_second": d.API.RequestsPerSecond,
			"burst":               d.API.Burst,
		},
		"realtime": map[string]any{
			"enabled":                d.Realtime.Enabled,
			"path":                   d.Realtime.Path,
			"ping_interval":          d.Realtime.PingInterval.String(),
			"read_timeout":           d.Realtime.ReadTimeout.String(),
			"write_timeout":          d.Realtime.WriteTimeout.String(),
			"buffer_size":            d.Realtime.BufferSize,
			"reconnect":              d.Realtime.Reconnect,
			"reconnect_delay":        d.Realtime.ReconnectDelay.String(),
			"reconnect_max_delay":    d.Realtime.ReconnectMaxDelay.String(),
			"max_reconnect_attempts": d.Realtime.MaxReconnectAttempts,
			"persist_subscriptions":  d.Realtime.PersistSubscriptions,
		},
		"storage": map[string]any{
			"driver":  d.Storage.Driver,
			"path":    d.Storage.Path,
			"timeout": d.Storage.Timeout.String(),
		},
		"log": map[string]any{
			"level":  d.Log.Level,
			"format": d.Log.Format,
		},
		"metrics": map[string]any{
			"enabled":   d.Metrics.Enabled,
			"namespace": d.Metrics.Namespace,
		},
	}
}
