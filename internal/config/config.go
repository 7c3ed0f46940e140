// Package config manages lacpd daemon configuration using koanf/v2.
//
// Supports YAML files, environment variables, and compiled-in defaults.
// This covers only the daemon's own settings (log level, listen
// addresses, default system priority, tick interval, system MAC, OVSDB
// endpoint); live port and LAG
// configuration comes from the configuration store
// (internal/configstore), not from this package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete lacpd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	LACP      LACPConfig      `koanf:"lacp"`
	OVSDB     OVSDBConfig     `koanf:"ovsdb"`
}

// ServerConfig holds the read-only status/health server configuration.
type ServerConfig struct {
	// Addr is the HTTP listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// LACPConfig holds the system-wide LACP defaults (spec.md §3 "system
// identity", §9 "Global mutable state"). Per-port admin values still
// come from the configuration store.
type LACPConfig struct {
	// SystemPriority is the default actor system priority
	// (original_source/include/lacp_cmn.h DEFAULT_SYSTEM_PRIORITY).
	SystemPriority uint16 `koanf:"system_priority"`

	// TickInterval overrides the 1 Hz timer wheel period (spec.md §4.6);
	// only ever changed for test harnesses.
	TickInterval time.Duration `koanf:"tick_interval"`

	// SystemMAC overrides the actor system_id MAC (spec.md §3 "system
	// identity"). Empty means derive it from the first usable network
	// interface at startup, mirroring ovsdb_if.c's fallback to the
	// bridge MAC when other_config:lacp-system-id is unset.
	SystemMAC string `koanf:"system_mac"`
}

// OVSDBConfig holds the configuration-store connection parameters
// (spec.md §6 "configuration store", original_source/src/ovsdb_if.c).
type OVSDBConfig struct {
	// Endpoint is the OVSDB connection string, e.g.
	// "unix:/var/run/openvswitch/db.sock" or "tcp:127.0.0.1:6640".
	Endpoint string `koanf:"endpoint"`

	// Database is loaded but not consulted: configstore always monitors
	// and writes the database named by configstore.DatabaseName
	// ("Open_vSwitch").
	Database string `koanf:"database"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LACP: LACPConfig{
			SystemPriority: 1,
			TickInterval:   time.Second,
			SystemMAC:      "",
		},
		OVSDB: OVSDBConfig{
			Endpoint: "unix:/var/run/openvswitch/db.sock",
			Database: "Open_vSwitch",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for lacpd configuration.
// Variables are named LACPD_<section>_<key>, e.g., LACPD_SERVER_ADDR.
const envPrefix = "LACPD_"

// Load reads configuration from a YAML file at path, overlays
// environment variable overrides (LACPD_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms LACPD_SERVER_ADDR -> server.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.addr":          defaults.Server.Addr,
		"metrics.addr":         defaults.Metrics.Addr,
		"metrics.path":         defaults.Metrics.Path,
		"log.level":            defaults.Log.Level,
		"log.format":           defaults.Log.Format,
		"lacp.system_priority": defaults.LACP.SystemPriority,
		"lacp.tick_interval":   defaults.LACP.TickInterval.String(),
		"lacp.system_mac":      defaults.LACP.SystemMAC,
		"ovsdb.endpoint":       defaults.OVSDB.Endpoint,
		"ovsdb.database":       defaults.OVSDB.Database,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

var (
	ErrEmptyServerAddr    = errors.New("server.addr must not be empty")
	ErrInvalidSystemPrio  = errors.New("lacp.system_priority must be > 0")
	ErrInvalidTickInterval = errors.New("lacp.tick_interval must be > 0")
	ErrEmptyOVSDBEndpoint = errors.New("ovsdb.endpoint must not be empty")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return ErrEmptyServerAddr
	}
	if cfg.LACP.SystemPriority == 0 {
		return ErrInvalidSystemPrio
	}
	if cfg.LACP.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if cfg.OVSDB.Endpoint == "" {
		return ErrEmptyOVSDBEndpoint
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
