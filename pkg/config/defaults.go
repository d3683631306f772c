package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	cfg.Broker.ApplyDefaults()
	cfg.Database.ApplyDefaults()
	cfg.Memcached.ApplyDefaults()
	cfg.Store.ApplyDefaults()
	cfg.Worker.ApplyDefaults()

	// The packet-id scheme must agree between the connection pool and the
	// resolvers; setting it in either section enables it in both.
	if cfg.Database.PacketUUID || cfg.Store.PacketUUID {
		cfg.Database.PacketUUID = true
		cfg.Store.PacketUUID = true
	}

	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets Prometheus metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)

	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a fully populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	// Defaults to true so a sustained outage drops exhausted results instead
	// of blocking the queue head. Load honors an explicit false via viper.
	cfg.Worker.DropDefer = true
	return cfg
}
