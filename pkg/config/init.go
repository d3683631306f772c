package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is the commented sample written by InitConfig. Its
// values must stay in sync with ApplyDefaults.
const defaultConfigTemplate = `# aprsinject configuration
#
# Every option can be overridden with an environment variable:
#   APRSINJECT_<SECTION>_<KEY>   e.g. APRSINJECT_LOGGING_LEVEL=DEBUG

logging:
  level: INFO          # DEBUG, INFO, WARN, ERROR
  format: text         # text, json
  output: stdout       # stdout, stderr, or a file path

# Maximum time to wait for graceful shutdown.
shutdown_timeout: 30s

broker:
  # STOMP broker host:port list; reconnects rotate through it.
  hosts:
    - localhost:61613
  # login: ""
  # passcode: ""
  # Subscribed firehose destination.
  source: /queue/feeds.aprs.is
  subscription_id: aprsinject
  # Broker-side unacked-frame window.
  prefetch: 1024
  reconnect_wait: 2s

database:
  host: localhost
  port: 3306
  user: openaprs
  password: ""
  database: openaprs
  # UUID packet ids (UUID_TO_BIN schema) instead of auto-increment.
  packet_uuid: false
  conn_max_lifetime: 5m

memcached:
  host: localhost:11211
  # Seconds; applied where no per-record TTL is defined.
  default_ttl: 3600
  # How long cache traffic stays suppressed after a client error.
  breaker_window: 60s

store:
  # Insert-then-reread cycles after a database miss.
  resolve_retries: 3
  resolve_backoff: 3s

worker:
  # Drop a packet after its last deferral instead of blocking the queue.
  drop_defer: true
  max_results_per_pass: 100
  defer_retries: 3
  defer_backoff: 3s
  poll_timeout: 1s
  locator_flush_interval: 5s
  stats_interval: 60s
  emit_interval: 5s
  report_interval: 1h
  # One-character console glyph per processed packet.
  glyphs: false

metrics:
  enabled: false
  port: 9090
`

// InitConfig creates a commented sample configuration file at the default
// location. Returns the path the file was written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a commented sample configuration file at the given
// path. An existing file is only overwritten when force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Restricted permissions: the file carries credential fields.
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
