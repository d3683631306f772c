package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format text, got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if len(cfg.Broker.Hosts) == 0 {
		t.Error("Expected default broker host list to be non-empty")
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Expected default database port 3306, got %d", cfg.Database.Port)
	}
	if cfg.Memcached.Host == "" {
		t.Error("Expected default memcached host")
	}
	if cfg.Worker.MaxResultsPerPass != 100 {
		t.Errorf("Expected default max results per pass 100, got %d", cfg.Worker.MaxResultsPerPass)
	}
	if !cfg.Worker.DropDefer {
		t.Error("Expected drop_defer to default to true")
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Port = 3307
	cfg.Worker.DeferRetries = 5

	ApplyDefaults(cfg)

	if cfg.Database.Port != 3307 {
		t.Errorf("Expected explicit database port preserved, got %d", cfg.Database.Port)
	}
	if cfg.Worker.DeferRetries != 5 {
		t.Errorf("Expected explicit defer retries preserved, got %d", cfg.Worker.DeferRetries)
	}
}

func TestApplyDefaults_PacketUUIDAgreement(t *testing.T) {
	cfg := &Config{}
	cfg.Database.PacketUUID = true

	ApplyDefaults(cfg)

	if !cfg.Store.PacketUUID {
		t.Error("Expected store packet_uuid to follow database packet_uuid")
	}

	cfg = &Config{}
	cfg.Store.PacketUUID = true

	ApplyDefaults(cfg)

	if !cfg.Database.PacketUUID {
		t.Error("Expected database packet_uuid to follow store packet_uuid")
	}
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	// Point the default search path at an empty directory.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults when no config file exists, got error: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
logging:
  level: debug
  format: json
shutdown_timeout: 10s
broker:
  hosts:
    - mq1.example.com:61613
    - mq2.example.com:61613
  login: aprs
  passcode: secret
database:
  host: db.example.com
  user: openaprs
  password: hunter2
worker:
  drop_defer: false
  defer_backoff: 1s
metrics:
  enabled: true
  port: 9100
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected log format json, got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
	}
	if len(cfg.Broker.Hosts) != 2 || cfg.Broker.Hosts[0] != "mq1.example.com:61613" {
		t.Errorf("Unexpected broker hosts: %v", cfg.Broker.Hosts)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("Expected database host from file, got %q", cfg.Database.Host)
	}
	// Unset fields still pick up defaults.
	if cfg.Database.Port != 3306 {
		t.Errorf("Expected default database port, got %d", cfg.Database.Port)
	}
	if cfg.Worker.DropDefer {
		t.Error("Expected explicit drop_defer false to be honored")
	}
	if cfg.Worker.DeferBackoff != time.Second {
		t.Errorf("Expected defer backoff 1s, got %v", cfg.Worker.DeferBackoff)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9100 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoad_DropDeferDefaultsTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
worker:
  defer_backoff: 1s
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Worker.DropDefer {
		t.Error("Expected drop_defer to default to true when unset in file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Database.Host = "db.example.com"
	cfg.Worker.Glyphs = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected config file mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load of saved config failed: %v", err)
	}
	if loaded.Database.Host != "db.example.com" {
		t.Errorf("Expected saved database host, got %q", loaded.Database.Host)
	}
	if !loaded.Worker.Glyphs {
		t.Error("Expected saved glyphs setting")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "aprsinject init") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}
