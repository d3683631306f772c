package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfig_CreatesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load of initialized config failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Initialized config failed validation: %v", err)
	}

	// The commented template must stay in sync with programmatic defaults.
	def := GetDefaultConfig()
	if cfg.Worker.ReportInterval != def.Worker.ReportInterval {
		t.Errorf("Template report_interval %v differs from default %v",
			cfg.Worker.ReportInterval, def.Worker.ReportInterval)
	}
	if cfg.Broker.Prefetch != def.Broker.Prefetch {
		t.Errorf("Template prefetch %d differs from default %d",
			cfg.Broker.Prefetch, def.Broker.Prefetch)
	}
	if cfg.Memcached.DefaultTTL != def.Memcached.DefaultTTL {
		t.Errorf("Template default_ttl %d differs from default %d",
			cfg.Memcached.DefaultTTL, def.Memcached.DefaultTTL)
	}
	if cfg.Worker.DropDefer != def.Worker.DropDefer {
		t.Errorf("Template drop_defer %v differs from default %v",
			cfg.Worker.DropDefer, def.Worker.DropDefer)
	}
}

func TestInitConfig_RefusesOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err = InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config file already exists")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("Expected overwrite hint in error, got: %v", err)
	}
}

func TestInitConfig_ForceOverwrites(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err = InitConfig(true)
	if err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}
}

func TestInitConfigToPath_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom", "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of initialized config failed: %v", err)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Expected default database port in initialized config, got %d", cfg.Database.Port)
	}
}
