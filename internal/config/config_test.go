package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrum.yaml")
	content := "addr: \":9090\"\ndb_path: /tmp/x.db\nstrict_names: false\nlog_level: debug\nlock_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCRUM_DB_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.StrictNames || cfg.LockTimeout != 2*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("env must override file, got %q", cfg.DBPath)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Fatalf("level = %v", level)
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	t.Setenv("SCRUM_LOG_LEVEL", "chatty")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid log level")
	}

	cfg.LogLevel = "warn"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("an override must be able to repair the level: %v", err)
	}
}
