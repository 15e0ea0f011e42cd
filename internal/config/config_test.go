package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.toml")
	data := `
log_level = "debug"

[server]
port = 9000
shutdown_timeout = "3s"

[redis]
url = "redis://localhost:6379/0"
lock_ttl = "2s"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "")
	t.Setenv("LAUNCHPAD_SERVER_PORT", "9100")
	t.Setenv("DATABASE_URL", "postgres://localhost/launchpad")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected env to override port, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration != 3*time.Second {
		t.Errorf("expected shutdown_timeout=3s, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Redis.LockTTL.Duration != 2*time.Second {
		t.Errorf("expected lock_ttl=2s, got %s", cfg.Redis.LockTTL)
	}
	if cfg.Redis.CacheTTL.Duration != 30*time.Second {
		t.Errorf("expected default cache_ttl to survive, got %s", cfg.Redis.CacheTTL)
	}
	if cfg.Database.URL != "postgres://localhost/launchpad" {
		t.Errorf("expected DATABASE_URL, got %q", cfg.Database.URL)
	}
	lvl, err := cfg.SlogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("expected debug level, got %v (%v)", lvl, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"no shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout.Duration = 0 }},
		{"db without conns", func(c *Config) { c.Database.URL = "postgres://x"; c.Database.MaxConns = 0 }},
		{"redis without lock ttl", func(c *Config) { c.Redis.URL = "redis://x"; c.Redis.LockTTL.Duration = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
