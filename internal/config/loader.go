package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges an optional TOML file at path on top of the built-in defaults,
// applies environment overrides, and returns the result. An empty path skips
// the file. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from environment variables that
// are set. The unprefixed PORT, DATABASE_URL and REDIS_URL follow platform
// conventions; LAUNCHPAD_* variables take precedence over them.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "LAUNCHPAD_SERVER_PORT")
	setDuration(&cfg.Server.ReadTimeout, "LAUNCHPAD_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "LAUNCHPAD_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "LAUNCHPAD_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "LAUNCHPAD_SERVER_SHUTDOWN_TIMEOUT")

	// ── Database ──
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Database.URL, "LAUNCHPAD_DATABASE_URL")
	setInt(&cfg.Database.MaxConns, "LAUNCHPAD_DATABASE_MAX_CONNS")
	setBool(&cfg.Database.RunMigrations, "LAUNCHPAD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.URL, "LAUNCHPAD_REDIS_URL")
	setDuration(&cfg.Redis.CacheTTL, "LAUNCHPAD_REDIS_CACHE_TTL")
	setDuration(&cfg.Redis.LockTTL, "LAUNCHPAD_REDIS_LOCK_TTL")

	setStr(&cfg.LogLevel, "LAUNCHPAD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
