// Package config loads service settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scrum/internal/util"
)

// Config holds the settings shared by the CLI and the HTTP server.
type Config struct {
	Addr        string        `yaml:"addr"`
	DBPath      string        `yaml:"db_path"`
	StaticDir   string        `yaml:"static_dir"`
	StrictNames bool          `yaml:"strict_names"`
	LogLevel    string        `yaml:"log_level"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "data/scrum.db",
		StaticDir:   "web/dist",
		StrictNames: true,
		LogLevel:    "info",
		LockTimeout: 5 * time.Second,
	}
}

// Load starts from Default, overlays the YAML file at path when it exists and
// finally applies SCRUM_* environment variables. An empty path skips the file.
// The result is not validated; callers apply their own overrides and then call
// Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = util.EnvOrDefault("SCRUM_ADDR", c.Addr)
	c.DBPath = util.EnvOrDefault("SCRUM_DB_PATH", c.DBPath)
	c.StaticDir = util.EnvOrDefault("SCRUM_STATIC_DIR", c.StaticDir)
	c.StrictNames = util.EnvBoolOrDefault("SCRUM_STRICT_NAMES", c.StrictNames)
	c.LogLevel = util.EnvOrDefault("SCRUM_LOG_LEVEL", c.LogLevel)
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative")
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
