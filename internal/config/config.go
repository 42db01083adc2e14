package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "tasks.db"

	envConfigPath = "TASKER_CONFIG"
	envListenAddr = "TASKER_LISTEN_ADDR"
	envDBPath     = "TASKER_DB_PATH"
	envLogLevel   = "TASKER_LOG_LEVEL"
)

// Config holds application configuration. Values are layered: defaults, then
// an optional TOML file, then environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	ListenAddr string `toml:"listen-addr"`
	DBPath     string `toml:"db-path"`
	LogLevel   string `toml:"log-level"`
}

// Load builds the configuration. path names a TOML file; when empty,
// TASKER_CONFIG is consulted, and when that is unset too no file is read.
// A named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
	}

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	meta, err := toml.Decode(string(data), &fc)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parse config file %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("listen-addr") {
		cfg.ListenAddr = strings.TrimSpace(fc.ListenAddr)
	}
	if meta.IsDefined("db-path") {
		cfg.DBPath = strings.TrimSpace(fc.DBPath)
	}
	if meta.IsDefined("log-level") {
		cfg.LogLevel = ParseLogLevel(fc.LogLevel)
	}
	return nil
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
