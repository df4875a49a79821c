// Package logging provides structured logging for LibreLauncher.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Attribute keys shared by log lines across packages.
const (
	KeyGame = "game"
	KeyTask = "task"
	KeyKind = "kind"
	KeyPath = "path"
)

// Config holds logging configuration.
type Config struct {
	Format string // "json" or "text"
	Level  string // "debug", "info", "warn", "error"
	Output io.Writer

	// ShortPaths rewrites the home directory prefix of game and path
	// attributes to "~".
	ShortPaths bool
}

// DefaultConfig returns sensible logging defaults.
func DefaultConfig() Config {
	return Config{
		Format:     "text",
		Level:      "info",
		ShortPaths: true,
	}
}

var logger *slog.Logger

// Setup initializes the global logger with the given configuration.
func Setup(cfg Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.ShortPaths {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			opts.ReplaceAttr = shortenPaths(home)
		}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func shortenPaths(home string) func([]string, slog.Attr) slog.Attr {
	prefix := filepath.Clean(home) + string(filepath.Separator)
	return func(_ []string, a slog.Attr) slog.Attr {
		if a.Key != KeyGame && a.Key != KeyPath {
			return a
		}
		if s, ok := a.Value.Any().(string); ok && strings.HasPrefix(s, prefix) {
			return slog.String(a.Key, "~"+string(filepath.Separator)+s[len(prefix):])
		}
		return a
	}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, or the default if not set up.
func Get() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// Game returns a logger tagged with a game's executable path.
func Game(key string) *slog.Logger {
	return Get().With(KeyGame, key)
}

// Task returns a logger for one background unit working on a game.
func Task(kind, id, key string) *slog.Logger {
	return Get().With(KeyKind, kind, KeyTask, id, KeyGame, key)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}
