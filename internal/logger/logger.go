package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
	DefaultFileName   = "longrun.log"
)

// Config describes the logging destination for the daemon.
// With Dir empty, logs go to stderr with a colored handler (interactive use).
// With Dir set, logs go to a rotated file under it.
type Config struct {
	Level      string `toml:"level" mapstructure:"level"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	FileName   string `toml:"file_name" mapstructure:"file_name"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the logger described by c. The returned closer is nil
// for the stderr destination; for file output it closes the rotated file.
func (c Config) NewLogger() (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}

	if c.Dir == "" {
		return slog.New(NewColorTextHandler(os.Stderr, opts)), nil, nil
	}

	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, nil, err
	}
	name := c.FileName
	if name == "" {
		name = DefaultFileName
	}
	w := &lj.Logger{
		Filename:   filepath.Join(c.Dir, name),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return slog.New(slog.NewTextHandler(w, opts)), w, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
