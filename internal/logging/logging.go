// Package logging builds the process logger. The dashboard owns the
// terminal, so log lines go to a rotating file; headless runs also echo
// them to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/luki/iothub/internal/config"
)

// Logger is a slog logger plus the file it writes to.
type Logger struct {
	*slog.Logger
	file io.WriteCloser
}

// New creates a text logger writing to cfg.Path. When echo is true every
// line is also written to stderr.
func New(cfg config.LogConfig, echo bool) *Logger {
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	var w io.Writer = file
	if echo {
		w = io.MultiWriter(os.Stderr, file)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	l := &Logger{Logger: slog.New(handler), file: file}
	l.Info("logger initialized", "file", cfg.Path)
	return l
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
