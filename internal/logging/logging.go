// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string
	Format string // text or json
	// File enables a rotated copy of the log next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Setup builds a logger for cfg writing to stdout, installs it as the slog and
// log package default, and returns a closer for the rotated file, if any.
func Setup(cfg Config) (*slog.Logger, io.Closer, error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg Config, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer = stdout
		closer io.Closer = nopCloser{}
	)
	if strings.TrimSpace(cfg.File) != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(stdout, rotator)
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	logger := slog.New(handler)
	// Also routes log.Printf output through handler.
	slog.SetDefault(logger)
	return logger, closer, nil
}
