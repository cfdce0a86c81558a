package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var errConfigRequired = errors.New("config is required")

const (
	logMaxSizeMB = 10
	logMaxFiles  = 5
)

// newLogger builds the JSON logger for cfg. When cfg.LogFile is set the
// stream is duplicated into a size-rotated file; the returned close func
// releases it.
func newLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, func() error, error) {
	closer := func() error { return nil }
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxFiles,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating.Close
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closer, nil
}
