// Package logging builds the zap loggers used by every bgremover command.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Options select the level and the destination of log output.
// An empty Path writes to stderr.
type Options struct {
	Level string
	Path  string
}

// New returns a sugared logger and a flush function the caller defers.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	level := strings.TrimSpace(opts.Level)
	if level == "" {
		level = "info"
	}
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	output := "stderr"
	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		output = path
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomic
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	sugar := logger.Sugar()
	flush := func() {
		// stderr refuses fsync on most terminals
		_ = logger.Sync()
	}
	return sugar, flush, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns logger, or a discarding logger when it is nil.
func OrNop(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return Nop()
	}
	return logger
}
