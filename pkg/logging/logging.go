// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pario-ai/flowstat/pkg/config"
)

// Setup applies cfg to the standard logrus logger. Logs go to stderr, or to
// a rotating file when cfg.File is set. The returned closer flushes the file.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	return configure(log.StandardLogger(), cfg)
}

func configure(logger *log.Logger, cfg config.LogConfig) (io.Closer, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File == "" {
		logger.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	logger.SetOutput(rotator)
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
