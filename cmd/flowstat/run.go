package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/pario-ai/flowstat/pkg/config"
	"github.com/pario-ai/flowstat/pkg/logging"
	"github.com/pario-ai/flowstat/pkg/models"
	"github.com/pario-ai/flowstat/pkg/pipeline"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	granularity string
	endpoint    string
	engine      string
}

// loadConfig resolves the config file and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.granularity != "" {
		cfg.Granularity = g.granularity
	}
	if g.endpoint != "" {
		cfg.Endpoint = g.endpoint
	}
	if g.engine != "" {
		cfg.Engine = g.engine
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the state a subcommand needs to run the pipeline.
type session struct {
	ctx     context.Context
	pipe    *pipeline.Pipeline
	records []models.FlowRecord
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// start loads config, sets up logging, installs signal handling and reads
// the input file. The caller must call close.
func (g *globalFlags) start(path string) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	s.closers = append(s.closers, func() { _ = logCloser.Close() })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s.ctx = ctx
	s.closers = append(s.closers, stop)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.pipe = pipeline.New(opts)

	s.records, err = pipeline.Load(path)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func unitName(opts pipeline.Options) string {
	return opts.ReportGranularity.String()
}

func write(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}
