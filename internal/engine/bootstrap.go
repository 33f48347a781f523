package engine

import (
	"context"
	"fmt"

	"flagfold/internal/config"
	"flagfold/internal/estree"
	"flagfold/internal/pipeline"
	"flagfold/internal/registry"
	"flagfold/internal/telemetry"
	"flagfold/internal/transform"
	"flagfold/internal/transport"
)

// Config drives serve mode.
type Config struct {
	Serve   config.ServeCfg
	Options registry.Options // server-side defaults
	Dialect string
	// Job, when set, runs a pipeline job (typically a watch job) next to
	// the gRPC service.
	Job string
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	d, err := estree.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	eng := transform.New(transform.WithDialect(d))

	// 1. transport server
	svc, err := transport.NewService(eng, cfg.Options, cfg.Serve.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	srv, err := transport.StartServer(cfg.Serve.Addr, svc)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 2. pipeline runner
	var runner *pipeline.Runner
	if cfg.Job != "" {
		runner, err = pipeline.Compile(cfg.Job, cfg.Options)
		if err != nil {
			srv.Stop()
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	// 3. metrics
	e := &Engine{transport: srv, runner: runner}
	if cfg.Serve.MetricsAddr != "" {
		e.metrics = telemetry.Expose(cfg.Serve.MetricsAddr)
	}
	return e, nil
}
