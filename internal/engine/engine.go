package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"flagfold/internal/logging"
	"flagfold/internal/pipeline"
	"flagfold/internal/transport"
)

type Engine struct {
	transport *transport.Server
	runner    *pipeline.Runner
	metrics   *http.Server
}

// Run serves until ctx is done, then drains in-flight calls.
func (e *Engine) Run(ctx context.Context) error {
	log := logging.L()
	log.Info("flagfold: serving", "addr", e.transport.Addr().String())

	if e.runner != nil {
		go func() {
			stats, err := e.runner.Run(ctx)
			log.Info("flagfold: job finished",
				"files", stats.Files, "changed", stats.Changed, "failed", stats.Failed)
			if err != nil {
				log.Warn("flagfold: job errors", "err", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		e.transport.Stop()
		if e.runner != nil {
			_ = e.runner.Close()
		}
		if e.metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.metrics.Shutdown(sctx)
		}
	}()

	if err := e.transport.Serve(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
