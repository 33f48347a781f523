package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/estree"
	"flagfold/internal/logging"
	"flagfold/internal/registry"
	"flagfold/internal/telemetry"
	"flagfold/internal/transform"
	"flagfold/sink"
	"flagfold/source"
)

// Stats summarizes one Run.
type Stats struct {
	Files   int
	Changed int
	Failed  int
}

// Runner moves trees from a source through a transform client into sinks.
// Per-file failures are collected and do not stop the run.
type Runner struct {
	source  source.Adapter
	client  transform.Client
	timeout time.Duration
	options registry.Options
	sinks   []sink.Adapter
	workers int

	mu    sync.Mutex // guards stats+errs
	stats Stats
	errs  []error
}

func NewRunner() *Runner { return &Runner{workers: 1} }

func (r *Runner) AddSink(s sink.Adapter)     { r.sinks = append(r.sinks, s) }
func (r *Runner) SetSource(s source.Adapter) { r.source = s }
func (r *Runner) SetOptions(o registry.Options) {
	r.options = o
}

// SetClient picks the transform backend. timeout bounds each call; zero
// means no per-file deadline.
func (r *Runner) SetClient(c transform.Client, timeout time.Duration) {
	r.client = c
	r.timeout = timeout
}

func (r *Runner) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// Run blocks until the source is drained (or ctx is done in watch mode)
// and every in-flight file has been written.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.source == nil {
		return Stats{}, errors.New("runner: no source configured")
	}
	if r.client == nil {
		return Stats{}, errors.New("runner: no transform client configured")
	}
	if err := r.client.Health(ctx); err != nil {
		return Stats{}, fmt.Errorf("runner: transform backend: %w", err)
	}

	swg := sizedwaitgroup.New(r.workers)
	srcErr := r.source.Run(ctx, func(u source.Unit) error {
		if err := swg.AddWithContext(ctx); err != nil {
			return err
		}
		go func() {
			defer swg.Done()
			changed, err := r.process(ctx, u)
			r.record(u, changed, err)
		}()
		return nil
	})
	swg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	errs := append([]error{}, r.errs...)
	if srcErr != nil && !errors.Is(srcErr, context.Canceled) {
		errs = append(errs, fmt.Errorf("source: %w", srcErr))
	}
	return r.stats, errors.Join(errs...)
}

func (r *Runner) process(ctx context.Context, u source.Unit) (bool, error) {
	tree, err := estree.Decode(u.Data)
	if err != nil {
		telemetry.Observe(nil, err, 0)
		return false, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.client.Transform(ctx, &apiv1.Request{
		Filename: u.Rel,
		Tree:     tree,
		Options:  r.options,
	})
	telemetry.Observe(resp, err, time.Since(start))
	if err != nil {
		return false, err
	}

	out := sink.Output{Rel: u.Rel, Tree: resp.Tree, Result: resp}
	for _, s := range r.sinks {
		if err := s.Push(out); err != nil {
			return false, err
		}
	}
	return resp.Changed(), nil
}

func (r *Runner) record(u source.Unit, changed bool, err error) {
	log := logging.L()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Files++
	if err != nil {
		r.stats.Failed++
		r.errs = append(r.errs, fmt.Errorf("%s: %w", u.Path, err))
		log.Warn("pipeline: file failed", "path", u.Path, "err", err)
		return
	}
	if changed {
		r.stats.Changed++
	}
	log.Debug("pipeline: file done", "path", u.Path, "changed", changed)
}

// Close releases the source, the sinks and the client.
func (r *Runner) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	if r.client != nil {
		errs = append(errs, r.client.Close())
	}
	return errors.Join(errs...)
}
