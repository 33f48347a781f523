package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"flagfold/internal/config"
	"flagfold/internal/estree"
	"flagfold/internal/registry"
	"flagfold/internal/transform"
	"flagfold/sink"
	"flagfold/sink/dir"
	"flagfold/sink/stdout"
	"flagfold/source"

	// drivers register themselves
	_ "flagfold/source/fs"
)

// Compile loads a job file and wires its source, transform client and
// sinks. overrides are applied on top of the job's options.
func Compile(path string, overrides registry.Options) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, r, overrides); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, r *Runner, overrides registry.Options) error {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	/*──────── source ───────*/
	src, err := source.NewAdapter(cfg.Source.Kind)
	if err != nil {
		return err
	}
	if err = src.Configure(source.Config{
		Roots:    cfg.Source.Roots,
		Suffix:   cfg.Source.Suffix,
		Watch:    cfg.Source.Watch,
		Debounce: time.Duration(cfg.Source.DebounceMS) * time.Millisecond,
	}); err != nil {
		return err
	}
	r.SetSource(src)

	/*──────── transform ───────*/
	r.SetOptions(registry.Options(cfg.Options).Merge(overrides))
	r.SetWorkers(cfg.Workers)
	if addr := cfg.Remote.Address; addr != "" {
		cli, err := transform.NewGRPCClient(addr)
		if err != nil {
			return fmt.Errorf("remote %s: %w", addr, err)
		}
		r.SetClient(cli, time.Duration(cfg.Remote.TimeoutMS)*time.Millisecond)
	} else {
		d, err := estree.ParseDialect(cfg.Dialect)
		if err != nil {
			return err
		}
		r.SetClient(transform.NewInProcessClient(transform.New(transform.WithDialect(d))), 0)
	}

	/*──────── sinks ───────*/
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{
				Indent:       cfg.SinkConfigs.Stdout.Indent,
				PrintSummary: cfg.SinkConfigs.Stdout.PrintSummary,
			})
		case "dir":
			out := cfg.SinkConfigs.Dir.Out
			if cfg.Source.Watch && insideAny(out, cfg.Source.Roots) {
				err = fmt.Errorf("dir sink %s lies inside a watched root", out)
				break
			}
			err = sDrv.Configure(dir.Config{Out: out, Indent: cfg.SinkConfigs.Dir.Indent})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return err
		}
		r.AddSink(sDrv)
	}
	return nil
}

func insideAny(p string, roots []string) bool {
	p = filepath.Clean(p)
	for _, r := range roots {
		r = filepath.Clean(r)
		if p == r || strings.HasPrefix(p, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
