// Command flagfold folds build-time flag modules out of serialized
// JavaScript syntax trees.
//
//	flagfold transform [-set observerCache=true] [file.ast.json|-]
//	flagfold run [-set k=v] job.yml
//	flagfold serve [-addr :50051] [-metrics :9100] [-job watch.yml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"flagfold/internal/config"
	"flagfold/internal/engine"
	"flagfold/internal/estree"
	"flagfold/internal/logging"
	"flagfold/internal/pipeline"
	"flagfold/internal/registry"
	"flagfold/internal/transform"
)

const usage = `usage: flagfold <command> [flags]

commands:
  transform   transform one tree from a file or stdin to stdout
  run         run a batch or watch job file
  serve       serve the transform over gRPC
`

// setFlags collects repeated -set key=value overrides.
type setFlags registry.Options

func (s setFlags) String() string { return fmt.Sprint(map[string]any(s)) }

func (s setFlags) Set(v string) error {
	k, val, ok := registry.ParseAssignment(v)
	if !ok {
		return fmt.Errorf("want key=value, got %q", v)
	}
	s[k] = val
	return nil
}

type common struct {
	configPath string
	sets       setFlags
}

func (c *common) bind(fs *flag.FlagSet) {
	c.sets = setFlags{}
	fs.StringVar(&c.configPath, "config", "flagfold.yml", "config file (.yml or .toml); missing is fine")
	fs.Var(c.sets, "set", "plugin option override key=value (repeatable)")
}

// load reads the config file and applies its log settings and -set
// overrides.
func (c *common) load() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if cfg.Log.Level != "" || cfg.Log.JSON {
		logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	}
	cfg.Options = registry.Options(cfg.Options).Merge(registry.Options(c.sets))
	return cfg, nil
}

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "transform":
		err = runTransform(os.Args[2:], os.Stdin, os.Stdout)
	case "run":
		err = runJob(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "flagfold: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		logging.L().Error("flagfold: "+os.Args[1]+" failed", "err", err)
		os.Exit(1)
	}
}

func runTransform(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	var c common
	c.bind(fs)
	dialect := fs.String("dialect", "", "auto|estree|babel (default from config)")
	indent := fs.Bool("indent", false, "pretty-print the output tree")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *dialect != "" {
		cfg.Dialect = *dialect
	}
	d, err := estree.ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}

	in := stdin
	name := "<stdin>"
	if p := fs.Arg(0); p != "" && p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		in, name = f, p
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	tree, err := estree.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	res, err := transform.New(transform.WithDialect(d)).Transform(tree, cfg.Options)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, diag := range res.Diagnostics {
		logging.L().Warn("flagfold: kept", "file", name, "binding", diag.String())
	}

	var out []byte
	if *indent {
		out, err = estree.EncodeIndent(tree, "  ")
	} else {
		out, err = estree.Encode(tree)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", out)
	return err
}

func runJob(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var c common
	c.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("run: want exactly one job file")
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	r, err := pipeline.Compile(fs.Arg(0), cfg.Options)
	if err != nil {
		return err
	}
	defer r.Close()

	stats, err := r.Run(ctx)
	logging.L().Info("flagfold: job finished",
		"files", stats.Files, "changed", stats.Changed, "failed", stats.Failed)
	return err
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var c common
	c.bind(fs)
	addr := fs.String("addr", "", "gRPC listen address (default from config)")
	metrics := fs.String("metrics", "", "metrics listen address, e.g. :9100")
	job := fs.String("job", "", "job file to run alongside the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}
	if *metrics != "" {
		cfg.Serve.MetricsAddr = *metrics
	}

	e, err := engine.Bootstrap(ctx, engine.Config{
		Serve:   cfg.Serve,
		Options: cfg.Options,
		Dialect: strings.TrimSpace(cfg.Dialect),
		Job:     *job,
	})
	if err != nil {
		return err
	}
	return e.Run(ctx)
}
