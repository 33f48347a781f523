package stdout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"flagfold/internal/estree"
	"flagfold/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	Indent       bool `yaml:"indent"`        // pretty-print trees
	PrintSummary bool `yaml:"print_summary"` // "// [000001] rel ..." before each tree

	// Writer defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // guards w+seq; one tree is written at a time
	w   *bufio.Writer
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Writer == nil {
		c.Writer = os.Stdout
	}
	d.cfg = c
	d.w = bufio.NewWriter(c.Writer)
	return nil
}

func (d *driver) Push(o sink.Output) error {
	var data []byte
	var err error
	if d.cfg.Indent {
		data, err = estree.EncodeIndent(o.Tree, "  ")
	} else {
		data, err = estree.Encode(o.Tree)
	}
	if err != nil {
		return fmt.Errorf("stdout-sink: %s: %w", o.Rel, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.cfg.PrintSummary && o.Result != nil {
		fmt.Fprintf(d.w, "// [%06d] %s rewritten=%d pruned=%d removed=%v\n",
			d.seq, o.Rel, o.Result.Rewritten, len(o.Result.Pruned), o.Result.Removed)
		for _, diag := range o.Result.Diagnostics {
			fmt.Fprintf(d.w, "//   kept %s\n", diag)
		}
	}
	_, _ = d.w.Write(data)
	_ = d.w.WriteByte('\n')
	return d.w.Flush()
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return nil
	}
	return d.w.Flush()
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
