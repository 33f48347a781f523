package dir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flagfold/internal/estree"
	"flagfold/sink"
)

type Config struct {
	Out    string `yaml:"out"`
	Indent bool   `yaml:"indent"`
}

// driver mirrors every tree to Out/Rel. Files are written through a temp
// file and renamed, so a watcher on Out never sees half a tree.
type driver struct {
	cfg Config
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("dir-sink: expected Config, got %T", raw)
	}
	if c.Out == "" {
		return errors.New("dir-sink: out is required")
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(o sink.Output) error {
	target := filepath.Join(d.cfg.Out, filepath.FromSlash(o.Rel))
	if !strings.HasPrefix(target, filepath.Clean(d.cfg.Out)+string(filepath.Separator)) {
		return fmt.Errorf("dir-sink: %q escapes %s", o.Rel, d.cfg.Out)
	}
	var data []byte
	var err error
	if d.cfg.Indent {
		data, err = estree.EncodeIndent(o.Tree, "  ")
	} else {
		data, err = estree.Encode(o.Tree)
	}
	if err != nil {
		return fmt.Errorf("dir-sink: %s: %w", o.Rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("dir-sink: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".flagfold-*")
	if err != nil {
		return fmt.Errorf("dir-sink: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("dir-sink: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dir-sink: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("dir-sink: %w", err)
	}
	return nil
}

func (d *driver) Close() error { return nil }

func init() {
	sink.Register("dir", func() sink.Adapter { return &driver{} })
}
