package source

import (
	"context"
	"fmt"
	"time"
)

// Unit is one serialized tree read from the source.
type Unit struct {
	Path string // as found on disk
	Rel  string // relative to its root; sinks mirror it
	Data []byte
}

type EmitFunc func(Unit) error

type Config struct {
	Roots    []string
	Suffix   string
	Watch    bool
	Debounce time.Duration
}

// Adapter feeds trees to the pipeline. Run returns when every unit has been
// emitted, or, in watch mode, when ctx is done.
type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}

// Factory builds an Adapter.
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(kind string, f Factory) {
	registry[kind] = f
}

func NewAdapter(kind string) (Adapter, error) {
	if f, ok := registry[kind]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported kind %q", kind)
}
