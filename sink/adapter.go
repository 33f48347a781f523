package sink

import (
	"fmt"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/estree"
)

// Output is one transformed tree on its way out of the pipeline.
type Output struct {
	Rel    string // path relative to the source root
	Tree   estree.Node
	Result *apiv1.Response // counts and diagnostics; may be nil
}

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific YAML ⇒ struct
	Push(Output) error   // may be called from several workers at once
	Close() error        // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
