package transform

import (
	"fmt"

	"flagfold/internal/estree"
	"flagfold/internal/logging"
	"flagfold/internal/registry"
	"flagfold/internal/scope"
)

// ErrMalformedTree is returned, wrapped, for trees that break the input
// contract. It is the only error Transform produces.
var ErrMalformedTree = estree.ErrMalformed

// Engine holds no per-file state; one Engine may serve any number of
// concurrent Transform calls.
type Engine struct {
	reg     *registry.Registry
	dialect estree.Dialect
}

type Option func(*Engine)

// WithRegistry replaces the built-in virtual modules.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) { e.reg = r }
}

// WithDialect forces the shape of emitted nodes instead of detecting it
// per tree.
func WithDialect(d estree.Dialect) Option {
	return func(e *Engine) { e.dialect = d }
}

func New(opts ...Option) *Engine {
	e := &Engine{reg: registry.Default(), dialect: estree.DialectAuto}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Transform mutates root in place. root is a Program or a Babel File.
func (e *Engine) Transform(root estree.Node, opts registry.Options) (*Result, error) {
	prog, err := estree.Program(root)
	if err != nil {
		return nil, err
	}
	an, err := scope.Resolve(prog, e.reg)
	if err != nil {
		return nil, err
	}
	res := &Result{BySpecifier: make(map[string]int)}
	if len(an.Imports) == 0 {
		return res, nil
	}

	d := e.dialect
	if d == estree.DialectAuto {
		d = estree.DetectDialect(root)
	}
	prunable := make(map[*scope.Binding]bool, len(an.Bindings))
	for _, b := range an.Bindings {
		prunable[b] = rewrite(b, opts, d, res)
	}
	prune(prog, an, prunable, res)

	log := logging.L()
	for _, diag := range res.Diagnostics {
		log.Debug("flagfold: binding left untouched", "diagnostic", diag.String())
	}
	log.Debug("flagfold: transformed",
		"rewritten", res.Rewritten,
		"pruned", len(res.Pruned),
		"removed", len(res.Removed))
	return res, nil
}

// TransformJSON decodes a JSON tree, transforms it and encodes the result.
func (e *Engine) TransformJSON(data []byte, opts registry.Options) ([]byte, *Result, error) {
	root, err := estree.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.Transform(root, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := estree.Encode(root)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: encode: %w", err)
	}
	return out, res, nil
}
