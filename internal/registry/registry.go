// Package registry maps virtual module specifiers to the rules that replace
// their exports. Lookups are exact string matches on the import source;
// nothing is ever resolved against a filesystem.
package registry

import (
	"fmt"
	"sort"
)

const (
	CacheEnabledModule = "@startupjs/cache/enabled"
	DebugModule        = "@startupjs/debug"

	DefaultExport   = "default"
	IncrementExport = "__increment"
	DecrementExport = "__decrement"

	// OptionObserverCache turns the cache flag on when set to boolean true.
	OptionObserverCache = "observerCache"
)

// Kind tells literal replacements apart from stubs.
type Kind int

const (
	KindLiteral Kind = iota
	KindStub
)

// Replacement is what every reference to an export turns into.
type Replacement struct {
	Kind  Kind
	Value any // bool, float64, int, string or nil; only for KindLiteral
}

// Literal replaces references with a constant.
func Literal(v any) Replacement { return Replacement{Kind: KindLiteral, Value: v} }

// Stub replaces references with a no-op function.
var Stub = Replacement{Kind: KindStub}

func (r Replacement) String() string {
	if r.Kind == KindStub {
		return "stub"
	}
	return fmt.Sprintf("literal(%v)", r.Value)
}

// Resolver computes the replacement of one export. It must be total: every
// Options value, including nil, yields a replacement.
type Resolver func(Options) Replacement

// ModuleRule is the set of exports a virtual module provides.
type ModuleRule struct {
	Specifier string
	exports   map[string]Resolver
}

// NewRule copies exports, so later changes to the map do not leak into
// the rule.
func NewRule(specifier string, exports map[string]Resolver) *ModuleRule {
	cp := make(map[string]Resolver, len(exports))
	for name, fn := range exports {
		cp[name] = fn
	}
	return &ModuleRule{Specifier: specifier, exports: cp}
}

// Resolve returns the replacement for export, or false when the module does
// not declare it.
func (m *ModuleRule) Resolve(export string, opts Options) (Replacement, bool) {
	fn, ok := m.exports[export]
	if !ok {
		return Replacement{}, false
	}
	return fn(opts), true
}

// Exports lists the declared export names in sorted order.
func (m *ModuleRule) Exports() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	rules map[string]*ModuleRule
}

// New builds a registry; a later rule for the same specifier wins.
func New(rules ...*ModuleRule) *Registry {
	r := &Registry{rules: make(map[string]*ModuleRule, len(rules))}
	for _, rule := range rules {
		r.rules[rule.Specifier] = rule
	}
	return r
}

func (r *Registry) Lookup(specifier string) (*ModuleRule, bool) {
	rule, ok := r.rules[specifier]
	return rule, ok
}

func (r *Registry) Specifiers() []string {
	out := make([]string, 0, len(r.rules))
	for s := range r.rules {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var builtin = New(
	NewRule(CacheEnabledModule, map[string]Resolver{
		DefaultExport: func(o Options) Replacement {
			return Literal(o.Enabled(OptionObserverCache))
		},
	}),
	// Instrumentation is always compiled out; an option that keeps it would
	// only need different resolvers here.
	NewRule(DebugModule, map[string]Resolver{
		IncrementExport: func(Options) Replacement { return Stub },
		DecrementExport: func(Options) Replacement { return Stub },
	}),
)

// Default returns the built-in registry.
func Default() *Registry { return builtin }
