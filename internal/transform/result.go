package transform

import (
	"fmt"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/estree"
	"flagfold/internal/scope"
)

// Diagnostic records a binding, or one reference of it, left untouched.
type Diagnostic struct {
	Specifier string
	Local     string
	Exported  string
	Reason    string
}

func (d Diagnostic) String() string {
	if d.Exported == d.Local {
		return fmt.Sprintf("%s: %s: %s", d.Specifier, d.Local, d.Reason)
	}
	return fmt.Sprintf("%s: %s as %s: %s", d.Specifier, d.Exported, d.Local, d.Reason)
}

type Result struct {
	Rewritten   int
	BySpecifier map[string]int
	// Pruned lists removed bindings as "specifier:exported as local".
	Pruned []string
	// Removed lists the specifiers of import declarations dropped entirely.
	Removed     []string
	Diagnostics []Diagnostic
}

// Changed reports whether the tree was mutated.
func (r *Result) Changed() bool {
	return r.Rewritten > 0 || len(r.Pruned) > 0 || len(r.Removed) > 0
}

func (r *Result) note(b *scope.Binding, reason string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Specifier: b.Import.Specifier,
		Local:     b.Local,
		Exported:  b.Exported,
		Reason:    reason,
	})
}

// Response packs the transformed tree and its result for the wire.
func (r *Result) Response(tree estree.Node) *apiv1.Response {
	resp := &apiv1.Response{
		Tree:        tree,
		Rewritten:   r.Rewritten,
		BySpecifier: r.BySpecifier,
		Pruned:      r.Pruned,
		Removed:     r.Removed,
	}
	for _, d := range r.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, d.String())
	}
	return resp
}
