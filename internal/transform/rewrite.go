package transform

import (
	"flagfold/internal/estree"
	"flagfold/internal/registry"
	"flagfold/internal/scope"
)

// rewrite replaces every rewritable site of b and reports whether b is
// known to its module rule, which makes it a pruning candidate.
func rewrite(b *scope.Binding, opts registry.Options, d estree.Dialect, res *Result) bool {
	if b.Namespace {
		res.note(b, "namespace import left untouched")
		return false
	}
	repl, ok := b.Import.Rule.Resolve(b.Exported, opts)
	if !ok {
		res.note(b, "export not provided by the module")
		return false
	}
	var kept []*scope.Site
	for _, s := range b.Sites {
		if !s.Kind.Rewritable() {
			kept = append(kept, s)
			res.note(b, s.Kind.String()+" reference kept")
			continue
		}
		// A stub in call position becomes `(function () {})(args...)`: the
		// arguments still run, the hook does not.
		s.Replace(replacement(repl, d))
		if s.Kind == scope.Read {
			expandShorthand(s)
		}
		res.Rewritten++
		res.BySpecifier[b.Import.Specifier]++
	}
	b.Sites = kept
	return true
}

// replacement builds a fresh node per site; nodes are never shared between
// two places in the tree.
func replacement(r registry.Replacement, d estree.Dialect) estree.Node {
	if r.Kind == registry.KindStub {
		return d.Noop()
	}
	return d.Literal(r.Value)
}

// expandShorthand turns `{ flag }` into `{ flag: <value> }` once the value
// no longer matches the key.
func expandShorthand(s *scope.Site) {
	if s.Key != "value" || !s.Parent.Is("Property", "ObjectProperty") || !s.Parent.Bool("shorthand") {
		return
	}
	s.Parent["shorthand"] = false
	switch extra := s.Parent["extra"].(type) {
	case map[string]any:
		delete(extra, "shorthand")
	case estree.Node:
		delete(extra, "shorthand")
	}
}

// prune drops bindings with no remaining references and then import
// declarations with no remaining specifiers.
func prune(prog estree.Node, an *scope.Analysis, prunable map[*scope.Binding]bool, res *Result) {
	drop := make(map[int]bool)
	for _, imp := range an.Imports {
		gone := make(map[int]bool)
		for _, b := range imp.Bindings {
			if prunable[b] && len(b.Sites) == 0 {
				gone[b.SpecIndex] = true
				res.Pruned = append(res.Pruned, imp.Specifier+":"+b.Exported+" as "+b.Local)
			}
		}
		specs := imp.Decl.List("specifiers")
		if len(gone) > 0 {
			left := make([]any, 0, len(specs)-len(gone))
			for i, s := range specs {
				if !gone[i] {
					left = append(left, s)
				}
			}
			imp.Decl["specifiers"] = left
			specs = left
		}
		if len(specs) == 0 {
			drop[imp.Index] = true
			res.Removed = append(res.Removed, imp.Specifier)
		}
	}
	if len(drop) == 0 {
		return
	}
	body := prog.List("body")
	left := make([]any, 0, len(body)-len(drop))
	for i, st := range body {
		if !drop[i] {
			left = append(left, st)
		}
	}
	prog["body"] = left
}
