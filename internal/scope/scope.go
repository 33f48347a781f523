// Package scope resolves identifier references to the imports of virtual
// modules. Resolution is lexical: a stack of frames is kept while walking
// the tree, each frame's declarations are collected when it is entered
// (so hoisting and temporal dead zones resolve the same way the language
// does), and a reference belongs to an import only when no nearer frame
// declares the same name.
package scope

import (
	"flagfold/internal/estree"
	"flagfold/internal/registry"
)

// RefKind classifies a reference by its syntactic position.
type RefKind int

const (
	Read   RefKind = iota // plain expression position
	Call                  // callee of a call, optional call, new or tagged template
	Write                 // assignment or update target
	Export                // local name of `export { x }`
	JSX                   // JSX element name
	Alias                 // module reference of `import x = y` (TypeScript)
)

func (k RefKind) String() string {
	switch k {
	case Read:
		return "read"
	case Call:
		return "call"
	case Write:
		return "write"
	case Export:
		return "export"
	case JSX:
		return "jsx"
	case Alias:
		return "alias"
	}
	return "unknown"
}

// Rewritable reports whether a site of this kind may be replaced by an
// expression. Writes, re-exports, JSX names and import aliases need an
// identifier.
func (k RefKind) Rewritable() bool { return k == Read || k == Call }

// Site is one reference to a tracked import, with enough context to replace
// it in place.
type Site struct {
	Kind   RefKind
	Ident  estree.Node
	Parent estree.Node
	Key    string
	Index  int // position in Parent[Key] when it is a list, otherwise -1
}

// Replace swaps the referencing identifier for n.
func (s *Site) Replace(n estree.Node) {
	if s.Index >= 0 {
		if l, ok := s.Parent[s.Key].([]any); ok && s.Index < len(l) {
			l[s.Index] = n
			return
		}
	}
	s.Parent[s.Key] = n
}

// Import is a program-level import declaration of a registered module.
type Import struct {
	Decl      estree.Node
	Index     int // position in Program.body
	Specifier string
	Rule      *registry.ModuleRule
	Bindings  []*Binding
}

// Binding is one local name introduced by a tracked import.
type Binding struct {
	Local     string
	Exported  string // "default", "*" for namespaces, otherwise the imported name
	Namespace bool
	Import    *Import
	SpecIndex int // position in Decl.specifiers
	Sites     []*Site
}

// Analysis is the result of one resolution pass.
type Analysis struct {
	Imports  []*Import
	Bindings []*Binding
}

type frameKind int

const (
	programFrame frameKind = iota
	functionFrame
	blockFrame
)

// frame maps declared names to their binding; ordinary declarations map to
// nil, tracked imports to their Binding.
type frame struct {
	kind   frameKind
	parent *frame
	names  map[string]*Binding
}

func (f *frame) declare(name string) {
	if name == "" {
		return
	}
	if _, ok := f.names[name]; !ok {
		f.names[name] = nil
	}
}

func (f *frame) lookup(name string) (*Binding, bool) {
	for g := f; g != nil; g = g.parent {
		if b, ok := g.names[name]; ok {
			return b, true
		}
	}
	return nil, false
}
