package estree

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed reports a tree that breaks the input contract.
var ErrMalformed = errors.New("malformed syntax tree")

// Malformed wraps ErrMalformed with a description of the offending node.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Node is one ESTree node. Child nodes are stored either as Node or as the
// plain map[string]any produced by the JSON decoder; AsNode accepts both.
type Node map[string]any

// AsNode reports whether v is a node (an object carrying a "type").
func AsNode(v any) (Node, bool) {
	var n Node
	switch m := v.(type) {
	case Node:
		n = m
	case map[string]any:
		n = Node(m)
	default:
		return nil, false
	}
	if n == nil || n.Type() == "" {
		return nil, false
	}
	return n, true
}

func (n Node) Type() string {
	s, _ := n["type"].(string)
	return s
}

// Is reports whether the node type is one of types.
func (n Node) Is(types ...string) bool {
	t := n.Type()
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (n Node) Str(key string) string {
	s, _ := n[key].(string)
	return s
}

func (n Node) Bool(key string) bool {
	b, _ := n[key].(bool)
	return b
}

// Child returns the node stored under key, or nil.
func (n Node) Child(key string) Node {
	c, _ := AsNode(n[key])
	return c
}

// List returns the slice stored under key, or nil.
func (n Node) List(key string) []any {
	l, _ := n[key].([]any)
	return l
}

// Nodes returns the nodes stored in the list under key, skipping holes
// (array pattern elisions are encoded as null).
func (n Node) Nodes(key string) []Node {
	l := n.List(key)
	out := make([]Node, 0, len(l))
	for _, v := range l {
		if c, ok := AsNode(v); ok {
			out = append(out, c)
		}
	}
	return out
}

// skipKeys never hold expressions or declarations the transform cares about.
var skipKeys = map[string]bool{
	"type":                true,
	"loc":                 true,
	"range":               true,
	"start":               true,
	"end":                 true,
	"extra":               true,
	"comments":            true,
	"tokens":              true,
	"leadingComments":     true,
	"trailingComments":    true,
	"innerComments":       true,
	"typeAnnotation":      true,
	"returnType":          true,
	"typeParameters":      true,
	"superTypeParameters": true,
	"typeArguments":       true,
	"predicate":           true,
}

// ChildKeys lists the keys of n that may hold child nodes, sorted so that
// traversal order is stable across runs.
func (n Node) ChildKeys() []string {
	keys := make([]string, 0, len(n))
	for k, v := range n {
		if skipKeys[k] {
			continue
		}
		switch v.(type) {
		case Node, map[string]any, []any:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Program returns the Program node of a tree rooted at either a Program or
// a Babel File.
func Program(root Node) (Node, error) {
	switch root.Type() {
	case "Program":
		return root, nil
	case "File":
		p := root.Child("program")
		if p == nil || p.Type() != "Program" {
			return nil, Malformed("File without program")
		}
		return p, nil
	case "":
		return nil, Malformed("root has no type")
	default:
		return nil, Malformed("root is %s, want Program or File", root.Type())
	}
}
