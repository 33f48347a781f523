package estree

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the node shapes used for emitted nodes.
type Dialect int

const (
	DialectAuto Dialect = iota
	DialectESTree
	DialectBabel
)

func (d Dialect) String() string {
	switch d {
	case DialectESTree:
		return "estree"
	case DialectBabel:
		return "babel"
	default:
		return "auto"
	}
}

// ParseDialect accepts "", "auto", "estree" and "babel".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DialectAuto, nil
	case "estree", "acorn", "espree":
		return DialectESTree, nil
	case "babel":
		return DialectBabel, nil
	}
	return DialectAuto, fmt.Errorf("estree: unknown dialect %q", s)
}

var babelOnly = map[string]bool{
	"File":           true,
	"StringLiteral":  true,
	"NumericLiteral": true,
	"BooleanLiteral": true,
	"NullLiteral":    true,
	"ObjectProperty": true,
	"ObjectMethod":   true,
	"ClassMethod":    true,
	"ClassProperty":  true,
}

// DetectDialect inspects the tree for Babel-only node types. Trees without
// any tell-tale node are treated as plain ESTree.
func DetectDialect(root Node) Dialect {
	if hasBabelNode(root) {
		return DialectBabel
	}
	return DialectESTree
}

func hasBabelNode(n Node) bool {
	if babelOnly[n.Type()] {
		return true
	}
	for _, k := range n.ChildKeys() {
		switch v := n[k].(type) {
		case []any:
			for _, e := range v {
				if c, ok := AsNode(e); ok && hasBabelNode(c) {
					return true
				}
			}
		default:
			if c, ok := AsNode(v); ok && hasBabelNode(c) {
				return true
			}
		}
	}
	return false
}

// Literal builds a literal node for a bool, number, string or nil value.
func (d Dialect) Literal(v any) Node {
	if d == DialectBabel {
		switch x := v.(type) {
		case nil:
			return Node{"type": "NullLiteral"}
		case bool:
			return Node{"type": "BooleanLiteral", "value": x}
		case string:
			return Node{"type": "StringLiteral", "value": x}
		default:
			return Node{"type": "NumericLiteral", "value": x}
		}
	}
	return Node{"type": "Literal", "value": v, "raw": raw(v)}
}

func raw(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// Noop builds `function () {}`.
func (d Dialect) Noop() Node {
	body := Node{"type": "BlockStatement", "body": []any{}}
	if d == DialectBabel {
		body["directives"] = []any{}
	}
	return Node{
		"type":       "FunctionExpression",
		"id":         nil,
		"params":     []any{},
		"body":       body,
		"generator":  false,
		"async":      false,
		"expression": false,
	}
}
