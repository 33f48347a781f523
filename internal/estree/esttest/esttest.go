// Package esttest builds small ESTree programs for tests.
package esttest

import (
	"strconv"

	"flagfold/internal/estree"
)

type N = estree.Node

func list(ns []N) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		if n == nil {
			out[i] = nil
			continue
		}
		out[i] = n
	}
	return out
}

func Program(body ...N) N {
	return N{"type": "Program", "sourceType": "module", "body": list(body)}
}

func Ident(name string) N { return N{"type": "Identifier", "name": name} }

func Str(s string) N {
	return N{"type": "Literal", "value": s, "raw": strconv.Quote(s)}
}

func Bool(b bool) N {
	return N{"type": "Literal", "value": b, "raw": strconv.FormatBool(b)}
}

// ImportDefault is `import local from 'source'`.
func ImportDefault(local, source string) N {
	return Import(source, N{"type": "ImportDefaultSpecifier", "local": Ident(local)})
}

// ImportNamed is `import { imported as local, ... } from 'source'`; names
// come in (imported, local) pairs.
func ImportNamed(source string, names ...string) N {
	specs := make([]N, 0, len(names)/2)
	for i := 0; i+1 < len(names); i += 2 {
		specs = append(specs, N{
			"type":     "ImportSpecifier",
			"imported": Ident(names[i]),
			"local":    Ident(names[i+1]),
		})
	}
	return Import(source, specs...)
}

func ImportNamespace(local, source string) N {
	return Import(source, N{"type": "ImportNamespaceSpecifier", "local": Ident(local)})
}

func Import(source string, specs ...N) N {
	return N{"type": "ImportDeclaration", "specifiers": list(specs), "source": Str(source)}
}

func ExportConst(name string, init N) N {
	return N{
		"type":        "ExportNamedDeclaration",
		"declaration": Var("const", name, init),
		"specifiers":  []any{},
		"source":      nil,
	}
}

// ExportNames is `export { a, b }`.
func ExportNames(names ...string) N {
	specs := make([]N, len(names))
	for i, name := range names {
		specs[i] = N{"type": "ExportSpecifier", "local": Ident(name), "exported": Ident(name)}
	}
	return N{"type": "ExportNamedDeclaration", "declaration": nil, "specifiers": list(specs), "source": nil}
}

func Var(kind, name string, init N) N {
	return VarPattern(kind, Ident(name), init)
}

func VarPattern(kind string, id, init N) N {
	var iv any
	if init != nil {
		iv = init
	}
	return N{
		"type": "VariableDeclaration",
		"kind": kind,
		"declarations": []any{
			N{"type": "VariableDeclarator", "id": id, "init": iv},
		},
	}
}

func Object(props ...N) N { return N{"type": "ObjectExpression", "properties": list(props)} }

func Prop(key string, value N) N {
	return N{
		"type": "Property", "kind": "init", "method": false, "shorthand": false, "computed": false,
		"key": Ident(key), "value": value,
	}
}

// Shorthand is `{ name }`.
func Shorthand(name string) N {
	p := Prop(name, Ident(name))
	p["shorthand"] = true
	return p
}

func ObjectPattern(props ...N) N { return N{"type": "ObjectPattern", "properties": list(props)} }

func Call(callee N, args ...N) N {
	return N{"type": "CallExpression", "callee": callee, "arguments": list(args), "optional": false}
}

func New(callee N, args ...N) N {
	return N{"type": "NewExpression", "callee": callee, "arguments": list(args)}
}

func Member(object N, prop string) N {
	return N{"type": "MemberExpression", "object": object, "property": Ident(prop), "computed": false, "optional": false}
}

func Assign(left, right N) N {
	return N{"type": "AssignmentExpression", "operator": "=", "left": left, "right": right}
}

func Update(arg N) N {
	return N{"type": "UpdateExpression", "operator": "++", "prefix": false, "argument": arg}
}

func Expr(e N) N { return N{"type": "ExpressionStatement", "expression": e} }

func Return(e N) N { return N{"type": "ReturnStatement", "argument": e} }

func Block(body ...N) N { return N{"type": "BlockStatement", "body": list(body)} }

func If(test, cons N) N {
	return N{"type": "IfStatement", "test": test, "consequent": cons, "alternate": nil}
}

func FuncDecl(name string, params []N, body ...N) N {
	return N{
		"type": "FunctionDeclaration", "id": Ident(name), "params": list(params),
		"body": Block(body...), "generator": false, "async": false, "expression": false,
	}
}

func FuncExpr(name string, params []N, body ...N) N {
	var id any
	if name != "" {
		id = Ident(name)
	}
	return N{
		"type": "FunctionExpression", "id": id, "params": list(params),
		"body": Block(body...), "generator": false, "async": false, "expression": false,
	}
}

func Arrow(params []N, body N) N {
	return N{
		"type": "ArrowFunctionExpression", "id": nil, "params": list(params),
		"body": body, "generator": false, "async": false, "expression": body.Type() != "BlockStatement",
	}
}

func Catch(param N, body ...N) N {
	return N{
		"type":      "TryStatement",
		"block":     Block(),
		"handler":   N{"type": "CatchClause", "param": param, "body": Block(body...)},
		"finalizer": nil,
	}
}

// Default is a parameter with a default value, `left = right`.
func Default(left, right N) N {
	return N{"type": "AssignmentPattern", "left": left, "right": right}
}

// Namespace is `namespace name { body }` in typescript-estree shape.
func Namespace(name string, body ...N) N {
	return N{
		"type": "TSModuleDeclaration", "id": Ident(name), "kind": "namespace",
		"body": N{"type": "TSModuleBlock", "body": list(body)},
	}
}

// Enum is `enum name { members }`; members come from EnumMember.
func Enum(name string, members ...N) N {
	return N{"type": "TSEnumDeclaration", "id": Ident(name), "members": list(members)}
}

func EnumMember(name string, init N) N {
	m := N{"type": "TSEnumMember", "id": Ident(name)}
	if init != nil {
		m["initializer"] = init
	}
	return m
}

// ImportAlias is `import name = ref`.
func ImportAlias(name string, ref N) N {
	return N{
		"type": "TSImportEqualsDeclaration", "id": Ident(name),
		"moduleReference": ref, "importKind": "value", "isExport": false,
	}
}

func Noop() N { return estree.DialectESTree.Noop() }

// Idents returns identifiers for params lists.
func Idents(names ...string) []N {
	out := make([]N, len(names))
	for i, n := range names {
		out[i] = Ident(n)
	}
	return out
}
