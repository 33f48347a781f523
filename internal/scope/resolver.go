package scope

import (
	"strings"

	"flagfold/internal/estree"
	"flagfold/internal/registry"
)

// tsValueNodes are the TypeScript nodes that wrap runtime expressions.
// Namespaces, enums and import aliases are walked by their own cases; every
// other TS* node is type-level and never holds a reference.
var tsValueNodes = map[string]bool{
	"TSAsExpression":            true,
	"TSSatisfiesExpression":     true,
	"TSNonNullExpression":       true,
	"TSTypeAssertion":           true,
	"TSInstantiationExpression": true,
	"TSExportAssignment":        true,
}

type resolver struct {
	reg *registry.Registry
	cur *frame
	an  *Analysis
	err error
}

// Resolve walks program once and returns the tracked imports together with
// every reference that resolves to them.
func Resolve(program estree.Node, reg *registry.Registry) (*Analysis, error) {
	if program.Type() != "Program" {
		return nil, estree.Malformed("resolve: got %q, want Program", program.Type())
	}
	body, ok := program["body"].([]any)
	if !ok {
		return nil, estree.Malformed("Program.body is not a list")
	}
	r := &resolver{reg: reg, an: &Analysis{}}
	r.push(programFrame)
	r.declareImports(body)
	r.hoist(body)
	r.declareLexical(body)
	r.visitKey(program, "body")
	r.pop()
	if r.err != nil {
		return nil, r.err
	}
	return r.an, nil
}

func (r *resolver) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *resolver) push(kind frameKind) {
	r.cur = &frame{kind: kind, parent: r.cur, names: make(map[string]*Binding)}
}

func (r *resolver) pop() { r.cur = r.cur.parent }

func (r *resolver) declareImports(body []any) {
	for i, v := range body {
		n, ok := estree.AsNode(v)
		if !ok || n.Type() != "ImportDeclaration" {
			continue
		}
		src := n.Child("source")
		spec, ok := src["value"].(string)
		if !ok {
			r.fail(estree.Malformed("ImportDeclaration at body[%d] has no string source", i))
			return
		}
		rule, tracked := r.reg.Lookup(spec)
		if k := n.Str("importKind"); k == "type" || k == "typeof" {
			tracked = false
		}
		var imp *Import
		if tracked {
			imp = &Import{Decl: n, Index: i, Specifier: spec, Rule: rule}
			r.an.Imports = append(r.an.Imports, imp)
		}
		for j, sv := range n.List("specifiers") {
			s, ok := estree.AsNode(sv)
			if !ok {
				r.fail(estree.Malformed("import %q: specifier %d is not a node", spec, j))
				return
			}
			local := s.Child("local").Str("name")
			if local == "" {
				r.fail(estree.Malformed("import %q: specifier %d has no local name", spec, j))
				return
			}
			if k := s.Str("importKind"); !tracked || k == "type" || k == "typeof" {
				r.cur.declare(local)
				continue
			}
			b := &Binding{Local: local, Import: imp, SpecIndex: j}
			switch s.Type() {
			case "ImportDefaultSpecifier":
				b.Exported = registry.DefaultExport
			case "ImportNamespaceSpecifier":
				b.Namespace = true
				b.Exported = "*"
			case "ImportSpecifier":
				b.Exported = moduleExportName(s.Child("imported"))
				if b.Exported == "" {
					b.Exported = local
				}
			default:
				r.fail(estree.Malformed("import %q: unexpected specifier %s", spec, s.Type()))
				return
			}
			imp.Bindings = append(imp.Bindings, b)
			r.an.Bindings = append(r.an.Bindings, b)
			r.cur.names[local] = b
		}
	}
}

// moduleExportName reads `imported` of an import specifier, which is an
// Identifier or, for arbitrary module namespace names, a string literal.
func moduleExportName(n estree.Node) string {
	if name := n.Str("name"); name != "" {
		return name
	}
	s, _ := n["value"].(string)
	return s
}

// hoist declares var and function declarations of a function-level
// statement list in the current frame.
func (r *resolver) hoist(stmts []any) {
	for _, v := range stmts {
		if n, ok := estree.AsNode(v); ok {
			r.hoistStmt(n, true)
		}
	}
}

func (r *resolver) hoistStmt(n estree.Node, top bool) {
	switch n.Type() {
	case "VariableDeclaration":
		if n.Str("kind") == "var" {
			for _, d := range n.Nodes("declarations") {
				for _, name := range patternNames(d.Child("id")) {
					r.cur.declare(name)
				}
			}
		}
	case "FunctionDeclaration":
		if top {
			r.cur.declare(n.Child("id").Str("name"))
		}
	case "ExportNamedDeclaration", "ExportDefaultDeclaration":
		if d := n.Child("declaration"); d != nil {
			r.hoistStmt(d, top)
		}
	case "BlockStatement":
		r.hoistList(n, "body")
	case "IfStatement":
		r.hoistList(n, "consequent", "alternate")
	case "ForStatement":
		r.hoistList(n, "init", "body")
	case "ForInStatement", "ForOfStatement":
		r.hoistList(n, "left", "body")
	case "WhileStatement", "DoWhileStatement", "LabeledStatement", "WithStatement":
		r.hoistList(n, "body")
	case "TryStatement":
		r.hoistList(n, "block", "finalizer")
		if h := n.Child("handler"); h != nil {
			r.hoistList(h, "body")
		}
	case "SwitchStatement":
		for _, c := range n.Nodes("cases") {
			r.hoistList(c, "consequent")
		}
	}
}

func (r *resolver) hoistList(n estree.Node, keys ...string) {
	for _, k := range keys {
		if c := n.Child(k); c != nil {
			r.hoistStmt(c, false)
			continue
		}
		for _, c := range n.Nodes(k) {
			r.hoistStmt(c, false)
		}
	}
}

// declareLexical declares let, const, class and function declarations that
// appear directly in stmts.
func (r *resolver) declareLexical(stmts []any) {
	for _, v := range stmts {
		n, ok := estree.AsNode(v)
		if !ok {
			continue
		}
		if n.Is("ExportNamedDeclaration", "ExportDefaultDeclaration") {
			if n = n.Child("declaration"); n == nil {
				continue
			}
		}
		switch n.Type() {
		case "VariableDeclaration":
			if n.Str("kind") == "var" {
				continue
			}
			for _, d := range n.Nodes("declarations") {
				for _, name := range patternNames(d.Child("id")) {
					r.cur.declare(name)
				}
			}
		case "ClassDeclaration", "FunctionDeclaration":
			r.cur.declare(n.Child("id").Str("name"))
		case "TSEnumDeclaration", "TSModuleDeclaration", "TSImportEqualsDeclaration":
			if id := n.Child("id"); id.Type() == "Identifier" {
				r.cur.declare(id.Str("name"))
			}
		}
	}
}

// patternNames lists the names bound by a binding pattern.
func patternNames(p estree.Node) []string {
	var out []string
	var walk func(estree.Node)
	walk = func(p estree.Node) {
		switch p.Type() {
		case "Identifier":
			out = append(out, p.Str("name"))
		case "ObjectPattern":
			for _, prop := range p.Nodes("properties") {
				if prop.Type() == "RestElement" {
					walk(prop.Child("argument"))
					continue
				}
				walk(prop.Child("value"))
			}
		case "ArrayPattern":
			for _, e := range p.Nodes("elements") {
				walk(e)
			}
		case "RestElement":
			walk(p.Child("argument"))
		case "AssignmentPattern":
			walk(p.Child("left"))
		case "TSParameterProperty":
			walk(p.Child("parameter"))
		}
	}
	if p != nil {
		walk(p)
	}
	return out
}

// visitKey visits the node, or every node of the list, stored under key.
func (r *resolver) visitKey(n estree.Node, key string) {
	switch v := n[key].(type) {
	case []any:
		for i, e := range v {
			if c, ok := estree.AsNode(e); ok {
				r.visit(n, key, i, c)
			}
		}
	default:
		if c, ok := estree.AsNode(v); ok {
			r.visit(n, key, -1, c)
		}
	}
}

func (r *resolver) visit(parent estree.Node, key string, idx int, n estree.Node) {
	if r.err != nil {
		return
	}
	switch t := n.Type(); t {
	case "Identifier":
		r.reference(Read, parent, key, idx, n)

	case "ImportDeclaration", "ExportAllDeclaration", "JSXIdentifier", "JSXNamespacedName",
		"PrivateName", "PrivateIdentifier", "MetaProperty",
		"BreakStatement", "ContinueStatement", "DebuggerStatement":

	case "ExportNamedDeclaration":
		// `export { x } from 'm'` names bindings of another module.
		if _, ok := estree.AsNode(n["source"]); ok {
			return
		}
		r.visitKey(n, "declaration")
		for _, s := range n.Nodes("specifiers") {
			if local := s.Child("local"); local.Type() == "Identifier" {
				r.reference(Export, s, "local", -1, local)
			}
		}

	case "MemberExpression", "OptionalMemberExpression":
		r.visitKey(n, "object")
		if n.Bool("computed") {
			r.visitKey(n, "property")
		}

	case "Property", "ObjectProperty":
		if n.Bool("computed") {
			r.visitKey(n, "key")
		}
		r.visitKey(n, "value")

	case "ObjectMethod", "ClassMethod", "ClassPrivateMethod":
		r.visitKey(n, "decorators")
		if n.Bool("computed") {
			r.visitKey(n, "key")
		}
		r.visitFunction(n)

	case "MethodDefinition", "PropertyDefinition", "AccessorProperty",
		"ClassProperty", "ClassPrivateProperty", "ClassAccessorProperty":
		r.visitKey(n, "decorators")
		if n.Bool("computed") {
			r.visitKey(n, "key")
		}
		r.visitKey(n, "value")

	case "LabeledStatement":
		r.visitKey(n, "body")

	case "CallExpression", "OptionalCallExpression", "NewExpression":
		r.callee(n, "callee")
		r.visitKey(n, "arguments")

	case "TaggedTemplateExpression":
		r.callee(n, "tag")
		r.visitKey(n, "quasi")

	case "AssignmentExpression":
		if left := n.Child("left"); left != nil {
			r.pattern(n, "left", -1, left, true)
		}
		r.visitKey(n, "right")

	case "UpdateExpression":
		if arg := n.Child("argument"); arg != nil {
			r.pattern(n, "argument", -1, arg, true)
		}

	case "VariableDeclaration":
		for _, d := range n.Nodes("declarations") {
			if id := d.Child("id"); id != nil {
				r.pattern(d, "id", -1, id, false)
			}
			r.visitKey(d, "init")
		}

	case "FunctionDeclaration", "ArrowFunctionExpression":
		r.visitFunction(n)

	case "FunctionExpression":
		// A named function expression sees its own name in a frame of its own.
		if name := n.Child("id").Str("name"); name != "" {
			r.push(blockFrame)
			r.cur.declare(name)
			r.visitFunction(n)
			r.pop()
			return
		}
		r.visitFunction(n)

	case "ClassDeclaration", "ClassExpression":
		r.visitKey(n, "decorators")
		r.visitKey(n, "superClass")
		r.push(blockFrame)
		r.cur.declare(n.Child("id").Str("name"))
		r.visitKey(n, "body")
		r.pop()

	case "BlockStatement":
		r.push(blockFrame)
		r.declareLexical(n.List("body"))
		r.visitKey(n, "body")
		r.pop()

	case "StaticBlock":
		body := n.List("body")
		r.push(functionFrame)
		r.hoist(body)
		r.declareLexical(body)
		r.visitKey(n, "body")
		r.pop()

	case "ForStatement":
		r.push(blockFrame)
		if init := n.Child("init"); init != nil {
			r.declareLexical([]any{init})
		}
		r.visitKey(n, "init")
		r.visitKey(n, "test")
		r.visitKey(n, "update")
		r.visitKey(n, "body")
		r.pop()

	case "ForInStatement", "ForOfStatement":
		r.push(blockFrame)
		if left := n.Child("left"); left != nil {
			if left.Type() == "VariableDeclaration" {
				r.declareLexical([]any{left})
				r.visit(n, "left", -1, left)
			} else {
				r.pattern(n, "left", -1, left, true)
			}
		}
		r.visitKey(n, "right")
		r.visitKey(n, "body")
		r.pop()

	case "SwitchStatement":
		r.visitKey(n, "discriminant")
		r.push(blockFrame)
		for _, c := range n.Nodes("cases") {
			r.declareLexical(c.List("consequent"))
		}
		r.visitKey(n, "cases")
		r.pop()

	case "CatchClause":
		r.push(blockFrame)
		if p := n.Child("param"); p != nil {
			for _, name := range patternNames(p) {
				r.cur.declare(name)
			}
			r.pattern(n, "param", -1, p, false)
		}
		r.visitKey(n, "body")
		r.pop()

	case "JSXOpeningElement", "JSXClosingElement":
		r.jsxName(n, "name", false)
		r.visitKey(n, "attributes")

	case "JSXAttribute":
		r.visitKey(n, "value")

	case "TSModuleDeclaration":
		r.visitNamespace(n)

	case "TSEnumDeclaration":
		r.visitEnum(n)

	case "TSImportEqualsDeclaration":
		r.importAlias(n)

	default:
		if strings.HasPrefix(t, "TS") && !tsValueNodes[t] {
			return
		}
		for _, k := range n.ChildKeys() {
			r.visitKey(n, k)
		}
	}
}

func (r *resolver) visitFunction(fn estree.Node) {
	r.push(functionFrame)
	params := fn.List("params")
	for _, v := range params {
		if p, ok := estree.AsNode(v); ok {
			for _, name := range patternNames(p) {
				r.cur.declare(name)
			}
		}
	}
	for i, v := range params {
		if p, ok := estree.AsNode(v); ok {
			r.pattern(fn, "params", i, p, false)
		}
	}
	body := fn.Child("body")
	if body != nil && body.Type() == "BlockStatement" {
		// Parameter defaults are evaluated in their own scope and never see
		// declarations of the body.
		stmts := body.List("body")
		r.push(functionFrame)
		r.hoist(stmts)
		r.declareLexical(stmts)
		r.visitKey(body, "body")
		r.pop()
	} else {
		r.visitKey(fn, "body")
	}
	r.pop()
}

// visitNamespace walks the runtime body of `namespace N { ... }`. Nested
// `namespace A.B {}` chains through body.
func (r *resolver) visitNamespace(n estree.Node) {
	if n.Bool("declare") {
		return
	}
	body := n.Child("body")
	switch body.Type() {
	case "TSModuleDeclaration":
		r.visitNamespace(body)
	case "TSModuleBlock":
		stmts := body.List("body")
		r.push(functionFrame)
		r.hoist(stmts)
		r.declareLexical(stmts)
		r.visitKey(body, "body")
		r.pop()
	}
}

// visitEnum visits member initializers. Earlier members are in scope by
// their bare name, so member names shadow outer bindings.
func (r *resolver) visitEnum(n estree.Node) {
	if n.Bool("declare") {
		return
	}
	members := n.Nodes("members")
	if b := n.Child("body"); b != nil {
		members = b.Nodes("members")
	}
	r.push(blockFrame)
	for _, m := range members {
		id := m.Child("id")
		name := id.Str("name")
		if name == "" {
			name, _ = id["value"].(string)
		}
		if name != "" {
			r.cur.declare(name)
		}
	}
	for _, m := range members {
		r.visitKey(m, "initializer")
	}
	r.pop()
}

// importAlias records the leftmost name of `import x = a.b.c`.
func (r *resolver) importAlias(n estree.Node) {
	if n.Str("importKind") == "type" {
		return
	}
	parent, key := n, "moduleReference"
	ref := n.Child(key)
	for ref.Type() == "TSQualifiedName" {
		parent, key = ref, "left"
		ref = ref.Child(key)
	}
	if ref.Type() == "Identifier" {
		r.reference(Alias, parent, key, -1, ref)
	}
}

// pattern walks a binding or assignment pattern. Names bound by declaration
// patterns are declared elsewhere; in assignment patterns (assign == true)
// they are Write references. Defaults and computed keys are expressions.
func (r *resolver) pattern(parent estree.Node, key string, idx int, p estree.Node, assign bool) {
	switch p.Type() {
	case "Identifier":
		if assign {
			r.reference(Write, parent, key, idx, p)
		}
	case "ObjectPattern":
		for _, prop := range p.Nodes("properties") {
			if prop.Type() == "RestElement" {
				r.pattern(prop, "argument", -1, prop.Child("argument"), assign)
				continue
			}
			if prop.Bool("computed") {
				r.visitKey(prop, "key")
			}
			if v := prop.Child("value"); v != nil {
				r.pattern(prop, "value", -1, v, assign)
			}
		}
	case "ArrayPattern":
		for i, v := range p.List("elements") {
			if e, ok := estree.AsNode(v); ok {
				r.pattern(p, "elements", i, e, assign)
			}
		}
	case "RestElement":
		if arg := p.Child("argument"); arg != nil {
			r.pattern(p, "argument", -1, arg, assign)
		}
	case "AssignmentPattern":
		if left := p.Child("left"); left != nil {
			r.pattern(p, "left", -1, left, assign)
		}
		r.visitKey(p, "right")
	case "TSParameterProperty":
		if param := p.Child("parameter"); param != nil {
			r.pattern(p, "parameter", -1, param, assign)
		}
	case "":
	default:
		// Member expressions and other assignable expressions read their parts.
		r.visit(parent, key, idx, p)
	}
}

func (r *resolver) callee(n estree.Node, key string) {
	c := n.Child(key)
	switch {
	case c == nil:
	case c.Type() == "Identifier":
		r.reference(Call, n, key, -1, c)
	default:
		r.visit(n, key, -1, c)
	}
}

// jsxName resolves the element name of a JSX tag. Lower-case names are
// intrinsic elements unless they are the object of a member expression.
func (r *resolver) jsxName(n estree.Node, key string, member bool) {
	c := n.Child(key)
	switch c.Type() {
	case "JSXIdentifier":
		name := c.Str("name")
		if !member && (name == "" || isIntrinsic(name)) {
			return
		}
		r.reference(JSX, n, key, -1, c)
	case "JSXMemberExpression":
		r.jsxName(c, "object", true)
	}
}

func isIntrinsic(name string) bool {
	return (name[0] >= 'a' && name[0] <= 'z') || strings.Contains(name, "-")
}

func (r *resolver) reference(kind RefKind, parent estree.Node, key string, idx int, id estree.Node) {
	name := id.Str("name")
	if name == "" {
		r.fail(estree.Malformed("%s.%s: identifier without a name", parent.Type(), key))
		return
	}
	b, ok := r.cur.lookup(name)
	if !ok || b == nil {
		return
	}
	b.Sites = append(b.Sites, &Site{Kind: kind, Ident: id, Parent: parent, Key: key, Index: idx})
}
