package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flagfold/internal/estree"
	et "flagfold/internal/estree/esttest"
	"flagfold/internal/registry"
)

const (
	cacheMod = registry.CacheEnabledModule
	debugMod = registry.DebugModule
)

func resolve(t *testing.T, prog estree.Node) *Analysis {
	t.Helper()
	an, err := Resolve(prog, registry.Default())
	require.NoError(t, err)
	return an
}

func binding(t *testing.T, an *Analysis, local string) *Binding {
	t.Helper()
	for _, b := range an.Bindings {
		if b.Local == local {
			return b
		}
	}
	t.Fatalf("no binding %q", local)
	return nil
}

func kinds(b *Binding) []RefKind {
	out := make([]RefKind, len(b.Sites))
	for i, s := range b.Sites {
		out[i] = s.Kind
	}
	return out
}

func TestResolve_TracksOnlyRegisteredModules(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		et.ImportDefault("React", "react"),
		et.ImportNamed(debugMod, "__increment", "__increment", "__decrement", "dec"),
		et.Expr(et.Call(et.Ident("React"), et.Ident("cacheEnabled"))),
	))

	require.Len(t, an.Imports, 2)
	assert.Equal(t, cacheMod, an.Imports[0].Specifier)
	assert.Equal(t, 0, an.Imports[0].Index)
	assert.Equal(t, debugMod, an.Imports[1].Specifier)
	assert.Equal(t, 2, an.Imports[1].Index)

	require.Len(t, an.Bindings, 3)
	cache := binding(t, an, "cacheEnabled")
	assert.Equal(t, registry.DefaultExport, cache.Exported)
	assert.Equal(t, []RefKind{Read}, kinds(cache))

	dec := binding(t, an, "dec")
	assert.Equal(t, "__decrement", dec.Exported)
	assert.Equal(t, 1, dec.SpecIndex)
	assert.Empty(t, dec.Sites)
}

func TestResolve_RenamedImportResolvesByLocalName(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportNamed(debugMod, "__increment", "inc"),
		et.Expr(et.Call(et.Ident("inc"), et.Ident("x"))),
		et.Expr(et.Call(et.Ident("__increment"))),
	))
	inc := binding(t, an, "inc")
	assert.Equal(t, "__increment", inc.Exported)
	require.Len(t, inc.Sites, 1)
	assert.Equal(t, Call, inc.Sites[0].Kind)
	assert.Equal(t, "callee", inc.Sites[0].Key)
}

func TestResolve_ShadowedNamesAreNotReferences(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		// function f(cacheEnabled) { return cacheEnabled }
		et.FuncDecl("f", et.Idents("cacheEnabled"), et.Return(et.Ident("cacheEnabled"))),
		// function g() { if (x) { let cacheEnabled = true; use(cacheEnabled) } return cacheEnabled }
		et.FuncDecl("g", nil,
			et.If(et.Ident("x"), et.Block(
				et.Var("let", "cacheEnabled", et.Bool(true)),
				et.Expr(et.Call(et.Ident("use"), et.Ident("cacheEnabled"))),
			)),
			et.Return(et.Ident("cacheEnabled")),
		),
		// const h = (cacheEnabled) => cacheEnabled
		et.Var("const", "h", et.Arrow(et.Idents("cacheEnabled"), et.Ident("cacheEnabled"))),
		// try {} catch (cacheEnabled) { cacheEnabled }
		et.Catch(et.Ident("cacheEnabled"), et.Expr(et.Ident("cacheEnabled"))),
		et.Var("const", "top", et.Ident("cacheEnabled")),
	))
	cache := binding(t, an, "cacheEnabled")
	// Only `return cacheEnabled` in g and the top-level initializer resolve.
	assert.Equal(t, []RefKind{Read, Read}, kinds(cache))
}

func TestResolve_HoistedVarShadowsWholeFunction(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		et.FuncDecl("f", nil,
			et.Return(et.Ident("cacheEnabled")),
			et.If(et.Ident("x"), et.Block(et.Var("var", "cacheEnabled", et.Bool(false)))),
		),
		et.FuncDecl("g", nil,
			et.Expr(et.Call(et.Ident("cacheEnabled"))),
			et.FuncDecl("cacheEnabled", nil),
		),
	))
	assert.Empty(t, binding(t, an, "cacheEnabled").Sites)
}

func TestResolve_LetShadowsBeforeDeclaration(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		et.Block(
			et.Expr(et.Ident("cacheEnabled")),
			et.Var("const", "cacheEnabled", et.Bool(true)),
		),
	))
	assert.Empty(t, binding(t, an, "cacheEnabled").Sites)
}

func TestResolve_NestedClosureStillResolves(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		et.FuncDecl("outer", et.Idents("other"),
			et.Return(et.Arrow(nil, et.Block(
				et.Return(et.FuncExpr("named", nil, et.Return(et.Ident("cacheEnabled")))),
			))),
		),
	))
	assert.Equal(t, []RefKind{Read}, kinds(binding(t, an, "cacheEnabled")))
}

func TestResolve_NamedFunctionExpressionShadows(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportNamed(debugMod, "__increment", "__increment"),
		et.Var("const", "f", et.FuncExpr("__increment", nil, et.Expr(et.Call(et.Ident("__increment"))))),
	))
	assert.Empty(t, binding(t, an, "__increment").Sites)
}

func TestResolve_NonReferencePositions(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		// obj.cacheEnabled; ({ cacheEnabled: true })
		et.Expr(et.Member(et.Ident("obj"), "cacheEnabled")),
		et.Expr(et.Object(et.Prop("cacheEnabled", et.Bool(true)))),
		// const { cacheEnabled: local } = obj
		et.VarPattern("const", et.ObjectPattern(et.Prop("cacheEnabled", et.Ident("local"))), et.Ident("obj")),
	))
	assert.Empty(t, binding(t, an, "cacheEnabled").Sites)
}

func TestResolve_ComputedMemberIsReference(t *testing.T) {
	member := et.Member(et.Ident("obj"), "x")
	member["computed"] = true
	member["property"] = et.Ident("cacheEnabled")
	an := resolve(t, et.Program(et.ImportDefault("cacheEnabled", cacheMod), et.Expr(member)))
	assert.Equal(t, []RefKind{Read}, kinds(binding(t, an, "cacheEnabled")))
}

func TestResolve_ReferenceKinds(t *testing.T) {
	an := resolve(t, et.Program(
		et.ImportDefault("cacheEnabled", cacheMod),
		et.Expr(et.Assign(et.Ident("cacheEnabled"), et.Bool(true))),
		et.Expr(et.Update(et.Ident("cacheEnabled"))),
		et.ExportNames("cacheEnabled"),
		et.Expr(et.New(et.Ident("cacheEnabled"))),
		et.Expr(et.Object(et.Shorthand("cacheEnabled"))),
	))
	assert.Equal(t, []RefKind{Write, Write, Export, Call, Read}, kinds(binding(t, an, "cacheEnabled")))
}

func TestResolve_ReExportFromOtherModuleIgnored(t *testing.T) {
	reexport := et.ExportNames("cacheEnabled")
	reexport["source"] = et.Str("./other")
	an := resolve(t, et.Program(et.ImportDefault("cacheEnabled", cacheMod), reexport))
	assert.Empty(t, binding(t, an, "cacheEnabled").Sites)
}

func TestResolve_JSXNames(t *testing.T) {
	el := func(name estree.Node) estree.Node {
		return estree.Node{
			"type": "JSXElement",
			"openingElement": estree.Node{
				"type": "JSXOpeningElement", "name": name, "selfClosing": true,
				"attributes": []any{estree.Node{
					"type":  "JSXAttribute",
					"name":  estree.Node{"type": "JSXIdentifier", "name": "cacheEnabled"},
					"value": estree.Node{"type": "JSXExpressionContainer", "expression": et.Ident("cacheEnabled")},
				}},
			},
			"closingElement": nil,
			"children":       []any{},
		}
	}
	an := resolve(t, et.Program(
		et.ImportDefault("Flag", cacheMod),
		et.ImportDefault("cacheEnabled", cacheMod),
		et.Expr(el(estree.Node{"type": "JSXIdentifier", "name": "Flag"})),
		et.Expr(el(estree.Node{"type": "JSXIdentifier", "name": "div"})),
	))
	assert.Equal(t, []RefKind{JSX}, kinds(binding(t, an, "Flag")))
	assert.Equal(t, []RefKind{Read, Read}, kinds(binding(t, an, "cacheEnabled")))
}

func TestResolve_SiteReplaceInList(t *testing.T) {
	call := et.Call(et.Ident("use"), et.Ident("a"), et.Ident("cacheEnabled"))
	an := resolve(t, et.Program(et.ImportDefault("cacheEnabled", cacheMod), et.Expr(call)))
	sites := binding(t, an, "cacheEnabled").Sites
	require.Len(t, sites, 1)
	assert.Equal(t, "arguments", sites[0].Key)
	assert.Equal(t, 1, sites[0].Index)

	sites[0].Replace(et.Bool(false))
	assert.Equal(t, et.Bool(false), call.List("arguments")[1])
}

func TestResolve_NamespaceAndTypeImports(t *testing.T) {
	typeOnly := et.ImportDefault("T", cacheMod)
	typeOnly["importKind"] = "type"
	an := resolve(t, et.Program(
		et.ImportNamespace("dbg", debugMod),
		typeOnly,
		et.Expr(et.Call(et.Member(et.Ident("dbg"), "__increment"))),
	))
	require.Len(t, an.Imports, 1)
	dbg := binding(t, an, "dbg")
	assert.True(t, dbg.Namespace)
	assert.Equal(t, []RefKind{Read}, kinds(dbg))
}

func TestResolve_Malformed(t *testing.T) {
	tests := map[string]estree.Node{
		"not a program":   et.Expr(et.Ident("x")),
		"body not a list": {"type": "Program", "body": "nope"},
		"source missing":  et.Program(estree.Node{"type": "ImportDeclaration", "specifiers": []any{}}),
		"nameless local": et.Program(et.Import(cacheMod, estree.Node{
			"type": "ImportDefaultSpecifier", "local": estree.Node{"type": "Identifier"},
		})),
		"nameless identifier": et.Program(et.ImportDefault("x", cacheMod), et.Expr(estree.Node{"type": "Identifier"})),
	}
	for name, prog := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(prog, registry.Default())
			assert.ErrorIs(t, err, estree.ErrMalformed)
		})
	}
}

func TestResolve_ParameterDefaultsAndTypeScriptBodies(t *testing.T) {
	ref := func() estree.Node { return et.Ident("cacheEnabled") }
	qualified := estree.Node{"type": "TSQualifiedName", "left": ref(), "right": et.Ident("inner")}
	declared := et.Namespace("N", et.Expr(ref()))
	declared["declare"] = true
	nested := estree.Node{"type": "TSModuleDeclaration", "id": et.Ident("A"), "body": et.Namespace("B", et.Expr(ref()))}

	tests := []struct {
		name string
		body []estree.Node
		want []RefKind
	}{
		{"parameter default", []estree.Node{
			et.FuncDecl("f", []estree.Node{et.Default(et.Ident("a"), ref())}),
		}, []RefKind{Read}},
		{"default beside same-named body let", []estree.Node{
			et.FuncDecl("f", []estree.Node{et.Default(et.Ident("a"), ref())},
				et.Var("let", "cacheEnabled", et.Bool(true)),
				et.Return(ref()),
			),
		}, []RefKind{Read}},
		{"default beside same-named body var and function", []estree.Node{
			et.FuncDecl("f", []estree.Node{et.Default(et.Ident("a"), ref())},
				et.If(et.Ident("x"), et.Block(et.Var("var", "cacheEnabled", et.Bool(true)))),
				et.FuncDecl("cacheEnabled", nil),
				et.Expr(et.Call(ref())),
			),
		}, []RefKind{Read}},
		{"earlier parameter shadows default", []estree.Node{
			et.FuncDecl("f", []estree.Node{et.Ident("cacheEnabled"), et.Default(et.Ident("b"), ref())}),
		}, nil},
		{"arrow default", []estree.Node{
			et.Var("const", "h", et.Arrow([]estree.Node{et.Default(et.Ident("a"), ref())}, et.Block(
				et.Var("const", "cacheEnabled", et.Bool(false)),
			))),
		}, []RefKind{Read}},
		{"namespace body", []estree.Node{
			et.Namespace("N", et.ExportConst("x", ref())),
		}, []RefKind{Read}},
		{"namespace declaration shadows", []estree.Node{
			et.Namespace("N", et.Var("const", "cacheEnabled", et.Bool(true)), et.Expr(ref())),
		}, nil},
		{"nested namespace", []estree.Node{nested}, []RefKind{Read}},
		{"ambient namespace", []estree.Node{declared}, nil},
		{"enum initializer", []estree.Node{
			et.Enum("E", et.EnumMember("a", ref()), et.EnumMember("b", nil)),
		}, []RefKind{Read}},
		{"enum member shadows", []estree.Node{
			et.Enum("E", et.EnumMember("cacheEnabled", et.Bool(true)), et.EnumMember("b", ref())),
		}, nil},
		{"import alias", []estree.Node{et.ImportAlias("alias", ref())}, []RefKind{Alias}},
		{"qualified import alias", []estree.Node{et.ImportAlias("alias", qualified)}, []RefKind{Alias}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := append([]estree.Node{et.ImportDefault("cacheEnabled", cacheMod)}, tt.body...)
			an := resolve(t, et.Program(body...))
			got := kinds(binding(t, an, "cacheEnabled"))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_TypeofSpecifierIgnored(t *testing.T) {
	imp := et.ImportNamed(debugMod, "__increment", "__increment", "__decrement", "__decrement")
	imp.Nodes("specifiers")[0]["importKind"] = "typeof"
	an := resolve(t, et.Program(imp, et.Expr(et.Call(et.Ident("__increment")))))
	require.Len(t, an.Bindings, 1)
	assert.Equal(t, "__decrement", an.Bindings[0].Local)
}
