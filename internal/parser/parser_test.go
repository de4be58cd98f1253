package parser

import (
	"testing"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) *ast.Expr {
	t.Helper()
	exprs, err := ParseProgram(src, "test.gx", nil)
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	return exprs[0]
}

func TestParseArithmeticPrecedence(t *testing.T) {
	e := parseOne(t, "1 + 2 * 3")
	bin, ok := e.Kind.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, bin.Op)
	rhs, ok := bin.Right.Kind.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, rhs.Op)
}

func TestParseLetBinding(t *testing.T) {
	e := parseOne(t, "let x = 1")
	let, ok := e.Kind.(*ast.Let)
	require.True(t, ok)
	bind, ok := let.Pattern.(*ast.PatBind)
	require.True(t, ok)
	require.Equal(t, "x", bind.Name)
}

func TestParseLambdaWithTypes(t *testing.T) {
	e := parseOne(t, "|x: i64, y: i64| -> i64 x + y")
	lam, ok := e.Kind.(*ast.Lambda)
	require.True(t, ok)
	require.Len(t, lam.Args, 2)
	require.NotNil(t, lam.RType)
}

func TestParseApplyLabeledArgsMustPrecedeAnonymous(t *testing.T) {
	e := parseOne(t, `f(x: 1, 2)`)
	app, ok := e.Kind.(*ast.Apply)
	require.True(t, ok)
	require.Equal(t, "x", app.Args[0].Label)
	require.Equal(t, "", app.Args[1].Label)
}

func TestParseDoBlock(t *testing.T) {
	e := parseOne(t, "{ let x = 1; x + 1 }")
	do, ok := e.Kind.(*ast.Do)
	require.True(t, ok)
	require.Len(t, do.Exprs, 2)
}

func TestParseStructLiteral(t *testing.T) {
	e := parseOne(t, `{x: 1, y: 2}`)
	s, ok := e.Kind.(*ast.Struct)
	require.True(t, ok)
	require.Len(t, s.Fields, 2)
}

func TestParseStructWith(t *testing.T) {
	e := parseOne(t, `{base with x: 1}`)
	sw, ok := e.Kind.(*ast.StructWith)
	require.True(t, ok)
	require.Len(t, sw.Fields, 1)
}

func TestParseVariantConstructor(t *testing.T) {
	e := parseOne(t, "`Some(1)")
	v, ok := e.Kind.(*ast.Variant)
	require.True(t, ok)
	require.Equal(t, "Some", v.Tag)
	require.Len(t, v.Args, 1)
}

func TestParseSelectWithGuardAndAsPattern(t *testing.T) {
	e := parseOne(t, "select v { i64 as n if n > 0 => n, _ => 0 }")
	sel, ok := e.Kind.(*ast.Select)
	require.True(t, ok)
	require.Len(t, sel.Arms, 2)
	bind, ok := sel.Arms[0].Pattern.(*ast.PatBind)
	require.True(t, ok)
	require.Equal(t, "n", bind.Name)
	require.NotNil(t, sel.Arms[0].Guard)
}

func TestParseTryCatch(t *testing.T) {
	e := parseOne(t, `try risky() catch (e) => 0`)
	tc, ok := e.Kind.(*ast.TryCatch)
	require.True(t, ok)
	require.Equal(t, "e", tc.CatchName)
}

func TestParseConnectAndSample(t *testing.T) {
	e := parseOne(t, "out <- trigger ~ value")
	conn, ok := e.Kind.(*ast.Connect)
	require.True(t, ok)
	require.Equal(t, "out", conn.Name)
	_, ok = conn.Value.Kind.(*ast.Sample)
	require.True(t, ok)
}

func TestParseByRefAndDeref(t *testing.T) {
	e := parseOne(t, "&x")
	_, ok := e.Kind.(*ast.ByRef)
	require.True(t, ok)

	e2 := parseOne(t, "*x")
	_, ok = e2.Kind.(*ast.Deref)
	require.True(t, ok)
}

func TestParseCast(t *testing.T) {
	e := parseOne(t, "cast<i64>(x)")
	c, ok := e.Kind.(*ast.Cast)
	require.True(t, ok)
	require.Equal(t, "i64", c.Type.String())
}

func TestParseInterpolatedString(t *testing.T) {
	e := parseOne(t, `"hello [name]!"`)
	si, ok := e.Kind.(*ast.StringInterpolate)
	require.True(t, ok)
	require.Len(t, si.Parts, 3)
	require.Equal(t, "hello ", si.Parts[0].Const)
	require.NotNil(t, si.Parts[1].Expr)
	require.Equal(t, "!", si.Parts[2].Const)
}

func TestParseArraySlice(t *testing.T) {
	e := parseOne(t, "arr[1:3]")
	sl, ok := e.Kind.(*ast.ArraySlice)
	require.True(t, ok)
	require.NotNil(t, sl.From)
	require.NotNil(t, sl.To)
}

func TestParseModuleInline(t *testing.T) {
	e := parseOne(t, "mod m inline { let x = 1 }")
	m, ok := e.Kind.(*ast.ModuleDecl)
	require.True(t, ok)
	require.Equal(t, ast.ModuleInline, m.Kind)
	require.Len(t, m.Inline, 1)
}

func TestParsePubModuleResolved(t *testing.T) {
	e := parseOne(t, "pub mod m { let x = 1 }")
	m, ok := e.Kind.(*ast.ModuleDecl)
	require.True(t, ok)
	require.True(t, m.Public)
	require.Equal(t, ast.ModuleResolved, m.Kind)
}

func TestParseUse(t *testing.T) {
	e := parseOne(t, "use a::b::c")
	u, ok := e.Kind.(*ast.Use)
	require.True(t, ok)
	require.Equal(t, "a/b/c", u.Path)
}

func TestParseFnType(t *testing.T) {
	e := parseOne(t, "|f: fn(i64) -> i64| f(1)")
	lam, ok := e.Kind.(*ast.Lambda)
	require.True(t, ok)
	fn, ok := lam.Args[0].Type.(*ast.TyFn)
	require.True(t, ok)
	require.Len(t, fn.Args, 1)
}

func TestParseErrorReportsPosition(t *testing.T) {
	_, err := ParseProgram("let = 1", "bad.gx", nil)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseTypeDecl(t *testing.T) {
	e := parseOne(t, "type L<'a> = [`Cons('a, L<'a>), `Nil]")
	d, ok := e.Kind.(*ast.TypeDecl)
	require.True(t, ok)
	require.Equal(t, "L", d.Name)
	require.Equal(t, []string{"a"}, d.Params)
	set, ok := d.Def.(*ast.TySet)
	require.True(t, ok)
	require.Len(t, set.Members, 2)
}

func TestParseTypeDeclRejectsLowercaseName(t *testing.T) {
	_, err := ParseProgram("type lower = i64", "test.gx", nil)
	require.Error(t, err)
}

func TestParseQualifiedName(t *testing.T) {
	e := parseOne(t, "foo::bar::baz(1)")
	app, ok := e.Kind.(*ast.Apply)
	require.True(t, ok)
	name, ok := app.Func.Kind.(*ast.Name)
	require.True(t, ok)
	require.Equal(t, "foo::bar::baz", name.Name)
}

func TestParseTopLevelSemicolons(t *testing.T) {
	exprs, err := ParseProgram("let x = 1; x", "test.gx", nil)
	require.NoError(t, err)
	require.Len(t, exprs, 2)
}
