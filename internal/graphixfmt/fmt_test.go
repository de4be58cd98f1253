package graphixfmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/parser"
)

func parseOne(t *testing.T, src string) *ast.Expr {
	t.Helper()
	prog, err := parser.ParseProgram(src, "test.gx", nil)
	require.NoError(t, err)
	require.Len(t, prog, 1)
	return prog[0]
}

func TestRoundTripCorpus(t *testing.T) {
	cases := []string{
		`1 + 2 * 3`,
		`(((1+1)*2)/2) - 1`,
		`-5`,
		`!x`,
		`2.0`,
		`1.5`,
		`true`,
		`null`,
		`"hello"`,
		`"hello [x] world"`,
		`(1, 2, 3)`,
		`[1, 2, 3]`,
		`{a: 1, b: 2}`,
		`{ base with a: 1 }`,
		`{ let y = 10; let f = |x| x + y; f(10) }`,
		`let f: fn(i64) -> i64 = never()`,
		`let (a, b) = (1, 2)`,
		`let _ = 1`,
		"`Cons(1, `Nil)",
		"type L<'a> = [`Cons('a, L<'a>), `Nil]",
		`type Point = {x: i64, y: i64}`,
		`select v { i64 as i => i, string as s => s }`,
		`select v { 1 => "one", _ => "other" }`,
		"select v { `Some(x) => x, `None => 0 }",
		`try a[0]? + a[1]? catch(e) => e`,
		`try f(x) catch(e: string) => "err"`,
		`x?`,
		`x$`,
		`&x`,
		`*x`,
		`x <- 1`,
		`*x <- 1`,
		`f <- |i: i64| i + 1`,
		`trigger ~ value`,
		`any(a, b, c)`,
		`cast<i64>("5")`,
		`a.field`,
		`a.0`,
		`a[1]`,
		`a[1:2]`,
		`a[:2]`,
		`use a::b`,
		`foo::add(foo::cfg[0])`,
		`mod foo { let x = 1; let y = x + 1 }`,
		`pub mod bar { let z = 1 }`,
		`|x: i64, y: i64| -> i64 x + y`,
		`|x| -> i64 throws string x`,
		`f(label: b, a)`,
		`a && b || c`,
		`a == b`,
		`a <= b`,
		`a % b`,
	}
	for _, src := range cases {
		require.NoError(t, VerifyRoundTrip(src, "test.gx"), "source: %s", src)
	}
}

func TestRoundTripDynamicModule(t *testing.T) {
	src := `mod foo dynamic { sandbox whitelist [core]; sig { val add: fn(i64) -> i64; }; "let add = 1" }`
	require.NoError(t, VerifyRoundTrip(src, "test.gx"))
}

func TestEquivalentIgnoresIds(t *testing.T) {
	a := parseOne(t, `1 + 2`)
	b := parseOne(t, `1 + 2`)
	require.NotEqual(t, a.Id, b.Id)
	require.True(t, Equivalent(a, b))
	require.Empty(t, Diff(a, b))
}

func TestEquivalentDetectsDifference(t *testing.T) {
	a := parseOne(t, `1 + 2`)
	b := parseOne(t, `1 - 2`)
	require.False(t, Equivalent(a, b))
	require.NotEmpty(t, Diff(a, b))
}

func TestFormatProgram(t *testing.T) {
	prog, err := parser.ParseProgram("let x = 1 let y = 2", "test.gx", nil)
	require.NoError(t, err)
	require.Len(t, prog, 2)
	require.Equal(t, "let x = 1\nlet y = 2", FormatProgram(prog))
}

func TestVerifyRoundTripRejectsParseError(t *testing.T) {
	require.Error(t, VerifyRoundTrip("let = =", "test.gx"))
}
