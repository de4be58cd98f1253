package compile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/parser"
	"github.com/graphix-lang/graphix/internal/types"
)

// compileSource parses and compiles every top-level expression in src in
// sequence, threading the environment the way internal/host.compileProgram
// does, and returns the last compiled node.
func compileSource(t *testing.T, src string) (node.Node, *gxenv.Env) {
	t.Helper()
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram(src, "<test>", origin)
	require.NoError(t, err)
	require.NotEmpty(t, prog)

	env := gxenv.New()
	var n node.Node
	for _, e := range prog {
		ctx := &Ctx{Scope: modpath.Root, Env: env}
		var cerr error
		n, env, cerr = Compile(ctx, e)
		require.NoError(t, cerr)
	}
	return n, env
}

func TestCompileIntLiteralProducesIntType(t *testing.T) {
	n, _ := compileSource(t, "42")
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, int64(42), v.Int)
}

func TestCompileStringLiteral(t *testing.T) {
	n, _ := compileSource(t, `"hello"`)
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, "hello", v.Str)
}

func TestCompileBinOpArithmetic(t *testing.T) {
	n, _ := compileSource(t, "1 + 2 * 3")
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, int64(7), v.Int)
}

func TestCompileBinOpComparison(t *testing.T) {
	n, _ := compileSource(t, "3 < 4")
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, types.VBool, v.Kind)
	require.True(t, v.Bool)
}

func TestCompileTupleLiteral(t *testing.T) {
	n, _ := compileSource(t, "(1, 2, 3)")
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, types.VTuple, v.Kind)
	require.Len(t, v.Elems, 3)
}

func TestCompileUnboundNameFails(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram("undefined_name", "<test>", origin)
	require.NoError(t, err)

	env := gxenv.New()
	ctx := &Ctx{Scope: modpath.Root, Env: env}
	_, _, err = Compile(ctx, prog[0])
	require.Error(t, err)
	require.Contains(t, err.Error(), "unbound name")
}

func TestCompileLetBindsNameForSubsequentUse(t *testing.T) {
	_, env := compileSource(t, "let x = 10; x + 1")
	found := false
	for _, b := range env.ByID {
		if b.Name == "x" {
			found = true
		}
	}
	require.True(t, found, "let should bind x into the environment")
}

func TestCompileQopOutsideTryCatchFails(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram("1?", "<test>", origin)
	if err != nil {
		// Parser may reject this shape outright; either way it must not
		// silently compile.
		return
	}
	env := gxenv.New()
	ctx := &Ctx{Scope: modpath.Root, Env: env}
	_, _, err = Compile(ctx, prog[0])
	require.Error(t, err)
}

func TestCompileDivisionByZeroProducesErrorValue(t *testing.T) {
	n, _ := compileSource(t, "1 / 0")
	v, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, types.VError, v.Kind)
}

func TestCompileNeverProducesNoValue(t *testing.T) {
	n, _ := compileSource(t, "never()")
	require.IsType(t, &node.NeverNode{}, n)
	_, ok := n.Update(&node.Ctx{Event: &node.Event{Init: true}})
	require.False(t, ok)
	require.IsType(t, types.Bottom{}, n.Typ())
}

func TestCompileDynamicApplyOfFnTypedVariable(t *testing.T) {
	n, _ := compileSource(t, "let f: fn(i64) -> i64 = never(); f(1)")
	require.IsType(t, &DynCallsiteNode{}, n)
	require.NoError(t, n.Typecheck())
}

func TestCompileTypeDeclRegistersTypedef(t *testing.T) {
	_, env := compileSource(t, "type Point = {x: i64, y: i64}")
	def, ok := env.LookupTypeDef("", "Point")
	require.True(t, ok)
	require.Equal(t, "Point", def.Name)
}

func TestCompileTypeDeclRejectsUnusedParam(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram("type T<'a> = i64", "<test>", origin)
	require.NoError(t, err)
	ctx := &Ctx{Scope: modpath.Root, Env: gxenv.New()}
	_, _, cerr := Compile(ctx, prog[0])
	require.Error(t, cerr)
}

func TestCompileLetRejectsMismatchedDeclaredType(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram(`let x: i64 = "nope"`, "<test>", origin)
	require.NoError(t, err)
	ctx := &Ctx{Scope: modpath.Root, Env: gxenv.New()}
	_, _, cerr := Compile(ctx, prog[0])
	require.Error(t, cerr)
}

func TestCompileSelectNonExhaustiveFails(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram(`let v: [i64, string] = "1"; select v { i64 as i => i }`, "<test>", origin)
	require.NoError(t, err)
	env := gxenv.New()
	var cerr error
	for _, e := range prog {
		ctx := &Ctx{Scope: modpath.Root, Env: env}
		_, env, cerr = Compile(ctx, e)
		if cerr != nil {
			break
		}
	}
	require.Error(t, cerr)
	require.Contains(t, cerr.Error(), "exhaustive")
}

func TestCompileSelectGuardedArmDoesNotCount(t *testing.T) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<test>"}
	prog, err := parser.ParseProgram(`let v: [i64, string] = "1"; select v { i64 as i if i > 0 => i, string as s => 0 }`, "<test>", origin)
	require.NoError(t, err)
	env := gxenv.New()
	var cerr error
	for _, e := range prog {
		ctx := &Ctx{Scope: modpath.Root, Env: env}
		_, env, cerr = Compile(ctx, e)
		if cerr != nil {
			break
		}
	}
	require.Error(t, cerr, "a guarded arm can decline at runtime, so i64 stays uncovered")
	require.Contains(t, cerr.Error(), "exhaustive")
}

func TestCompileSelectWildcardIsExhaustive(t *testing.T) {
	n, _ := compileSource(t, `let v: [i64, string] = "1"; select v { i64 as i => i, _ => 0 }`)
	require.NoError(t, n.Typecheck())
}
