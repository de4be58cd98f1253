// Package graphixfmt renders Graphix ASTs back to source and checks the
// print/reparse round-trip property: for every parser-produced
// expression, parsing the printed form yields a structurally equal tree
// once ExprId, Origin, and positions are ignored. The host exposes the
// check behind the run/check/compile subcommands' --verify-roundtrip flag.
package graphixfmt

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/parser"
)

// identity holds the per-instance fields structural equality ignores:
// ExprId is allocated fresh on every parse, Origin and Pos describe
// where the text came from, not what it means.
var identity = cmpopts.IgnoreFields(ast.Expr{}, "Id", "Origin", "Pos")

// Format renders a single expression to source.
func Format(e *ast.Expr) string { return ast.PrintExpr(e) }

// FormatProgram renders a parsed program one top-level expression per
// line, for display.
func FormatProgram(prog []*ast.Expr) string {
	parts := make([]string, len(prog))
	for i, e := range prog {
		parts[i] = ast.PrintExpr(e)
	}
	return strings.Join(parts, "\n")
}

// Equivalent reports structural equality between two expressions,
// ignoring identity fields.
func Equivalent(a, b *ast.Expr) bool { return cmp.Equal(a, b, identity) }

// Diff renders the structural difference between two expressions, empty
// when Equivalent.
func Diff(a, b *ast.Expr) string { return cmp.Diff(a, b, identity) }

// VerifyRoundTrip parses src and checks, for each top-level expression,
// that printing and reparsing yields an Equivalent tree.
func VerifyRoundTrip(src, file string) error {
	origin := &ast.Origin{Kind: ast.OriginText, Path: file}
	prog, err := parser.ParseProgram(src, file, origin)
	if err != nil {
		return err
	}
	for i, e := range prog {
		printed := ast.PrintExpr(e)
		re, err := parser.ParseProgram(printed, file, origin)
		if err != nil {
			return fmt.Errorf("roundtrip: expression %d prints unparseable text: %w\n%s", i, err, printed)
		}
		if len(re) != 1 {
			return fmt.Errorf("roundtrip: expression %d prints as %d expressions:\n%s", i, len(re), printed)
		}
		if !Equivalent(e, re[0]) {
			return fmt.Errorf("roundtrip: expression %d differs after print/reparse:\n%s", i, Diff(e, re[0]))
		}
	}
	return nil
}
