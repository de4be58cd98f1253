// Package resolve implements Graphix's module resolution: for every
// Unresolved module declaration in an AST, try each configured
// Resolver in turn, parse the first text that comes back,
// and recurse into the resolved body with a resolver list reprioritized
// for "relative import" semantics, over a pluggable multi-source
// Resolver interface.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/parser"
)

// Resolver looks up the source text for a module path, relative to
// whatever base the Resolver itself was constructed with. A Resolver
// returns (_, false, nil) when it simply doesn't have the path (try the
// next one), and (_, false, err) when it recognizes the path but failed
// to produce text (I/O error, subscription timeout) — both count as a
// failed attempt for CouldNotResolve's accumulated-errors report.
type Resolver interface {
	// Resolve returns the module's source text and an Origin describing
	// where it came from.
	Resolve(ctx context.Context, name string) (text string, origin *ast.Origin, ok bool, err error)

	// Rebase returns the Resolver(s) that should be prepended ahead of
	// the current resolver list when recursing into the module just
	// loaded by this Resolver, implementing relative-import
	// inheritance.
	Rebase(loadedName string) []Resolver

	// Kind names the resolver for diagnostics ("vfs", "files", "netidx").
	Kind() string
}

// CouldNotResolve is returned when every configured Resolver declined or
// failed on a module path.
type CouldNotResolve struct {
	Name   string
	Errors []string // one entry per resolver attempted, "<kind>: <err>"
}

func (e *CouldNotResolve) Error() string {
	return fmt.Sprintf("could not resolve module %q: %s", e.Name, strings.Join(e.Errors, "; "))
}

// Resolve walks prog, resolving every Unresolved *ast.ModuleDecl it
// finds (including ones nested inside already-resolved modules),
// against resolvers, in order, first-success-wins, per scope.
// Resolution order across sibling modules is left-to-right and
// deterministic; a sequential loop keeps that determinism for free for
// what is, in practice, a handful of module declarations per compiled
// program.
func Resolve(ctx context.Context, prog []*ast.Expr, resolvers []Resolver, origin *ast.Origin) error {
	for _, e := range prog {
		if err := resolveExpr(ctx, e, resolvers, origin); err != nil {
			return err
		}
	}
	return nil
}

func resolveExpr(ctx context.Context, e *ast.Expr, resolvers []Resolver, origin *ast.Origin) error {
	switch k := e.Kind.(type) {
	case *ast.ModuleDecl:
		switch k.Kind {
		case ast.ModuleUnresolved:
			text, modOrigin, usedResolvers, err := tryResolvers(ctx, resolvers, k.Name, origin)
			if err != nil {
				return err
			}
			body, err := parseModuleText(text, modOrigin)
			if err != nil {
				return err
			}
			k.Kind = ast.ModuleResolved
			k.Body = body
			next := append(append([]Resolver(nil), usedResolvers...), resolvers...)
			return Resolve(ctx, body, next, modOrigin)
		case ast.ModuleInline:
			return Resolve(ctx, k.Inline, resolvers, origin)
		case ast.ModuleResolved:
			return Resolve(ctx, k.Body, resolvers, origin)
		case ast.ModuleDynamic:
			return nil // spliced at compile time once its source expression evaluates
		}
	default:
		for _, child := range childExprs(e) {
			if err := resolveExpr(ctx, child, resolvers, origin); err != nil {
				return err
			}
		}
	}
	return nil
}

// tryResolvers attempts each resolver in order, returning the text,
// the winning resolver's Rebase() list (to prepend for recursive
// resolution), and the first success; if none succeed, a
// *CouldNotResolve naming every attempted resolver's failure reason.
func tryResolvers(ctx context.Context, resolvers []Resolver, name string, parent *ast.Origin) (string, *ast.Origin, []Resolver, error) {
	var errs []string
	for _, r := range resolvers {
		text, org, ok, err := r.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", r.Kind(), err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: not found", r.Kind()))
			continue
		}
		if org != nil {
			org.Parent = parent
		}
		return text, org, r.Rebase(name), nil
	}
	return "", nil, nil, &CouldNotResolve{Name: name, Errors: errs}
}

func parseModuleText(text string, origin *ast.Origin) ([]*ast.Expr, error) {
	return parser.ParseProgram(text, originFile(origin), origin)
}

func originFile(o *ast.Origin) string {
	if o == nil {
		return ""
	}
	return o.Path
}

// childExprs returns the direct Expr children of e that can themselves
// contain Module declarations, so Resolve can fold over the whole tree
// without every ExprKind needing resolver-specific logic.
func childExprs(e *ast.Expr) []*ast.Expr {
	return ast.Children(e)
}

// timeoutCtx is a small helper resolvers can use to bound a subscribe
// call, mirroring Netidx's timeout parameter.
func timeoutCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
