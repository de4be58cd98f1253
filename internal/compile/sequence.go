package compile

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/types"
)

// compileLet compiles a standalone `let` (e.g. a module-level
// declaration) with no following statement: its own value is the
// result.
func compileLet(ctx *Ctx, e *ast.Expr, k *ast.Let) (node.Node, *gxenv.Env, error) {
	return compileLetSeq(ctx, e, k, nil)
}

// compileDo sequences a `{ e0; e1;... }` block, threading lets'
// bindings into every following statement.
func compileDo(ctx *Ctx, e *ast.Expr, k *ast.Do) (node.Node, *gxenv.Env, error) {
	n, _, err := compileSeq(ctx, k.Exprs)
	return n, ctx.Env, err
}

func compileSeq(ctx *Ctx, exprs []*ast.Expr) (node.Node, *gxenv.Env, error) {
	if len(exprs) == 0 {
		return node.NewLiteral(nil, types.NewPrimitive(types.PNull), types.Value{Kind: types.VNull}), ctx.Env, nil
	}
	head := exprs[0]
	if letExpr, ok := head.Kind.(*ast.Let); ok {
		return compileLetSeq(ctx, head, letExpr, exprs[1:])
	}
	first, env1, err := Compile(ctx, head)
	if err != nil {
		return nil, ctx.Env, err
	}
	if len(exprs) == 1 {
		return first, env1, nil
	}
	nextCtx := &Ctx{Scope: ctx.Scope, Env: env1, CatchId: ctx.CatchId}
	rest, env2, err := compileSeq(nextCtx, exprs[1:])
	if err != nil {
		return nil, ctx.Env, err
	}
	return node.NewDo(head, rest.Typ(), []node.Node{first, rest}), env2, nil
}

func compileLetSeq(ctx *Ctx, e *ast.Expr, k *ast.Let, rest []*ast.Expr) (node.Node, *gxenv.Env, error) {
	value, valueEnv, err := Compile(ctx, k.Value)
	if err != nil {
		return nil, ctx.Env, err
	}
	var declared types.Type
	if k.Type != nil {
		declared, err = ResolveType(valueEnv, ctx.Scope, k.Type)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		if err := types.CheckContains(valueEnv, declared, value.Typ()); err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
	} else {
		declared = value.Typ()
	}
	pat, boundEnv, err := compilePattern(&Ctx{Scope: ctx.Scope, Env: valueEnv, CatchId: ctx.CatchId}, k.Pattern, declared)
	if err != nil {
		return nil, ctx.Env, wrapErr(e, err)
	}
	if lam, ok := k.Value.Kind.(*ast.Lambda); ok {
		if simple, ok := pat.(*node.SimpleBindPattern); ok {
			lid := gxenv.NextLambdaId()
			def := &gxenv.LambdaDef{Id: lid, Expr: lam, Env: valueEnv}
			boundEnv.Lambdas[lid] = def
			gxenv.RegisterLambda(def)
			boundEnv = boundEnv.WithBindLambda(simple.Id, lid)
		}
	}
	bodyCtx := &Ctx{Scope: ctx.Scope, Env: boundEnv, CatchId: ctx.CatchId}
	var body node.Node
	var finalEnv *gxenv.Env
	if len(rest) > 0 {
		body, finalEnv, err = compileSeq(bodyCtx, rest)
		if err != nil {
			return nil, ctx.Env, err
		}
	} else {
		finalEnv = boundEnv
	}
	return node.NewBind(e, declared, pat, value, body), finalEnv, nil
}

// compilePattern lowers a surface Pattern into a node.PatternNode,
// binding every name it introduces into a fresh BindId and extending
// env accordingly.
func compilePattern(ctx *Ctx, p ast.Pattern, declared types.Type) (node.PatternNode, *gxenv.Env, error) {
	switch pk := p.(type) {
	case *ast.PatWildcard:
		return node.WildcardPattern{}, ctx.Env, nil

	case *ast.PatBind:
		if pk.Type != nil {
			refined, err := ResolveType(ctx.Env, ctx.Scope, pk.Type)
			if err != nil {
				return nil, ctx.Env, err
			}
			env2, id := ctx.Env.BindVariable(ctx.Scope, pk.Name, refined)
			return &node.TypeRefinementPattern{Resolver: env2, Type: refined, Id: id}, env2, nil
		}
		env2, id := ctx.Env.BindVariable(ctx.Scope, pk.Name, declared)
		return &node.SimpleBindPattern{Id: id}, env2, nil

	case *ast.PatLiteral:
		v, _, err := compileLiteral(pk.Value)
		if err != nil {
			return nil, ctx.Env, err
		}
		return &node.LiteralPattern{Value: v}, ctx.Env, nil

	case *ast.PatTuple:
		elemTyps := tupleElemTypes(declared, len(pk.Elements))
		elements := make([]node.PatternNode, len(pk.Elements))
		env := ctx.Env
		for i, sub := range pk.Elements {
			pn, env2, err := compilePattern(&Ctx{Scope: ctx.Scope, Env: env, CatchId: ctx.CatchId}, sub, elemTyps[i])
			if err != nil {
				return nil, ctx.Env, err
			}
			elements[i] = pn
			env = env2
		}
		return &node.TuplePattern{Elements: elements}, env, nil

	case *ast.PatStruct:
		fields := make(map[string]node.PatternNode, len(pk.Fields))
		env := ctx.Env
		for _, f := range pk.Fields {
			ft := structFieldType(declared, f.Name)
			pn, env2, err := compilePattern(&Ctx{Scope: ctx.Scope, Env: env, CatchId: ctx.CatchId}, f.Pattern, ft)
			if err != nil {
				return nil, ctx.Env, err
			}
			fields[f.Name] = pn
			env = env2
		}
		return &node.StructPattern{Fields: fields}, env, nil

	case *ast.PatVariant:
		argTyps := variantArgTypes(declared, pk.Tag, len(pk.Elements))
		args := make([]node.PatternNode, len(pk.Elements))
		env := ctx.Env
		for i, sub := range pk.Elements {
			pn, env2, err := compilePattern(&Ctx{Scope: ctx.Scope, Env: env, CatchId: ctx.CatchId}, sub, argTyps[i])
			if err != nil {
				return nil, ctx.Env, err
			}
			args[i] = pn
			env = env2
		}
		return &node.VariantPattern{Tag: pk.Tag, Args: args}, env, nil

	default:
		return nil, ctx.Env, fmt.Errorf("unhandled pattern kind %T", p)
	}
}

// patternCoverage computes the type a pattern is guaranteed to match,
// for select's exhaustiveness check: a wildcard or untyped bind covers
// the whole argument type, a typed bind covers its declared type, and
// composite patterns cover the composite of their element coverages. A
// literal pattern matches a single value, never a whole type, so it
// contributes nothing.
func patternCoverage(env *gxenv.Env, scope modpath.ModPath, p ast.Pattern, argType types.Type) (types.Type, error) {
	switch pk := p.(type) {
	case *ast.PatWildcard:
		return argType, nil

	case *ast.PatBind:
		if pk.Type != nil {
			return ResolveType(env, scope, pk.Type)
		}
		return argType, nil

	case *ast.PatLiteral:
		return types.Bottom{}, nil

	case *ast.PatTuple:
		elemTyps := tupleElemTypes(argType, len(pk.Elements))
		elems := make([]types.Type, len(pk.Elements))
		for i, sub := range pk.Elements {
			c, err := patternCoverage(env, scope, sub, elemTyps[i])
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return &types.Tuple{Elements: elems}, nil

	case *ast.PatStruct:
		fields := make([]types.StructField, len(pk.Fields))
		for i, f := range pk.Fields {
			c, err := patternCoverage(env, scope, f.Pattern, structFieldType(argType, f.Name))
			if err != nil {
				return nil, err
			}
			fields[i] = types.StructField{Name: f.Name, Type: c}
		}
		return types.NewStruct(fields), nil

	case *ast.PatVariant:
		argTyps := variantArgTypes(argType, pk.Tag, len(pk.Elements))
		args := make([]types.Type, len(pk.Elements))
		for i, sub := range pk.Elements {
			c, err := patternCoverage(env, scope, sub, argTyps[i])
			if err != nil {
				return nil, err
			}
			args[i] = c
		}
		return &types.Variant{Tag: pk.Tag, Args: args}, nil

	default:
		return types.Bottom{}, nil
	}
}

func tupleElemTypes(t types.Type, n int) []types.Type {
	out := make([]types.Type, n)
	if tt, ok := t.(*types.Tuple); ok && len(tt.Elements) == n {
		copy(out, tt.Elements)
		return out
	}
	for i := range out {
		out[i] = types.Any{}
	}
	return out
}

func structFieldType(t types.Type, name string) types.Type {
	if st, ok := t.(*types.Struct); ok {
		if ft, ok := st.Field(name); ok {
			return ft
		}
	}
	return types.Any{}
}

func variantArgTypes(t types.Type, tag string, n int) []types.Type {
	out := make([]types.Type, n)
	if v, ok := t.(*types.Variant); ok && v.Tag == tag && len(v.Args) == n {
		copy(out, v.Args)
		return out
	}
	for i := range out {
		out[i] = types.Any{}
	}
	return out
}
