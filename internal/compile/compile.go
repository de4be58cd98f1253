package compile

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/gxerrors"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/types"
)

// Ctx threads the compile-time state every case needs: the scope a
// bare name resolves relative to, and the environment accumulating
// binds/typedefs/modules as declarations are walked.
type Ctx struct {
	Scope modpath.ModPath
	Env   *gxenv.Env
	// CatchId is the BindId of the nearest enclosing try/catch's catch
	// variable, used to compile a postfix Qop; zero outside any TryCatch.
	CatchId gxenv.BindId
}

// wrapErr adds the originating expression's position to a compile
// error, so the user sees the offending expression and position.
func wrapErr(e *ast.Expr, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", e.Pos.String(), err)
}

// Compile lowers a single expression into a Node, threading a
// (possibly extended) environment back out for the caller to continue
// compiling subsequent statements against.
func Compile(ctx *Ctx, e *ast.Expr) (node.Node, *gxenv.Env, error) {
	switch k := e.Kind.(type) {
	case *ast.Literal:
		v, typ, err := compileLiteral(k)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		return node.NewLiteral(e, typ, v), ctx.Env, nil

	case *ast.Name:
		id, ok := ctx.Env.Resolve(ctx.Scope, k.Name)
		if !ok {
			return nil, ctx.Env, wrapErr(e, fmt.Errorf("unbound name %q", k.Name))
		}
		b := ctx.Env.ByID[id]
		var typ types.Type = types.Any{}
		if b != nil {
			typ = b.Typ
		}
		return node.NewRef(e, typ, id), ctx.Env, nil

	case *ast.Reference:
		id := gxenv.BindId(k.BindId)
		b := ctx.Env.ByID[id]
		var typ types.Type = types.Any{}
		if b != nil {
			typ = b.Typ
		}
		return node.NewRef(e, typ, id), ctx.Env, nil

	case *ast.Let:
		return compileLet(ctx, e, k)

	case *ast.Lambda:
		n, err := compileLambda(ctx, e, k)
		return n, ctx.Env, err

	case *ast.Tuple:
		return compileHomogeneousList(ctx, e, k.Elements, func(children []node.Node, typs []types.Type) node.Node {
			return node.NewTuple(e, &types.Tuple{Elements: typs}, children)
		})

	case *ast.Array:
		return compileHomogeneousList(ctx, e, k.Elements, func(children []node.Node, typs []types.Type) node.Node {
			elem := types.Type(types.Bottom{})
			for _, t := range typs {
				elem = types.Union(elem, t)
			}
			return node.NewArray(e, &types.Array{Elem: elem}, children)
		})

	case *ast.Struct:
		names := make([]string, len(k.Fields))
		exprs := make([]*ast.Expr, len(k.Fields))
		for i, f := range k.Fields {
			names[i] = f.Name
			exprs[i] = f.Value
		}
		return compileHomogeneousList(ctx, e, exprs, func(children []node.Node, typs []types.Type) node.Node {
			fields := make([]types.StructField, len(names))
			for i, n := range names {
				fields[i] = types.StructField{Name: n, Type: typs[i]}
			}
			return node.NewStruct(e, types.NewStruct(fields), names, children)
		})

	case *ast.Variant:
		return compileHomogeneousList(ctx, e, k.Args, func(children []node.Node, typs []types.Type) node.Node {
			return node.NewVariant(e, &types.Variant{Tag: k.Tag, Args: typs}, k.Tag, children)
		})

	case *ast.BinOp:
		l, _, err := Compile(ctx, k.Left)
		if err != nil {
			return nil, ctx.Env, err
		}
		r, _, err := Compile(ctx, k.Right)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewBinOp(e, binOpResultType(k.Op), k.Op, l, r), ctx.Env, nil

	case *ast.Cast:
		target, err := ResolveType(ctx.Env, ctx.Scope, k.Type)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewCast(e, ctx.Env, target, child), ctx.Env, nil

	case *ast.Connect:
		id, ok := ctx.Env.Resolve(ctx.Scope, k.Name)
		if !ok {
			return nil, ctx.Env, wrapErr(e, fmt.Errorf("connect to unbound name %q", k.Name))
		}
		if k.Deref {
			if chain := ctx.Env.ByrefChain[id]; chain != 0 {
				id = chain
			}
		}
		value, _, err := Compile(ctx, k.Value)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewConnect(e, value.Typ(), id, k.Deref, value), ctx.Env, nil

	case *ast.ByRef:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		handle := gxenv.NextBindId()
		_ = child
		return node.NewByRef(e, &types.ByRef{Inner: types.Any{}}, handle), ctx.Env, nil

	case *ast.Deref:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewDeref(e, types.Any{}, child), ctx.Env, nil

	case *ast.Qop:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		if ctx.CatchId == 0 {
			return nil, ctx.Env, wrapErr(e, fmt.Errorf("`?` used outside any try/catch"))
		}
		// The wrap chains the diverted error: the innermost original
		// error is copied forward and the prior chain lands under
		// `cause`, stamped with this expression's origin and position.
		pos, origin := e.Pos, e.Origin.String()
		wrap := func(v types.Value) types.Value {
			return gxerrors.ChainErrorValue(v, pos, origin)
		}
		return node.NewQop(e, child.Typ(), child, ctx.CatchId, wrap), ctx.Env, nil

	case *ast.OrNever:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewOrNever(e, child.Typ(), child), ctx.Env, nil

	case *ast.TryCatch:
		return compileTryCatch(ctx, e, k)

	case *ast.Select:
		return compileSelect(ctx, e, k)

	case *ast.Any:
		children := make([]node.Node, len(k.Args))
		for i, a := range k.Args {
			c, _, err := Compile(ctx, a)
			if err != nil {
				return nil, ctx.Env, err
			}
			children[i] = c
		}
		var typ types.Type = types.Bottom{}
		for _, c := range children {
			typ = types.Union(typ, c.Typ())
		}
		return node.NewAny(e, typ, children), ctx.Env, nil

	case *ast.Sample:
		trig, _, err := Compile(ctx, k.Trigger)
		if err != nil {
			return nil, ctx.Env, err
		}
		arg, _, err := Compile(ctx, k.Arg)
		if err != nil {
			return nil, ctx.Env, err
		}
		return node.NewSample(e, arg.Typ(), trig, arg), ctx.Env, nil

	case *ast.Do:
		return compileDo(ctx, e, k)

	case *ast.StructRef:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		typ := types.Type(types.Any{})
		if st, ok := child.Typ().(*types.Struct); ok {
			if ft, ok := st.Field(k.Field); ok {
				typ = ft
			}
		}
		return node.NewStructRef(e, typ, child, k.Field), ctx.Env, nil

	case *ast.TupleRef:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		typ := types.Type(types.Any{})
		if tt, ok := child.Typ().(*types.Tuple); ok && k.Index < len(tt.Elements) {
			typ = tt.Elements[k.Index]
		}
		return node.NewTupleRef(e, typ, child, k.Index), ctx.Env, nil

	case *ast.ArrayRef:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		index, _, err := Compile(ctx, k.Index)
		if err != nil {
			return nil, ctx.Env, err
		}
		typ := types.Type(types.Any{})
		if at, ok := child.Typ().(*types.Array); ok {
			typ = at.Elem
		}
		return node.NewArrayRef(e, typ, child, index), ctx.Env, nil

	case *ast.ArraySlice:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		var from, to node.Node
		if k.From != nil {
			from, _, err = Compile(ctx, k.From)
			if err != nil {
				return nil, ctx.Env, err
			}
		}
		if k.To != nil {
			to, _, err = Compile(ctx, k.To)
			if err != nil {
				return nil, ctx.Env, err
			}
		}
		return node.NewArraySlice(e, child.Typ(), child, from, to), ctx.Env, nil

	case *ast.MapRef:
		child, _, err := Compile(ctx, k.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		key, _, err := Compile(ctx, k.Key)
		if err != nil {
			return nil, ctx.Env, err
		}
		typ := types.Type(types.Any{})
		if mt, ok := child.Typ().(*types.Map); ok {
			typ = mt.Value
		}
		return node.NewMapRef(e, typ, child, key), ctx.Env, nil

	case *ast.Apply:
		return compileApply(ctx, e, k)

	case *ast.StringInterpolate:
		return compileStringInterpolate(ctx, e, k)

	case *ast.MapLit:
		return compileMapLit(ctx, e, k)

	case *ast.StructWith:
		return compileStructWith(ctx, e, k)

	case *ast.TypeDecl:
		params := make([]*types.TVar, len(k.Params))
		for i, p := range k.Params {
			params[i] = &types.TVar{Name: p, Id: nextTVarId()}
		}
		def, err := ResolveType(ctx.Env, ctx.Scope, k.Def)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		env2, err := ctx.Env.DefType(ctx.Scope, k.Name, params, def)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		return node.NewLiteral(e, types.Bottom{}, types.Value{Kind: types.VNull}), env2, nil

	case *ast.Use:
		used := modpath.Parse(k.Path)
		return node.NewLiteral(e, types.Bottom{}, types.Value{Kind: types.VNull}), ctx.Env.Use(ctx.Scope, used), nil

	case *ast.ModuleDecl:
		return compileModule(ctx, e, k)

	default:
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("unhandled expression kind %T", k))
	}
}

func compileHomogeneousList(ctx *Ctx, e *ast.Expr, exprs []*ast.Expr, build func([]node.Node, []types.Type) node.Node) (node.Node, *gxenv.Env, error) {
	children := make([]node.Node, len(exprs))
	typs := make([]types.Type, len(exprs))
	for i, ex := range exprs {
		c, _, err := Compile(ctx, ex)
		if err != nil {
			return nil, ctx.Env, err
		}
		children[i] = c
		typs[i] = c.Typ()
	}
	return build(children, typs), ctx.Env, nil
}

func compileLiteral(k *ast.Literal) (types.Value, types.Type, error) {
	switch k.Kind {
	case ast.LitBool:
		b, _ := k.Value.(bool)
		return types.Value{Kind: types.VBool, Bool: b}, types.NewPrimitive(types.PBool), nil
	case ast.LitString:
		s, _ := k.Value.(string)
		return types.Value{Kind: types.VString, Str: s}, types.NewPrimitive(types.PString), nil
	case ast.LitNull:
		return types.Value{Kind: types.VNull}, types.NewPrimitive(types.PNull), nil
	case ast.LitF32, ast.LitF64:
		f, _ := k.Value.(float64)
		return types.Value{Kind: types.VFloat, Float: f}, types.NewPrimitive(primForLit(k.Kind)), nil
	case ast.LitDecimal:
		f, _ := k.Value.(float64)
		return types.Value{Kind: types.VDecimal, Float: f}, types.NewPrimitive(types.PDecimal), nil
	default:
		i, _ := k.Value.(int64)
		return types.Value{Kind: types.VInt, Int: i}, types.NewPrimitive(primForLit(k.Kind)), nil
	}
}

func primForLit(k ast.LiteralKind) types.Prim {
	switch k {
	case ast.LitU32:
		return types.PU32
	case ast.LitV32:
		return types.PV32
	case ast.LitI32:
		return types.PI32
	case ast.LitZ32:
		return types.PZ32
	case ast.LitU64:
		return types.PU64
	case ast.LitV64:
		return types.PV64
	case ast.LitI64:
		return types.PI64
	case ast.LitZ64:
		return types.PZ64
	case ast.LitF32:
		return types.PF32
	case ast.LitF64:
		return types.PF64
	case ast.LitDatetime:
		return types.PDatetime
	case ast.LitDuration:
		return types.PDuration
	default:
		return types.PI64
	}
}

func binOpResultType(op ast.BinOpKind) types.Type {
	switch op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte, ast.OpAnd, ast.OpOr:
		return types.NewPrimitive(types.PBool)
	default:
		return types.Any{}
	}
}
