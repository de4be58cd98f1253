// Package compile lowers a resolved AST into a graph of node.Node
// values, turning syntactic types (ast.Type) into the semantic type
// algebra along the way: a single recursive pass carrying a
// scope/env argument through every case, over a long-lived
// environment.
package compile

import (
	"fmt"
	"sync/atomic"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/types"
)

var tvarCounter uint64

// nextTVarId allocates a fresh identity for a freshly-parsed type
// variable. Containment/cycle checks compare TVar pointers, not Id, so
// this only needs to be unique, not globally meaningful.
func nextTVarId() uint64 { return atomic.AddUint64(&tvarCounter, 1) }

// ResolveType turns a parser-produced syntactic Type into the semantic
// algebra's Type. Named references become types.Ref values qualified by
// their scope (the current scope when unqualified); they are not looked
// up in env's typedef table here.
func ResolveType(env *gxenv.Env, scope modpath.ModPath, t ast.Type) (types.Type, error) {
	if t == nil {
		return &types.TVar{Name: "_", Id: nextTVarId()}, nil
	}
	switch k := t.(type) {
	case *ast.TyAny:
		return types.Any{}, nil
	case *ast.TyInfer:
		return &types.TVar{Name: "_", Id: nextTVarId()}, nil
	case *ast.TyVar:
		return &types.TVar{Name: k.Name, Id: nextTVarId()}, nil
	case *ast.TyPath:
		return resolveTyPath(env, scope, k)
	case *ast.TySet:
		members := make([]types.Type, len(k.Members))
		for i, m := range k.Members {
			mt, err := ResolveType(env, scope, m)
			if err != nil {
				return nil, err
			}
			members[i] = mt
		}
		var u types.Type = types.Bottom{}
		for _, m := range members {
			u = types.Union(u, m)
		}
		return u, nil
	case *ast.TyTuple:
		elems := make([]types.Type, len(k.Elements))
		for i, e := range k.Elements {
			et, err := ResolveType(env, scope, e)
			if err != nil {
				return nil, err
			}
			elems[i] = et
		}
		return &types.Tuple{Elements: elems}, nil
	case *ast.TyStruct:
		fields := make([]types.StructField, len(k.Fields))
		for i, f := range k.Fields {
			ft, err := ResolveType(env, scope, f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = types.StructField{Name: f.Name, Type: ft}
		}
		return types.NewStruct(fields), nil
	case *ast.TyVariant:
		args := make([]types.Type, len(k.Args))
		for i, a := range k.Args {
			at, err := ResolveType(env, scope, a)
			if err != nil {
				return nil, err
			}
			args[i] = at
		}
		return &types.Variant{Tag: k.Tag, Args: args}, nil
	case *ast.TyArray:
		el, err := ResolveType(env, scope, k.Element)
		if err != nil {
			return nil, err
		}
		return &types.Array{Elem: el}, nil
	case *ast.TyMap:
		kt, err := ResolveType(env, scope, k.Key)
		if err != nil {
			return nil, err
		}
		vt, err := ResolveType(env, scope, k.Value)
		if err != nil {
			return nil, err
		}
		return &types.Map{Key: kt, Value: vt}, nil
	case *ast.TyError:
		inner, err := ResolveType(env, scope, k.Inner)
		if err != nil {
			return nil, err
		}
		return &types.Error{Inner: inner}, nil
	case *ast.TyByRef:
		inner, err := ResolveType(env, scope, k.Inner)
		if err != nil {
			return nil, err
		}
		return &types.ByRef{Inner: inner}, nil
	case *ast.TyFn:
		return resolveTyFn(env, scope, k)
	default:
		return nil, fmt.Errorf("compile: unhandled syntactic type %T", t)
	}
}

func resolveTyPath(env *gxenv.Env, scope modpath.ModPath, k *ast.TyPath) (types.Type, error) {
	if prim, ok := primByName(k.Name); ok && k.Scope == "" && len(k.Params) == 0 {
		return types.NewPrimitive(prim), nil
	}
	params := make([]types.Type, len(k.Params))
	for i, p := range k.Params {
		pt, err := ResolveType(env, scope, p)
		if err != nil {
			return nil, err
		}
		params[i] = pt
	}
	refScope := k.Scope
	if refScope == "" {
		refScope = scope.String()
	}
	return &types.Ref{Scope: refScope, Name: k.Name, Params: params}, nil
}

func resolveTyFn(env *gxenv.Env, scope modpath.ModPath, k *ast.TyFn) (types.Type, error) {
	args := make([]types.FnArg, len(k.Args))
	for i, a := range k.Args {
		at, err := ResolveType(env, scope, a.Type)
		if err != nil {
			return nil, err
		}
		args[i] = types.FnArg{Label: a.Label, Optional: a.Optional, Type: at}
	}
	var vargs *types.FnArg
	if k.VArgs != nil {
		vt, err := ResolveType(env, scope, k.VArgs.Type)
		if err != nil {
			return nil, err
		}
		vargs = &types.FnArg{Label: k.VArgs.Label, Optional: k.VArgs.Optional, Type: vt}
	}
	ret, err := ResolveType(env, scope, k.Return)
	if err != nil {
		return nil, err
	}
	var throws types.Type = types.Bottom{}
	if k.Throws != nil {
		throws, err = ResolveType(env, scope, k.Throws)
		if err != nil {
			return nil, err
		}
	}
	constraints := make([]types.Constraint, len(k.Constraints))
	for i, c := range k.Constraints {
		bound, err := ResolveType(env, scope, c.Bound)
		if err != nil {
			return nil, err
		}
		constraints[i] = types.Constraint{TVar: &types.TVar{Name: c.TVar, Id: nextTVarId()}, Bound: bound}
	}
	return &types.Fn{Fn: &types.FnType{Args: args, VArgs: vargs, Return: ret, Throws: throws, Constraints: constraints}}, nil
}

func primByName(name string) (types.Prim, bool) {
	switch name {
	case "u32":
		return types.PU32, true
	case "v32":
		return types.PV32, true
	case "i32":
		return types.PI32, true
	case "z32":
		return types.PZ32, true
	case "u64":
		return types.PU64, true
	case "v64":
		return types.PV64, true
	case "i64":
		return types.PI64, true
	case "z64":
		return types.PZ64, true
	case "f32":
		return types.PF32, true
	case "f64":
		return types.PF64, true
	case "decimal":
		return types.PDecimal, true
	case "bool":
		return types.PBool, true
	case "string":
		return types.PString, true
	case "bytes":
		return types.PBytes, true
	case "null":
		return types.PNull, true
	case "datetime":
		return types.PDatetime, true
	case "duration":
		return types.PDuration, true
	}
	return 0, false
}
