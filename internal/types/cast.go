package types

import (
	"fmt"
	"strconv"
)

// CastValue coerces v to target structurally, component by component.
// It returns an error describing the failed coercion
// rather than panicking, so the compiler's Cast node can surface it as
// a Graphix-level Error value.
func CastValue(env TypeDefResolver, target Type, v Value) (Value, error) {
	switch t := target.(type) {
	case Any:
		return v, nil

	case *Primitive:
		for prim := range t.Set {
			if cv, ok := castToPrim(prim, v); ok {
				return cv, nil
			}
		}
		return Value{}, fmt.Errorf("cannot cast %s to %s", v, target)

	case *Array:
		if v.Kind == VArray {
			out := make([]Value, len(v.Elems))
			for i, e := range v.Elems {
				cv, err := CastValue(env, t.Elem, e)
				if err != nil {
					return Value{}, err
				}
				out[i] = cv
			}
			return Value{Kind: VArray, Elems: out}, nil
		}
		// a scalar casts to a 1-element array
		cv, err := CastValue(env, t.Elem, v)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: VArray, Elems: []Value{cv}}, nil

	case *Map:
		return castToMap(env, t, v)

	case *Tuple:
		if v.Kind != VTuple || len(v.Elems) != len(t.Elements) {
			return Value{}, fmt.Errorf("cannot cast %s to %s: arity mismatch", v, target)
		}
		out := make([]Value, len(t.Elements))
		for i, e := range v.Elems {
			cv, err := CastValue(env, t.Elements[i], e)
			if err != nil {
				return Value{}, err
			}
			out[i] = cv
		}
		return Value{Kind: VTuple, Elems: out}, nil

	case *Struct:
		if v.Kind != VStruct || len(v.Fields) != len(t.Fields) {
			return Value{}, fmt.Errorf("cannot cast %s to %s: field mismatch", v, target)
		}
		out := make(map[string]Value, len(t.Fields))
		for _, f := range t.Fields {
			fv, ok := v.Fields[f.Name]
			if !ok {
				return Value{}, fmt.Errorf("cannot cast %s to %s: missing field %q", v, target, f.Name)
			}
			cv, err := CastValue(env, f.Type, fv)
			if err != nil {
				return Value{}, err
			}
			out[f.Name] = cv
		}
		return Value{Kind: VStruct, Fields: out}, nil

	case *Variant:
		if v.Kind != VVariant || v.Tag != t.Tag || len(v.Args) != len(t.Args) {
			return Value{}, fmt.Errorf("cannot cast %s to %s", v, target)
		}
		out := make([]Value, len(t.Args))
		for i, a := range v.Args {
			cv, err := CastValue(env, t.Args[i], a)
			if err != nil {
				return Value{}, err
			}
			out[i] = cv
		}
		return Value{Kind: VVariant, Tag: t.Tag, Args: out}, nil

	case *Error:
		if v.Kind == VError && v.Inner != nil {
			cv, err := CastValue(env, t.Inner, *v.Inner)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: VError, Inner: &cv}, nil
		}
		cv, err := CastValue(env, t.Inner, v)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: VError, Inner: &cv}, nil

	case *Set:
		var lastErr error
		for _, m := range t.Members {
			cv, err := CastValue(env, m, v)
			if err == nil {
				return cv, nil
			}
			lastErr = err
		}
		return Value{}, fmt.Errorf("cannot cast %s to any member of %s: %w", v, target, lastErr)

	case *TVar:
		if bound := t.Bound(); bound != nil {
			return CastValue(env, bound, v)
		}
		return v, nil // unbound: identity

	case *Fn, *ByRef:
		return Value{}, fmt.Errorf("%s is not castable", target)

	case *Ref:
		if env == nil {
			return Value{}, fmt.Errorf("cannot cast to unresolved type %s", target)
		}
		def, ok := env.LookupTypeDef(t.Scope, t.Name)
		if !ok {
			return Value{}, fmt.Errorf("cannot cast to unknown type %s", target)
		}
		return CastValue(env, instantiate(def, t.Params), v)

	default:
		return Value{}, fmt.Errorf("cannot cast %s to %s", v, target)
	}
}

func castToPrim(p Prim, v Value) (Value, bool) {
	switch p {
	case PBool:
		if v.Kind == VBool {
			return v, true
		}
	case PString:
		if v.Kind == VString {
			return v, true
		}
		switch v.Kind {
		case VInt, VFloat, VBool:
			return Value{Kind: VString, Str: v.String()}, true
		}
	case PBytes:
		if v.Kind == VBytes {
			return v, true
		}
	case PNull:
		if v.Kind == VNull {
			return v, true
		}
	case PU32, PV32, PI32, PZ32, PU64, PV64, PI64, PZ64:
		if v.Kind == VInt {
			return Value{Kind: VInt, Int: v.Int}, true
		}
		if v.Kind == VFloat {
			return Value{Kind: VInt, Int: int64(v.Float)}, true
		}
		if v.Kind == VString {
			if n, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
				return Value{Kind: VInt, Int: n}, true
			}
		}
	case PF32, PF64:
		if v.Kind == VFloat {
			return v, true
		}
		if v.Kind == VInt {
			return Value{Kind: VFloat, Float: float64(v.Int)}, true
		}
		if v.Kind == VString {
			if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
				return Value{Kind: VFloat, Float: f}, true
			}
		}
	case PDecimal:
		if v.Kind == VDecimal || v.Kind == VFloat {
			return Value{Kind: VDecimal, Float: v.Float}, true
		}
	case PDatetime:
		if v.Kind == VDatetime {
			return v, true
		}
	case PDuration:
		if v.Kind == VDuration {
			return v, true
		}
	}
	return Value{}, false
}

func castToMap(env TypeDefResolver, t *Map, v Value) (Value, error) {
	if v.Kind == VMap {
		keys := make([]Value, len(v.MapKeys))
		vals := make(map[string]Value, len(v.MapElems))
		for i, k := range v.MapKeys {
			ck, err := CastValue(env, t.Key, k)
			if err != nil {
				return Value{}, err
			}
			cv, err := CastValue(env, t.Value, v.MapElems[k.String()])
			if err != nil {
				return Value{}, err
			}
			keys[i] = ck
			vals[ck.String()] = cv
		}
		return Value{Kind: VMap, MapKeys: keys, MapElems: vals}, nil
	}
	if v.Kind == VArray {
		keys := make([]Value, 0, len(v.Elems))
		vals := make(map[string]Value, len(v.Elems))
		for _, pair := range v.Elems {
			if pair.Kind != VArray || len(pair.Elems) != 2 {
				return Value{}, fmt.Errorf("cannot cast %s to Map: expected 2-element arrays", v)
			}
			ck, err := CastValue(env, t.Key, pair.Elems[0])
			if err != nil {
				return Value{}, err
			}
			cv, err := CastValue(env, t.Value, pair.Elems[1])
			if err != nil {
				return Value{}, err
			}
			keys = append(keys, ck)
			vals[ck.String()] = cv
		}
		return Value{Kind: VMap, MapKeys: keys, MapElems: vals}, nil
	}
	return Value{}, fmt.Errorf("cannot cast %s to Map", v)
}

// IsA is the cycle-aware structural test "does v already have type t",
// used by runtime type guards (`select` arm predicates). Unlike
// CastValue it never coerces: a string holding digits is not an i64.
// Recursion is value-driven, so recursive named types terminate.
func IsA(env TypeDefResolver, t Type, v Value) bool {
	switch k := t.(type) {
	case Any:
		return true
	case Bottom:
		return false
	case *Primitive:
		for prim := range k.Set {
			if primMatches(prim, v) {
				return true
			}
		}
		return false
	case *Array:
		if v.Kind != VArray {
			return false
		}
		for _, e := range v.Elems {
			if !IsA(env, k.Elem, e) {
				return false
			}
		}
		return true
	case *Map:
		if v.Kind != VMap {
			return false
		}
		for _, mk := range v.MapKeys {
			if !IsA(env, k.Key, mk) || !IsA(env, k.Value, v.MapElems[mk.String()]) {
				return false
			}
		}
		return true
	case *Tuple:
		if v.Kind != VTuple || len(v.Elems) != len(k.Elements) {
			return false
		}
		for i, e := range v.Elems {
			if !IsA(env, k.Elements[i], e) {
				return false
			}
		}
		return true
	case *Struct:
		if v.Kind != VStruct || len(v.Fields) != len(k.Fields) {
			return false
		}
		for _, f := range k.Fields {
			fv, ok := v.Fields[f.Name]
			if !ok || !IsA(env, f.Type, fv) {
				return false
			}
		}
		return true
	case *Variant:
		if v.Kind != VVariant || v.Tag != k.Tag || len(v.Args) != len(k.Args) {
			return false
		}
		for i, a := range v.Args {
			if !IsA(env, k.Args[i], a) {
				return false
			}
		}
		return true
	case *Error:
		if v.Kind != VError {
			return false
		}
		if v.Inner == nil {
			return false
		}
		return IsA(env, k.Inner, *v.Inner)
	case *Set:
		for _, m := range k.Members {
			if IsA(env, m, v) {
				return true
			}
		}
		return false
	case *TVar:
		if bound := k.Bound(); bound != nil {
			return IsA(env, bound, v)
		}
		return true
	case *Fn:
		return v.Kind == VLambdaId
	case *ByRef:
		return v.Kind == VByRef
	case *Ref:
		if env == nil {
			return false
		}
		def, ok := env.LookupTypeDef(k.Scope, k.Name)
		if !ok {
			return false
		}
		return IsA(env, instantiate(def, k.Params), v)
	default:
		return false
	}
}

func primMatches(p Prim, v Value) bool {
	switch p {
	case PBool:
		return v.Kind == VBool
	case PString:
		return v.Kind == VString
	case PBytes:
		return v.Kind == VBytes
	case PNull:
		return v.Kind == VNull
	case PU32, PV32, PI32, PZ32, PU64, PV64, PI64, PZ64:
		return v.Kind == VInt
	case PF32, PF64:
		return v.Kind == VFloat
	case PDecimal:
		return v.Kind == VDecimal
	case PDatetime:
		return v.Kind == VDatetime
	case PDuration:
		return v.Kind == VDuration
	}
	return false
}
