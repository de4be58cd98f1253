package types

// maxCycleDepth bounds the WouldCycle walk so a pathological recursive
// type alias cannot blow the stack.
const maxCycleDepth = 4096

// WouldCycle returns true if binding tv to t would make tv reachable
// from itself via its content chain. Checked on every
// TVar bind/alias.
func WouldCycle(tv *TVar, t Type) bool {
	return wouldCycle(tv, t, 0)
}

func wouldCycle(tv *TVar, t Type, depth int) bool {
	if depth > maxCycleDepth {
		return true // treat runaway depth as a cycle, fail closed
	}
	switch v := t.(type) {
	case *TVar:
		if v == tv || v.SharesCell(tv) {
			return true
		}
		if bound := v.Bound(); bound != nil {
			return wouldCycle(tv, bound, depth+1)
		}
		return false
	case *Array:
		return wouldCycle(tv, v.Elem, depth+1)
	case *Map:
		return wouldCycle(tv, v.Key, depth+1) || wouldCycle(tv, v.Value, depth+1)
	case *ByRef:
		return wouldCycle(tv, v.Inner, depth+1)
	case *Error:
		return wouldCycle(tv, v.Inner, depth+1)
	case *Tuple:
		for _, e := range v.Elements {
			if wouldCycle(tv, e, depth+1) {
				return true
			}
		}
		return false
	case *Struct:
		for _, f := range v.Fields {
			if wouldCycle(tv, f.Type, depth+1) {
				return true
			}
		}
		return false
	case *Variant:
		for _, a := range v.Args {
			if wouldCycle(tv, a, depth+1) {
				return true
			}
		}
		return false
	case *Set:
		for _, m := range v.Members {
			if wouldCycle(tv, m, depth+1) {
				return true
			}
		}
		return false
	case *Ref:
		for _, p := range v.Params {
			if wouldCycle(tv, p, depth+1) {
				return true
			}
		}
		return false
	case *Fn:
		for _, a := range v.Fn.Args {
			if wouldCycle(tv, a.Type, depth+1) {
				return true
			}
		}
		if v.Fn.VArgs != nil && wouldCycle(tv, v.Fn.VArgs.Type, depth+1) {
			return true
		}
		return wouldCycle(tv, v.Fn.Return, depth+1)
	default:
		return false
	}
}

// AliasTVars walks t and replaces every TVar with the same-named entry
// from subst, freezing the shared cell so further unification on a
// quantified parameter cannot collapse it into one specific call
// site.
func AliasTVars(t Type, subst map[string]*TVar) Type {
	switch v := t.(type) {
	case *TVar:
		if bound := v.Bound(); bound != nil {
			return AliasTVars(bound, subst)
		}
		if r, ok := subst[v.Name]; ok {
			r.Freeze()
			return r
		}
		return v
	case *Array:
		return &Array{Elem: AliasTVars(v.Elem, subst)}
	case *Map:
		return &Map{Key: AliasTVars(v.Key, subst), Value: AliasTVars(v.Value, subst)}
	case *ByRef:
		return &ByRef{Inner: AliasTVars(v.Inner, subst)}
	case *Error:
		return &Error{Inner: AliasTVars(v.Inner, subst)}
	case *Tuple:
		out := make([]Type, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = AliasTVars(e, subst)
		}
		return &Tuple{Elements: out}
	case *Struct:
		out := make([]StructField, len(v.Fields))
		for i, f := range v.Fields {
			out[i] = StructField{Name: f.Name, Type: AliasTVars(f.Type, subst)}
		}
		return &Struct{Fields: out}
	case *Variant:
		out := make([]Type, len(v.Args))
		for i, a := range v.Args {
			out[i] = AliasTVars(a, subst)
		}
		return &Variant{Tag: v.Tag, Args: out}
	case *Set:
		out := make([]Type, len(v.Members))
		for i, m := range v.Members {
			out[i] = AliasTVars(m, subst)
		}
		return &Set{Members: out}
	case *Ref:
		out := make([]Type, len(v.Params))
		for i, p := range v.Params {
			out[i] = AliasTVars(p, subst)
		}
		return &Ref{Scope: v.Scope, Name: v.Name, Params: out}
	default:
		return t
	}
}

// CollectTVars gathers every distinct unbound TVar reachable from t, in
// first-encounter order.
func CollectTVars(t Type) []*TVar {
	var out []*TVar
	seen := map[*TVar]bool{}
	var walk func(Type)
	walk = func(t Type) {
		switch v := t.(type) {
		case *TVar:
			if bound := v.Bound(); bound != nil {
				walk(bound)
				return
			}
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		case *Array:
			walk(v.Elem)
		case *Map:
			walk(v.Key)
			walk(v.Value)
		case *ByRef:
			walk(v.Inner)
		case *Error:
			walk(v.Inner)
		case *Tuple:
			for _, e := range v.Elements {
				walk(e)
			}
		case *Struct:
			for _, f := range v.Fields {
				walk(f.Type)
			}
		case *Variant:
			for _, a := range v.Args {
				walk(a)
			}
		case *Set:
			for _, m := range v.Members {
				walk(m)
			}
		case *Ref:
			for _, p := range v.Params {
				walk(p)
			}
		case *Fn:
			for _, a := range v.Fn.Args {
				walk(a.Type)
			}
			if v.Fn.VArgs != nil {
				walk(v.Fn.VArgs.Type)
			}
			walk(v.Fn.Return)
		}
	}
	walk(t)
	return out
}

// ResetTVars unbinds and unfreezes every TVar reachable from t, in
// place, so a polymorphic definition can be re-instantiated at a fresh
// call site.
func ResetTVars(t Type) {
	for _, tv := range CollectTVars(t) {
		tv.Unbind()
	}
}
