package types

import "fmt"

// Flags control contains' side effects on TVars.
// Unification falls out of containment plus these two flags.
type Flags struct {
	InitTVars  bool // bind an unbound TVar to make containment hold
	AliasTVars bool // prefer sharing storage when both sides are unbound TVars
}

// refPairCache breaks Ref<->Ref recursion cycles: once we've started
// checking `A ⊇ B` for a given pointer pair, further recursive checks of
// the same pair optimistically assume it holds.
type refPairCache map[[2]*Ref]bool

// Contains decides whether every value of type b is a value of type a,
// i.e. `a ⊇ b`. env resolves Ref types against declared typedefs; nil is
// fine as long as no Ref appears.
func Contains(env TypeDefResolver, a, b Type, flags Flags) bool {
	return contains(env, a, b, flags, refPairCache{})
}

// CheckContains is Contains plus a descriptive error on failure.
func CheckContains(env TypeDefResolver, a, b Type) error {
	if Contains(env, a, b, Flags{InitTVars: true, AliasTVars: true}) {
		return nil
	}
	return fmt.Errorf("type mismatch: %s does not contain %s", a, b)
}

func contains(env TypeDefResolver, a, b Type, flags Flags, cache refPairCache) bool {
	if _, ok := a.(Any); ok {
		return true
	}
	if _, ok := b.(Bottom); ok {
		return true
	}
	if _, ok := a.(Bottom); ok {
		return true // bidirectional identity at Bottom
	}

	if atv, ok := a.(*TVar); ok {
		return containsFromTVarSide(env, atv, b, flags, cache)
	}
	if btv, ok := b.(*TVar); ok {
		return containsIntoTVar(env, a, btv, flags, cache)
	}

	switch av := a.(type) {
	case *Primitive:
		bv, ok := b.(*Primitive)
		return ok && bv.isSubsetOf(av)

	case *Array:
		bv, ok := b.(*Array)
		return ok && contains(env, av.Elem, bv.Elem, flags, cache)

	case *Map:
		bv, ok := b.(*Map)
		return ok && contains(env, av.Key, bv.Key, flags, cache) && contains(env, av.Value, bv.Value, flags, cache)

	case *ByRef:
		bv, ok := b.(*ByRef)
		return ok && contains(env, av.Inner, bv.Inner, flags, cache)

	case *Error:
		bv, ok := b.(*Error)
		return ok && contains(env, av.Inner, bv.Inner, flags, cache)

	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !contains(env, av.Elements[i], bv.Elements[i], flags, cache) {
				return false
			}
		}
		return true

	case *Struct:
		bv, ok := b.(*Struct)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if av.Fields[i].Name != bv.Fields[i].Name {
				return false
			}
			if !contains(env, av.Fields[i].Type, bv.Fields[i].Type, flags, cache) {
				return false
			}
		}
		return true

	case *Variant:
		bv, ok := b.(*Variant)
		if !ok || av.Tag != bv.Tag || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !contains(env, av.Args[i], bv.Args[i], flags, cache) {
				return false
			}
		}
		return true

	case *Set:
		// A ⊇ Set(s) iff every member of s is ⊆ A.
		if bset, ok := b.(*Set); ok {
			for _, m := range bset.Members {
				if !contains(env, a, m, flags, cache) {
					return false
				}
			}
			return true
		}
		return containsSetOverNonSet(env, av, b, flags, cache)

	case *Ref:
		bv, ok := b.(*Ref)
		if ok && av.Name == bv.Name && av.Scope == bv.Scope && len(av.Params) == len(bv.Params) {
			key := [2]*Ref{av, bv}
			if done, seen := cache[key]; seen {
				return done
			}
			cache[key] = true // optimistic recursion guard
			for i := range av.Params {
				if !contains(env, av.Params[i], bv.Params[i], flags, cache) {
					cache[key] = false
					return false
				}
			}
			return true
		}
		return derefRef(env, av, func(resolved Type) bool {
			return contains(env, resolved, b, flags, cache)
		})

	case *Fn:
		bv, ok := b.(*Fn)
		return ok && containsFn(env, av.Fn, bv.Fn, flags, cache)
	}

	if bref, ok := b.(*Ref); ok {
		return derefRef(env, bref, func(resolved Type) bool {
			return contains(env, a, resolved, flags, cache)
		})
	}

	return false
}

// Set(B) wildcard clause: Set(s) ⊇ B iff some member covers B, and every
// primitive in B is covered by some member.
func containsSetOverNonSet(env TypeDefResolver, s *Set, b Type, flags Flags, cache refPairCache) bool {
	for _, m := range s.Members {
		if contains(env, m, b, flags, cache) {
			return true
		}
	}
	bp, ok := b.(*Primitive)
	if !ok {
		return false
	}
	for prim := range bp.Set {
		covered := false
		for _, m := range s.Members {
			if mp, ok := m.(*Primitive); ok && mp.Set[prim] {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func derefRef(env TypeDefResolver, r *Ref, f func(Type) bool) bool {
	if env == nil {
		return false
	}
	def, ok := env.LookupTypeDef(r.Scope, r.Name)
	if !ok {
		return false
	}
	resolved := instantiate(def, r.Params)
	return f(resolved)
}

// instantiate substitutes a typedef's declared TVar params with the
// Ref's actual arguments.
func instantiate(def *TypeDef, params []Type) Type {
	subst := make(map[string]Type, len(def.Params))
	for i, p := range def.Params {
		if i < len(params) {
			subst[p.Name] = params[i]
		}
	}
	return substituteTVars(def.Body, subst)
}

func substituteTVars(t Type, subst map[string]Type) Type {
	switch v := t.(type) {
	case *TVar:
		if bound := v.Bound(); bound != nil {
			return substituteTVars(bound, subst)
		}
		if r, ok := subst[v.Name]; ok {
			return r
		}
		return v
	case *Array:
		return &Array{Elem: substituteTVars(v.Elem, subst)}
	case *Map:
		return &Map{Key: substituteTVars(v.Key, subst), Value: substituteTVars(v.Value, subst)}
	case *ByRef:
		return &ByRef{Inner: substituteTVars(v.Inner, subst)}
	case *Error:
		return &Error{Inner: substituteTVars(v.Inner, subst)}
	case *Tuple:
		out := make([]Type, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = substituteTVars(e, subst)
		}
		return &Tuple{Elements: out}
	case *Struct:
		out := make([]StructField, len(v.Fields))
		for i, f := range v.Fields {
			out[i] = StructField{Name: f.Name, Type: substituteTVars(f.Type, subst)}
		}
		return &Struct{Fields: out}
	case *Variant:
		out := make([]Type, len(v.Args))
		for i, a := range v.Args {
			out[i] = substituteTVars(a, subst)
		}
		return &Variant{Tag: v.Tag, Args: out}
	case *Set:
		out := make([]Type, len(v.Members))
		for i, m := range v.Members {
			out[i] = substituteTVars(m, subst)
		}
		return &Set{Members: out}
	case *Ref:
		out := make([]Type, len(v.Params))
		for i, p := range v.Params {
			out[i] = substituteTVars(p, subst)
		}
		return &Ref{Scope: v.Scope, Name: v.Name, Params: out}
	default:
		return t
	}
}

func containsFn(env TypeDefResolver, af, bf *FnType, flags Flags, cache refPairCache) bool {
	if len(af.Args) != len(bf.Args) {
		return false
	}
	// Function containment is contravariant in arguments, covariant in
	// return/throws.
	for i := range af.Args {
		if af.Args[i].Label != bf.Args[i].Label {
			return false
		}
		if !contains(env, bf.Args[i].Type, af.Args[i].Type, flags, cache) {
			return false
		}
	}
	if (af.VArgs == nil) != (bf.VArgs == nil) {
		return false
	}
	if af.VArgs != nil && !contains(env, bf.VArgs.Type, af.VArgs.Type, flags, cache) {
		return false
	}
	if !contains(env, af.Return, bf.Return, flags, cache) {
		return false
	}
	return contains(env, af.Throws, bf.Throws, flags, cache)
}

// containsFromTVarSide handles `A ⊇ B` when A is a TVar.
func containsFromTVarSide(env TypeDefResolver, a *TVar, b Type, flags Flags, cache refPairCache) bool {
	if bound := a.Bound(); bound != nil {
		return contains(env, bound, b, flags, cache)
	}
	if btv, ok := b.(*TVar); ok {
		return aliasOrBindTVarPair(a, btv, flags)
	}
	if !flags.InitTVars {
		return false
	}
	if WouldCycle(a, b) {
		return false
	}
	a.Bind(b)
	return true
}

// containsIntoTVar handles `A ⊇ B` when B is an unbound TVar (A concrete).
func containsIntoTVar(env TypeDefResolver, a Type, b *TVar, flags Flags, cache refPairCache) bool {
	if bound := b.Bound(); bound != nil {
		return contains(env, a, bound, flags, cache)
	}
	if !flags.InitTVars {
		return false
	}
	if WouldCycle(b, a) {
		return false
	}
	b.Bind(a)
	return true
}

// aliasOrBindTVarPair handles an unbound TVar a against TVar b: when
// both are unbound prefer aliasing (shared storage) unless either is
// frozen; when b is bound, copy its binding to a under InitTVars.
func aliasOrBindTVarPair(a, b *TVar, flags Flags) bool {
	if a == b || a.SharesCell(b) {
		return true
	}
	if bound := b.Bound(); bound != nil {
		if flags.InitTVars && !WouldCycle(a, bound) {
			a.Bind(bound)
		}
		return true
	}
	if flags.AliasTVars && !a.IsFrozen() && !b.IsFrozen() {
		// cell_of(b) := cell_of(a): both names now observe binds made
		// through either.
		b.AliasTo(a)
	}
	return true
}
