package types

// CouldMatch is the strictly structural, non-binding cousin of Contains
// used by pattern exhaustiveness and type guards: it
// never mutates a TVar and treats an unbound TVar as a wildcard that
// matches anything.
func CouldMatch(env TypeDefResolver, a, b Type) bool {
	return couldMatch(env, a, b, refPairCache{})
}

func couldMatch(env TypeDefResolver, a, b Type, cache refPairCache) bool {
	if _, ok := a.(Any); ok {
		return true
	}
	if _, ok := b.(Any); ok {
		return true
	}
	if _, ok := a.(Bottom); ok {
		return true
	}
	if _, ok := b.(Bottom); ok {
		return true
	}
	if atv, ok := a.(*TVar); ok {
		if bound := atv.Bound(); bound != nil {
			return couldMatch(env, bound, b, cache)
		}
		return true // unbound TVar is a wildcard
	}
	if btv, ok := b.(*TVar); ok {
		if bound := btv.Bound(); bound != nil {
			return couldMatch(env, a, bound, cache)
		}
		return true
	}

	switch av := a.(type) {
	case *Primitive:
		bv, ok := b.(*Primitive)
		if !ok {
			return false
		}
		for prim := range av.Set {
			if bv.Set[prim] {
				return true
			}
		}
		return false

	case *Array:
		bv, ok := b.(*Array)
		return ok && couldMatch(env, av.Elem, bv.Elem, cache)

	case *Map:
		bv, ok := b.(*Map)
		return ok && couldMatch(env, av.Key, bv.Key, cache) && couldMatch(env, av.Value, bv.Value, cache)

	case *ByRef:
		bv, ok := b.(*ByRef)
		return ok && couldMatch(env, av.Inner, bv.Inner, cache)

	case *Error:
		bv, ok := b.(*Error)
		return ok && couldMatch(env, av.Inner, bv.Inner, cache)

	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !couldMatch(env, av.Elements[i], bv.Elements[i], cache) {
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
			if !couldMatch(env, av.Fields[i].Type, bv.Fields[i].Type, cache) {
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
			if !couldMatch(env, av.Args[i], bv.Args[i], cache) {
				return false
			}
		}
		return true

	case *Set:
		for _, m := range av.Members {
			if couldMatch(env, m, b, cache) {
				return true
			}
		}
		return false

	case *Ref:
		if bv, ok := b.(*Ref); ok && av.Name == bv.Name && av.Scope == bv.Scope {
			return true
		}
		return derefRef(env, av, func(resolved Type) bool { return couldMatch(env, resolved, b, cache) })

	case *Fn:
		bv, ok := b.(*Fn)
		return ok && len(av.Fn.Args) == len(bv.Fn.Args)
	}

	if bset, ok := b.(*Set); ok {
		for _, m := range bset.Members {
			if couldMatch(env, a, m, cache) {
				return true
			}
		}
		return false
	}
	if bref, ok := b.(*Ref); ok {
		return derefRef(env, bref, func(resolved Type) bool { return couldMatch(env, a, resolved, cache) })
	}

	return false
}
