package types

// Union returns the least supertype expressible in the algebra
//: primitives merge bitset-wise, structurally-identical
// composites stay collapsed, otherwise the operands are gathered into a
// Set and flattened.
func Union(a, b Type) Type {
	return flatten(merge(a, b))
}

// merge tries to collapse a and b into a single type without resorting
// to Set; it returns nil when no direct merge is possible (the caller
// then falls back to building a Set).
func merge(a, b Type) Type {
	if _, ok := a.(Bottom); ok {
		return b
	}
	if _, ok := b.(Bottom); ok {
		return a
	}
	if _, ok := a.(Any); ok {
		return a
	}
	if _, ok := b.(Any); ok {
		return b
	}
	if ap, ok := a.(*Primitive); ok {
		if bp, ok := b.(*Primitive); ok {
			merged := make(map[Prim]bool, len(ap.Set)+len(bp.Set))
			for p := range ap.Set {
				merged[p] = true
			}
			for p := range bp.Set {
				merged[p] = true
			}
			return &Primitive{Set: merged}
		}
	}
	if structurallyEqual(a, b) {
		return a
	}
	if aset, ok := a.(*Set); ok {
		return &Set{Members: append(append([]Type(nil), aset.Members...), b)}
	}
	if bset, ok := b.(*Set); ok {
		return &Set{Members: append([]Type{a}, bset.Members...)}
	}
	return &Set{Members: []Type{a, b}}
}

// flatten is an iterative fixpoint over a Set's children: collapse
// nested Sets, merge pairwise-compatible members, and short-circuit to
// Any if it ever appears.
func flatten(t Type) Type {
	s, ok := t.(*Set)
	if !ok {
		return t
	}

	for {
		var flat []Type
		for _, m := range s.Members {
			if inner, ok := m.(*Set); ok {
				flat = append(flat, inner.Members...)
			} else {
				flat = append(flat, m)
			}
		}
		for _, m := range flat {
			if _, ok := m.(Any); ok {
				return Any{}
			}
		}

		changed := false
		var reduced []Type
		for _, m := range flat {
			merged := false
			for i, r := range reduced {
				if mg, ok := tryMerge(r, m); ok {
					reduced[i] = mg
					merged = true
					changed = true
					break
				}
			}
			if !merged {
				reduced = append(reduced, m)
			}
		}

		if !changed && len(reduced) == len(s.Members) {
			if len(reduced) == 1 {
				return reduced[0]
			}
			return &Set{Members: reduced}
		}
		s = &Set{Members: reduced}
	}
}

// tryMerge merges two non-Set members when they are primitive (bitwise)
// or structurally identical; it never recurses into Set.
func tryMerge(a, b Type) (Type, bool) {
	if ap, ok := a.(*Primitive); ok {
		if bp, ok := b.(*Primitive); ok {
			merged := make(map[Prim]bool, len(ap.Set)+len(bp.Set))
			for p := range ap.Set {
				merged[p] = true
			}
			for p := range bp.Set {
				merged[p] = true
			}
			return &Primitive{Set: merged}, true
		}
		return nil, false
	}
	if structurallyEqual(a, b) {
		return a, true
	}
	return nil, false
}

func structurallyEqual(a, b Type) bool {
	return a.String() == b.String()
}

// Diff produces the best expressible A \ B: it removes
// primitive bits present in B, zeroes fully-overridden composite members,
// and is used by select's exhaustiveness check to compute "the rest of
// the union" after a match arm.
func Diff(a, b Type) Type {
	if _, ok := b.(Any); ok {
		return Bottom{}
	}
	if _, ok := a.(Bottom); ok {
		return Bottom{}
	}
	if _, ok := b.(Bottom); ok {
		return a
	}

	aset, aIsSet := a.(*Set)
	if !aIsSet {
		return diffOne(a, b)
	}

	var out []Type
	for _, m := range aset.Members {
		d := Diff(m, b)
		if _, isBottom := d.(Bottom); !isBottom {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return Bottom{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return flatten(&Set{Members: out})
}

// IsEmpty reports whether t denotes no values at all: Bottom or a
// Primitive with an empty tag set, the two empty shapes Diff produces.
func IsEmpty(t Type) bool {
	switch v := t.(type) {
	case Bottom:
		return true
	case *Primitive:
		return len(v.Set) == 0
	}
	return false
}

func diffOne(a, b Type) Type {
	if bset, ok := b.(*Set); ok {
		result := a
		for _, m := range bset.Members {
			result = diffOne(result, m)
			if _, isBottom := result.(Bottom); isBottom {
				return Bottom{}
			}
		}
		return result
	}

	ap, aIsPrim := a.(*Primitive)
	bp, bIsPrim := b.(*Primitive)
	if aIsPrim && bIsPrim {
		remaining := map[Prim]bool{}
		for p := range ap.Set {
			if !bp.Set[p] {
				remaining[p] = true
			}
		}
		if len(remaining) == 0 {
			return Bottom{}
		}
		return &Primitive{Set: remaining}
	}

	if structurallyEqual(a, b) {
		return Bottom{}
	}
	return a
}
