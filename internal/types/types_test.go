package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsAnyAndBottom(t *testing.T) {
	require.True(t, Contains(nil, Any{}, NewPrimitive(PI64), Flags{}))
	require.True(t, Contains(nil, NewPrimitive(PI64), Bottom{}, Flags{}))
	require.True(t, Contains(nil, Bottom{}, NewPrimitive(PI64), Flags{}))
}

func TestContainsPrimitiveSubset(t *testing.T) {
	both := NewPrimitive(PI64, PF64)
	require.True(t, Contains(nil, both, NewPrimitive(PI64), Flags{}))
	require.False(t, Contains(nil, NewPrimitive(PI64), both, Flags{}))
}

func TestContainsStructPairwise(t *testing.T) {
	a := NewStruct([]StructField{{Name: "x", Type: NewPrimitive(PI64)}, {Name: "y", Type: NewPrimitive(PI64)}})
	b := NewStruct([]StructField{{Name: "x", Type: NewPrimitive(PI64)}, {Name: "y", Type: NewPrimitive(PI64)}})
	require.True(t, Contains(nil, a, b, Flags{}))
}

func TestContainsTVarBindsUnderInitFlag(t *testing.T) {
	tv := &TVar{Name: "a"}
	require.True(t, Contains(nil, tv, NewPrimitive(PI64), Flags{InitTVars: true}))
	require.NotNil(t, tv.Bound())
}

func TestContainsTVarRefusesWithoutInitFlag(t *testing.T) {
	tv := &TVar{Name: "a"}
	require.False(t, Contains(nil, tv, NewPrimitive(PI64), Flags{}))
	require.Nil(t, tv.Bound())
}

func TestCouldMatchTreatsUnboundTVarAsWildcard(t *testing.T) {
	tv := &TVar{Name: "a"}
	require.True(t, CouldMatch(nil, tv, NewPrimitive(PI64)))
	require.Nil(t, tv.Bound()) // must not mutate
}

func TestUnionMergesPrimitives(t *testing.T) {
	u := Union(NewPrimitive(PI64), NewPrimitive(PF64))
	p, ok := u.(*Primitive)
	require.True(t, ok)
	require.True(t, p.Set[PI64])
	require.True(t, p.Set[PF64])
}

func TestUnionOfIdenticalStructsCollapses(t *testing.T) {
	s := NewStruct([]StructField{{Name: "x", Type: NewPrimitive(PI64)}})
	u := Union(s, NewStruct([]StructField{{Name: "x", Type: NewPrimitive(PI64)}}))
	_, isSet := u.(*Set)
	require.False(t, isSet)
}

func TestUnionOfDistinctShapesFormsSet(t *testing.T) {
	u := Union(NewPrimitive(PI64), &Tuple{Elements: []Type{NewPrimitive(PI64), NewPrimitive(PI64)}})
	s, ok := u.(*Set)
	require.True(t, ok)
	require.Len(t, s.Members, 2)
}

func TestDiffRemovesPrimitiveBits(t *testing.T) {
	both := NewPrimitive(PI64, PF64)
	d := Diff(both, NewPrimitive(PI64))
	p, ok := d.(*Primitive)
	require.True(t, ok)
	require.False(t, p.Set[PI64])
	require.True(t, p.Set[PF64])
}

func TestDiffToBottomWhenFullyRemoved(t *testing.T) {
	d := Diff(NewPrimitive(PI64), NewPrimitive(PI64))
	_, ok := d.(Bottom)
	require.True(t, ok)
}

func TestWouldCycleDetectsSelfReference(t *testing.T) {
	tv := &TVar{Name: "a"}
	arr := &Array{Elem: tv}
	require.True(t, WouldCycle(tv, arr))
}

func TestWouldCycleFalseForUnrelatedType(t *testing.T) {
	tv := &TVar{Name: "a"}
	require.False(t, WouldCycle(tv, NewPrimitive(PI64)))
}

func TestCastValuePrimitiveWidening(t *testing.T) {
	v, err := CastValue(nil, NewPrimitive(PF64), Value{Kind: VInt, Int: 3})
	require.NoError(t, err)
	require.Equal(t, VFloat, v.Kind)
	require.Equal(t, 3.0, v.Float)
}

func TestCastValueScalarToArray(t *testing.T) {
	v, err := CastValue(nil, &Array{Elem: NewPrimitive(PI64)}, Value{Kind: VInt, Int: 5})
	require.NoError(t, err)
	require.Equal(t, VArray, v.Kind)
	require.Len(t, v.Elems, 1)
}

func TestCastValueRefusesFn(t *testing.T) {
	_, err := CastValue(nil, &Fn{Fn: &FnType{Return: Bottom{}, Throws: Bottom{}}}, Value{Kind: VInt, Int: 1})
	require.Error(t, err)
}

func TestIsAIsStrict(t *testing.T) {
	require.True(t, IsA(nil, NewPrimitive(PI64), Value{Kind: VInt, Int: 1}))
	require.False(t, IsA(nil, NewPrimitive(PString), Value{Kind: VInt, Int: 1}))
	// digits in a string do not make it an i64; casting does, matching does not
	require.False(t, IsA(nil, NewPrimitive(PI64), Value{Kind: VString, Str: "1"}))
}

func TestCastValueParsesStringNumbers(t *testing.T) {
	v, err := CastValue(nil, NewPrimitive(PI64), Value{Kind: VString, Str: "41"})
	require.NoError(t, err)
	require.Equal(t, int64(41), v.Int)

	f, err := CastValue(nil, NewPrimitive(PF64), Value{Kind: VString, Str: "1.5"})
	require.NoError(t, err)
	require.Equal(t, 1.5, f.Float)

	_, err = CastValue(nil, NewPrimitive(PI64), Value{Kind: VString, Str: "nope"})
	require.Error(t, err)
}

func TestAliasedTVarsShareLaterBinds(t *testing.T) {
	a := &TVar{Name: "a"}
	b := &TVar{Name: "a"}
	require.True(t, Contains(nil, a, b, Flags{InitTVars: true, AliasTVars: true}))

	// A later bind through either side must be visible through the other.
	require.True(t, Contains(nil, a, NewPrimitive(PI64), Flags{InitTVars: true}))
	require.NotNil(t, b.Bound())
	require.Equal(t, "i64", b.Bound().String())
}

func TestAliasRefusedWhenFrozen(t *testing.T) {
	a := &TVar{Name: "a"}
	b := &TVar{Name: "a"}
	a.Freeze()
	require.True(t, Contains(nil, a, b, Flags{InitTVars: true, AliasTVars: true}))
	require.False(t, a.SharesCell(b))
}

func TestWouldCycleSeesThroughSharedCell(t *testing.T) {
	a := &TVar{Name: "a"}
	b := &TVar{Name: "a"}
	b.AliasTo(a)
	require.True(t, WouldCycle(a, &Array{Elem: b}))
}
