package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExprIdsAreUnique(t *testing.T) {
	a := New(&Name{Name: "x"}, nil, SourcePosition{})
	b := New(&Name{Name: "y"}, nil, SourcePosition{})
	require.NotEqual(t, a.Id, b.Id)
}

func TestOriginChainString(t *testing.T) {
	parent := &Origin{Kind: OriginText, Path: "top-level"}
	child := &Origin{Kind: OriginFile, Path: "/a/b.gx", Parent: parent}
	require.Equal(t, "file:/a/b.gx <- text:top-level", child.String())
}

func TestModPathDeclStates(t *testing.T) {
	m := &ModuleDecl{Name: "foo", Kind: ModuleUnresolved}
	require.Equal(t, "unresolved", m.Kind.String())
	m.Kind = ModuleDynamic
	require.Equal(t, "dynamic", m.Kind.String())
}

func TestTupleStringHasAtLeastTwoElements(t *testing.T) {
	one := New(&Literal{Kind: LitI64, Value: int64(1)}, nil, SourcePosition{})
	two := New(&Literal{Kind: LitI64, Value: int64(2)}, nil, SourcePosition{})
	tup := &Tuple{Elements: []*Expr{one, two}}
	require.Equal(t, "(1, 2)", tup.String())
}

func TestBinOpString(t *testing.T) {
	one := New(&Literal{Kind: LitI64, Value: int64(1)}, nil, SourcePosition{})
	two := New(&Literal{Kind: LitI64, Value: int64(2)}, nil, SourcePosition{})
	b := New(&BinOp{Op: OpAdd, Left: one, Right: two}, nil, SourcePosition{})
	require.Equal(t, "(1 + 2)", b.String())
}

func TestPatternStrings(t *testing.T) {
	p := &PatBind{Name: "i", Type: &TyPath{Name: "Number"}}
	require.Equal(t, "Number as i", p.String())

	variant := &PatVariant{Tag: "Cons", Elements: []Pattern{&PatWildcard{}, &PatWildcard{}}}
	require.Equal(t, "`Cons(_, _)", variant.String())
}
