package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lit(n int64) *Expr {
	return New(&Literal{Kind: LitI64, Value: n}, nil, SourcePosition{})
}

func name(s string) *Expr {
	return New(&Name{Name: s}, nil, SourcePosition{})
}

func TestPrintArithmeticParenthesizesNestedOperands(t *testing.T) {
	inner := New(&BinOp{Op: OpMul, Left: lit(2), Right: lit(3)}, nil, SourcePosition{})
	outer := New(&BinOp{Op: OpAdd, Left: lit(1), Right: inner}, nil, SourcePosition{})
	require.Equal(t, "1 + (2 * 3)", PrintExpr(outer))
}

func TestPrintLetWithDeclaredType(t *testing.T) {
	let := New(&Let{
		Pattern: &PatBind{Name: "x"},
		Type:    &TyPath{Name: "i64"},
		Value:   lit(5),
	}, nil, SourcePosition{})
	require.Equal(t, "let x: i64 = 5", PrintExpr(let))
}

func TestPrintLambdaWrappedAsConnectValue(t *testing.T) {
	lam := New(&Lambda{
		Args: []LambdaArg{{Label: "i", Type: &TyPath{Name: "i64"}}},
		Body: New(&BinOp{Op: OpAdd, Left: name("i"), Right: lit(1)}, nil, SourcePosition{}),
	}, nil, SourcePosition{})
	conn := New(&Connect{Name: "f", Value: lam}, nil, SourcePosition{})
	require.Equal(t, "f <- (|i: i64| i + 1)", PrintExpr(conn))
}

func TestPrintStringInterpolateEscapesBrackets(t *testing.T) {
	s := New(&StringInterpolate{Parts: []StringPart{
		{Const: "a[b]"},
		{Expr: name("x")},
	}}, nil, SourcePosition{})
	require.Equal(t, `"a\[b\][x]"`, PrintExpr(s))
}

func TestPrintFloatKeepsDecimalPoint(t *testing.T) {
	f := New(&Literal{Kind: LitF64, Value: 2.0}, nil, SourcePosition{})
	require.Equal(t, "2.0", PrintExpr(f))
}

func TestPrintTypeDecl(t *testing.T) {
	d := New(&TypeDecl{
		Name:   "L",
		Params: []string{"a"},
		Def: &TySet{Members: []Type{
			&TyVariant{Tag: "Cons", Args: []Type{&TyVar{Name: "a"}, &TyPath{Name: "L", Params: []Type{&TyVar{Name: "a"}}}}},
			&TyVariant{Tag: "Nil"},
		}},
	}, nil, SourcePosition{})
	require.Equal(t, "type L<'a> = [`Cons('a, L<'a>), `Nil]", PrintExpr(d))
}

func TestPrintFnTypeWithConstraints(t *testing.T) {
	ty := &TyFn{
		Constraints: []TyConstraint{{TVar: "a", Bound: &TyPath{Name: "i64"}}},
		Args:        []TyFnArg{{Type: &TyVar{Name: "a"}}},
		Return:      &TyVar{Name: "a"},
	}
	require.Equal(t, "fn<'a: i64>('a) -> 'a", PrintType(ty))
}

func TestPrintQopOverIndex(t *testing.T) {
	idx := New(&ArrayRef{Expr: name("a"), Index: lit(0)}, nil, SourcePosition{})
	q := New(&Qop{Expr: idx}, nil, SourcePosition{})
	require.Equal(t, "a[0]?", PrintExpr(q))
}

func TestPrintPatterns(t *testing.T) {
	require.Equal(t, "_", PrintPattern(&PatWildcard{}))
	require.Equal(t, "(a, b)", PrintPattern(&PatTuple{Elements: []Pattern{&PatBind{Name: "a"}, &PatBind{Name: "b"}}}))
	require.Equal(t, "`Some(x)", PrintPattern(&PatVariant{Tag: "Some", Elements: []Pattern{&PatBind{Name: "x"}}}))
	require.Equal(t, "i64 as i", PrintPattern(&PatBind{Name: "i", Type: &TyPath{Name: "i64"}}))
	require.Equal(t, "{x: a}", PrintPattern(&PatStruct{Fields: []PatStructField{{Name: "x", Pattern: &PatBind{Name: "a"}}}}))
}
