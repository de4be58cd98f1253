package gxerrors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/types"
)

func TestNewErrorValueShape(t *testing.T) {
	pos := ast.SourcePosition{Line: 3, Column: 5}
	v := NewErrorValue("ArithError", "division by zero", pos, "<repl>", nil)

	require.Equal(t, types.VError, v.Kind)
	require.NotNil(t, v.Inner)
	require.Equal(t, types.VStruct, v.Inner.Kind)

	errField := v.Inner.Fields["error"]
	require.Equal(t, types.VVariant, errField.Kind)
	require.Equal(t, "ArithError", errField.Tag)
	require.Equal(t, "division by zero", errField.Args[0].Str)

	require.Equal(t, "<repl>", v.Inner.Fields["ori"].Str)
	require.Equal(t, "3:5", v.Inner.Fields["pos"].Str)
	require.Equal(t, types.VNull, v.Inner.Fields["cause"].Kind)
}

func TestNewErrorValueWithCause(t *testing.T) {
	pos := ast.SourcePosition{Line: 1, Column: 1}
	inner := NewErrorValue("NetError", "timeout", pos, "<net>", nil)
	outer := NewErrorValue("RpcError", "upstream failed", pos, "<rpc>", &inner)

	require.Equal(t, types.VError, outer.Inner.Fields["cause"].Kind)
	require.Equal(t, "NetError", outer.Inner.Fields["cause"].Inner.Fields["error"].Tag)
}

func TestChainErrorValueCopiesInnermostError(t *testing.T) {
	pos1 := ast.SourcePosition{Line: 1, Column: 1}
	first := NewErrorValue("NetError", "connection reset", pos1, "<net>", nil)

	pos2 := ast.SourcePosition{Line: 2, Column: 9}
	second := ChainErrorValue(first, pos2, "<caller>")

	require.Equal(t, types.VError, second.Kind)
	errField := second.Inner.Fields["error"]
	require.Equal(t, "NetError", errField.Tag)
	require.Equal(t, "connection reset", errField.Args[0].Str)
	require.Equal(t, "<caller>", second.Inner.Fields["ori"].Str)

	cause := second.Inner.Fields["cause"]
	require.Equal(t, types.VError, cause.Kind)
	require.Equal(t, "<net>", cause.Inner.Fields["ori"].Str)
}

func TestChainErrorValueOnNonError(t *testing.T) {
	pos := ast.SourcePosition{Line: 1, Column: 1}
	plain := types.Value{Kind: types.VString, Str: "not an error"}
	chained := ChainErrorValue(plain, pos, "<caller>")

	require.Equal(t, types.VError, chained.Kind)
	require.Equal(t, "WrappedError", chained.Inner.Fields["error"].Tag)
}
