package gxerrors

import (
	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/types"
)

// NewErrorValue builds the canonical Value::Error payload described by
// {cause: previous_error | Null, error: original_value, ori,
// pos}. tag names the variant under `error` (e.g. "NetError",
// "RpcError", "InvalidCast", "ArithError"); msg is its message payload.
func NewErrorValue(tag, msg string, pos ast.SourcePosition, origin string, cause *types.Value) types.Value {
	errVariant := types.Value{Kind: types.VVariant, Tag: tag, Args: []types.Value{{Kind: types.VString, Str: msg}}}
	fields := map[string]types.Value{
		"error": errVariant,
		"ori":   {Kind: types.VString, Str: origin},
		"pos":   {Kind: types.VString, Str: pos.String()},
	}
	if cause != nil {
		fields["cause"] = *cause
	} else {
		fields["cause"] = types.Value{Kind: types.VNull}
	}
	payload := types.Value{Kind: types.VStruct, Fields: fields}
	return types.Value{Kind: types.VError, Inner: &payload}
}

// ChainErrorValue implements the `?` operator's chaining rule: if inner is already an error chain, its original `error` field
// is copied forward and the prior chain is pushed under `cause`, so the
// innermost original error remains reachable.
func ChainErrorValue(inner types.Value, pos ast.SourcePosition, origin string) types.Value {
	if inner.Kind != types.VError || inner.Inner == nil {
		return NewErrorValue("WrappedError", inner.String(), pos, origin, nil)
	}
	payload := *inner.Inner
	if payload.Kind == types.VStruct {
		if errField, ok := payload.Fields["error"]; ok {
			// cause is the prior chain as an error value, so walking
			// causes always yields the same {cause, error, ori, pos}
			// shape until the innermost Null.
			return types.Value{Kind: types.VError, Inner: &types.Value{
				Kind: types.VStruct,
				Fields: map[string]types.Value{
					"error": errField,
					"ori":   {Kind: types.VString, Str: origin},
					"pos":   {Kind: types.VString, Str: pos.String()},
					"cause": inner,
				},
			}}
		}
	}
	return inner
}
