package types

import "fmt"

// ValueKind tags the runtime representation of a Graphix value.
type ValueKind int

const (
	VNull ValueKind = iota
	VBool
	VInt   // u32/v32/i32/z32/u64/v64/i64/z64 all carry int64 here
	VFloat // f32/f64
	VDecimal
	VString
	VBytes
	VDatetime
	VDuration
	VArray
	VMap
	VTuple
	VStruct
	VVariant
	VByRef // carries a BindId (handle id)
	VError
	VLambdaId
)

// Value is a dynamically-tagged runtime value flowing through the
// dataflow graph.
type Value struct {
	Kind     ValueKind
	Bool     bool
	Int      int64
	Float    float64
	Str      string
	Bytes    []byte
	Elems    []Value          // Array, Tuple
	MapElems map[string]Value // Map: string-rendered key -> value (keys carried separately for non-string keys, see MapKeys)
	MapKeys  []Value
	Fields   map[string]Value // Struct
	Tag      string           // Variant
	Args     []Value          // Variant args
	Inner    *Value           // ByRef target snapshot, Error payload
	LambdaId uint64
}

func (v Value) String() string {
	switch v.Kind {
	case VNull:
		return "null"
	case VBool:
		return fmt.Sprintf("%v", v.Bool)
	case VInt:
		return fmt.Sprintf("%d", v.Int)
	case VFloat, VDecimal:
		return fmt.Sprintf("%v", v.Float)
	case VString:
		return v.Str
	case VBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case VTuple:
		return fmt.Sprintf("%v", v.Elems)
	case VArray:
		return fmt.Sprintf("%v", v.Elems)
	case VVariant:
		return "`" + v.Tag
	case VLambdaId:
		return fmt.Sprintf("<lambda %d>", v.LambdaId)
	default:
		return "<value>"
	}
}
