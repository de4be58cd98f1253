package ast

import (
	"fmt"
	"strings"
)

// Type is the tagged union of *syntactic* type expressions,
// produced by the parser before the compiler resolves them into the
// semantic algebra in package types. Kept deliberately thin: it only
// needs to round-trip through String() and be walked by the compiler's
// type-resolution pass.
type Type interface {
	typeKind()
	String() string
}

// TyAny is `Any`.
type TyAny struct{}

func (*TyAny) typeKind() {}
func (*TyAny) String() string { return "Any" }

// TyInfer is `_`, a placeholder asking the compiler to infer the type.
type TyInfer struct{}

func (*TyInfer) typeKind() {}
func (*TyInfer) String() string { return "_" }

// TyPath is a named type reference, optionally parameterized:
// `typath<T0,T1>`.
type TyPath struct {
	Scope  string // enclosing module scope, "" if unqualified
	Name   string
	Params []Type
}

func (*TyPath) typeKind() {}
func (t *TyPath) String() string {
	name := t.Name
	if t.Scope != "" {
		name = t.Scope + "::" + name
	}
	if len(t.Params) == 0 {
		return name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s<%s>", name, strings.Join(parts, ", "))
}

// TyVar is `'name`, a type variable.
type TyVar struct{ Name string }

func (*TyVar) typeKind() {}
func (t *TyVar) String() string { return "'" + t.Name }

// TySet is `[T0, T1, ...]`, a union-of-shapes.
type TySet struct{ Members []Type }

func (*TySet) typeKind() {}
func (t *TySet) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TyTuple is `(T0, T1, ...)`.
type TyTuple struct{ Elements []Type }

func (*TyTuple) typeKind() {}
func (t *TyTuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TyStructField is one `name: type` field of a TyStruct.
type TyStructField struct {
	Name string
	Type Type
}

// TyStruct is `{name: type, ...}`.
type TyStruct struct{ Fields []TyStructField }

func (*TyStruct) typeKind() {}
func (t *TyStruct) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// TyVariant is `` `Name(T0, T1, ...) ``.
type TyVariant struct {
	Tag  string
	Args []Type
}

func (*TyVariant) typeKind() {}
func (t *TyVariant) String() string {
	if len(t.Args) == 0 {
		return "`" + t.Tag
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return "`" + t.Tag + "(" + strings.Join(parts, ", ") + ")"
}

// TyArray is `Array<T>`.
type TyArray struct{ Element Type }

func (*TyArray) typeKind() {}
func (t *TyArray) String() string { return fmt.Sprintf("Array<%s>", t.Element) }

// TyMap is `Map<K,V>`.
type TyMap struct{ Key, Value Type }

func (*TyMap) typeKind() {}
func (t *TyMap) String() string { return fmt.Sprintf("Map<%s, %s>", t.Key, t.Value) }

// TyError is `Error<T>`.
type TyError struct{ Inner Type }

func (*TyError) typeKind() {}
func (t *TyError) String() string { return fmt.Sprintf("Error<%s>", t.Inner) }

// TyByRef is `&T`.
type TyByRef struct{ Inner Type }

func (*TyByRef) typeKind() {}
func (t *TyByRef) String() string { return "&" + t.Inner.String() }

// TyFnArg is one function-type argument: an optional label (with an
// `optional` flag for `?#name:` args) and a type. Labeled args must
// precede anonymous ones; @args (if present) is carried in TyFn.VArgs.
type TyFnArg struct {
	Label    string
	Optional bool
	Type     Type
}

// TyConstraint is one `'tvar: Bound` entry in a function type's
// polymorphism list.
type TyConstraint struct {
	TVar  string
	Bound Type
}

// TyFn is a full `fn<constraints>(args) -> rtype [throws T]` type.
type TyFn struct {
	Constraints []TyConstraint
	Args        []TyFnArg
	VArgs       *TyFnArg
	Return      Type
	Throws      Type // nil means Bottom (no declared throws)
}

func (*TyFn) typeKind() {}
func (t *TyFn) String() string {
	parts := make([]string, 0, len(t.Args)+1)
	for _, a := range t.Args {
		label := ""
		if a.Label != "" {
			opt := ""
			if a.Optional {
				opt = "?"
			}
			label = fmt.Sprintf("%s#%s:", opt, a.Label)
		}
		parts = append(parts, label+a.Type.String())
	}
	if t.VArgs != nil {
		parts = append(parts, "@args:"+t.VArgs.Type.String())
	}
	throws := ""
	if t.Throws != nil {
		throws = " throws " + t.Throws.String()
	}
	return fmt.Sprintf("fn(%s) -> %s%s", strings.Join(parts, ", "), t.Return, throws)
}
