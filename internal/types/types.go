// Package types implements Graphix's structural type algebra: a tagged
// union (Bottom, Any, Primitive, Ref, Fn, Set, TVar, Error, Array, ByRef,
// Tuple, Struct, Variant, Map), containment-based subtyping,
// could_match, union/diff, TVar cycle detection and aliasing, and value
// casting. Each tagged struct implements the Type interface; structural
// containment, not Hindley-Milner unification, does the work of
// subtyping.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the tagged union of Graphix's semantic types.
type Type interface {
	typeTag()
	String() string
}

// Prim is one primitive type tag.
type Prim int

const (
	PU32 Prim = iota
	PV32
	PI32
	PZ32
	PU64
	PV64
	PI64
	PZ64
	PF32
	PF64
	PDecimal
	PBool
	PString
	PBytes
	PNull
	PDatetime
	PDuration
)

func (p Prim) String() string {
	return [...]string{"u32", "v32", "i32", "z32", "u64", "v64", "i64", "z64",
		"f32", "f64", "decimal", "bool", "string", "bytes", "null", "datetime", "duration"}[p]
}

// Bottom is the empty type: the identity element for unions and the
// uninitialised-slot placeholder that containment treats bidirectionally
// against any type.
type Bottom struct{}

func (Bottom) typeTag()       {}
func (Bottom) String() string { return "Bottom" }

// Any is the universal supertype.
type Any struct{}

func (Any) typeTag()       {}
func (Any) String() string { return "Any" }

// Primitive is a bitset of primitive tags: `Primitive({i64, f64})`.
type Primitive struct{ Set map[Prim]bool }

func NewPrimitive(ps ...Prim) *Primitive {
	m := make(map[Prim]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}
	return &Primitive{Set: m}
}

func (*Primitive) typeTag() {}
func (p *Primitive) String() string {
	names := make([]string, 0, len(p.Set))
	for prim := range p.Set {
		names = append(names, prim.String())
	}
	sort.Strings(names)
	if len(names) == 1 {
		return names[0]
	}
	return "Primitive(" + strings.Join(names, ",") + ")"
}

func (p *Primitive) isSubsetOf(o *Primitive) bool {
	for prim := range p.Set {
		if !o.Set[prim] {
			return false
		}
	}
	return true
}

// Ref is a reference to a named, possibly parameterised, declared type.
type Ref struct {
	Scope  string
	Name   string
	Params []Type
}

func (*Ref) typeTag() {}
func (r *Ref) String() string {
	if len(r.Params) == 0 {
		return r.Scoped()
	}
	parts := make([]string, len(r.Params))
	for i, p := range r.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s<%s>", r.Scoped(), strings.Join(parts, ", "))
}

func (r *Ref) Scoped() string {
	if r.Scope == "" {
		return r.Name
	}
	return r.Scope + "::" + r.Name
}

// FnArg is one argument slot of a function type.
type FnArg struct {
	Label    string // "" for anonymous
	Optional bool
	Type     Type
}

// Constraint is a `(TVar, bound)` polymorphism entry.
type Constraint struct {
	TVar  *TVar
	Bound Type
}

// FnType is a full function type.
type FnType struct {
	Args        []FnArg
	VArgs       *FnArg
	Return      Type
	Throws      Type // never nil; defaults to Bottom{}
	Constraints []Constraint
}

// Fn wraps a FnType as a Type.
type Fn struct{ Fn *FnType }

func (*Fn) typeTag() {}
func (f *Fn) String() string {
	parts := make([]string, 0, len(f.Fn.Args)+1)
	for _, a := range f.Fn.Args {
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
	if f.Fn.VArgs != nil {
		parts = append(parts, "@args:"+f.Fn.VArgs.Type.String())
	}
	throws := ""
	if _, isBottom := f.Fn.Throws.(Bottom); !isBottom && f.Fn.Throws != nil {
		throws = " throws " + f.Fn.Throws.String()
	}
	return fmt.Sprintf("fn(%s) -> %s%s", strings.Join(parts, ", "), f.Fn.Return, throws)
}

// Set is an ordered, flattened union-of-shapes. Invariant: never contains
// another Set directly, never contains Any (flatten collapses to Any).
type Set struct{ Members []Type }

func (*Set) typeTag() {}
func (s *Set) String() string {
	parts := make([]string, len(s.Members))
	for i, m := range s.Members {
		parts[i] = m.String()
	}
	return "Set(" + strings.Join(parts, ", ") + ")"
}

// TVarCell is the shared mutable storage one or more TVars point at.
// Aliasing two variables makes both names point at the same cell, so a
// later bind through either is observed by the other.
type TVarCell struct {
	Typ    Type // nil when unbound
	Frozen bool
}

// TVar holds its content indirectly through a shared cell so aliasing
// is just a pointer assignment: cell_of(b) := cell_of(a).
type TVar struct {
	Name string
	Id   uint64
	Cell *TVarCell
}

// cell returns the TVar's storage, allocating a private unbound cell on
// first touch so zero-initialised TVars work.
func (t *TVar) cell() *TVarCell {
	if t.Cell == nil {
		t.Cell = &TVarCell{}
	}
	return t.Cell
}

// Bound returns the cell's current binding, nil when unbound.
func (t *TVar) Bound() Type { return t.cell().Typ }

// Bind writes ty into the shared cell; every TVar aliased to this one
// observes the binding.
func (t *TVar) Bind(ty Type) { t.cell().Typ = ty }

// Unbind clears the shared cell's binding and frozen flag.
func (t *TVar) Unbind() {
	c := t.cell()
	c.Typ = nil
	c.Frozen = false
}

// IsFrozen reports whether the shared cell is frozen against further
// unification.
func (t *TVar) IsFrozen() bool { return t.cell().Frozen }

// Freeze marks the shared cell frozen.
func (t *TVar) Freeze() { t.cell().Frozen = true }

// AliasTo points this TVar's storage at other's cell, so the two share
// all subsequent binds.
func (t *TVar) AliasTo(other *TVar) { t.Cell = other.cell() }

// SharesCell reports whether two TVars already use the same storage.
func (t *TVar) SharesCell(other *TVar) bool { return t.cell() == other.cell() }

func (*TVar) typeTag() {}
func (t *TVar) String() string {
	if b := t.Bound(); b != nil {
		return b.String()
	}
	return "'" + t.Name
}

// Error wraps a thrown/error value's payload type.
type Error struct{ Inner Type }

func (*Error) typeTag()        {}
func (e *Error) String() string { return fmt.Sprintf("Error<%s>", e.Inner) }

// Array is `Array<T>`.
type Array struct{ Elem Type }

func (*Array) typeTag()        {}
func (a *Array) String() string { return fmt.Sprintf("Array<%s>", a.Elem) }

// ByRef is `&T`, a reference-handle type.
type ByRef struct{ Inner Type }

func (*ByRef) typeTag()        {}
func (b *ByRef) String() string { return "&" + b.Inner.String() }

// Tuple has >= 2 elements.
type Tuple struct{ Elements []Type }

func (*Tuple) typeTag() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// StructField is one sorted, unique `name: Type` entry of a Struct.
type StructField struct {
	Name string
	Type Type
}

// Struct is sorted by field name with unique names (invariant enforced
// by NewStruct).
type Struct struct{ Fields []StructField }

func NewStruct(fields []StructField) *Struct {
	sorted := append([]StructField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Struct{Fields: sorted}
}

func (*Struct) typeTag() {}
func (s *Struct) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *Struct) Field(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Variant is a tagged sum-type arm: `` `Tag(T0, T1, ...) ``.
type Variant struct {
	Tag  string
	Args []Type
}

func (*Variant) typeTag() {}
func (v *Variant) String() string {
	if len(v.Args) == 0 {
		return "`" + v.Tag
	}
	parts := make([]string, len(v.Args))
	for i, a := range v.Args {
		parts[i] = a.String()
	}
	return "`" + v.Tag + "(" + strings.Join(parts, ", ") + ")"
}

// Map is `Map<K,V>`.
type Map struct{ Key, Value Type }

func (*Map) typeTag()        {}
func (m *Map) String() string { return fmt.Sprintf("Map<%s, %s>", m.Key, m.Value) }

// TypeDef is a named, possibly parameterised type declaration, as stored
// in an Env's typedefs table.
type TypeDef struct {
	Name   string
	Params []*TVar
	Body   Type
}

// TypeDefResolver is the narrow interface Contains needs to dereference a
// Ref against an environment's typedef table, without importing gxenv
// (which itself imports types) and creating a cycle.
type TypeDefResolver interface {
	LookupTypeDef(scope, name string) (*TypeDef, bool)
}
