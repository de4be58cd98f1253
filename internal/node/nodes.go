package node

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/gxerrors"
	"github.com/graphix-lang/graphix/internal/types"
)

// base holds the bookkeeping every node needs: its originating
// expression (for error reporting) and static type.
type base struct {
	spec *ast.Expr
	typ  types.Type
}

func (b *base) Spec() *ast.Expr { return b.spec }
func (b *base) Typ() types.Type { return b.typ }

// errValue builds the canonical {cause, error, ori, pos} payload for a
// runtime value error raised by this node, stamped with the node's
// source position and origin.
func (b *base) errValue(tag, msg string) types.Value {
	var pos ast.SourcePosition
	var origin *ast.Origin
	if b.spec != nil {
		pos = b.spec.Pos
		origin = b.spec.Origin
	}
	return gxerrors.NewErrorValue(tag, msg, pos, origin.String(), nil)
}

// LiteralNode is a constant; it produces its value exactly once, on the
// cycle init is true, and never again (constants don't "update").
type LiteralNode struct {
	base
	Value  types.Value
	fired  bool
}

func NewLiteral(spec *ast.Expr, typ types.Type, v types.Value) *LiteralNode {
	return &LiteralNode{base: base{spec: spec, typ: typ}, Value: v}
}

func (n *LiteralNode) Update(ctx *Ctx) (types.Value, bool) {
	if n.fired {
		return types.Value{}, false
	}
	if ctx != nil && ctx.Event != nil && !ctx.Event.Init {
		return types.Value{}, false
	}
	n.fired = true
	return n.Value, true
}
func (n *LiteralNode) Delete(ctx *Ctx)                                 {}
func (n *LiteralNode) Sleep()                                          { n.fired = false }
func (n *LiteralNode) Typecheck() error                                { return nil }
func (n *LiteralNode) Refs(out []gxenv.BindId) []gxenv.BindId          { return out }

// NeverNode is `never(args...)`: it updates its children every cycle
// (so their refs and effects stay live) but produces no value, ever.
// Its type is Bottom, which containment treats as an uninitialised
// slot, so `let f: fn(i64) -> i64 = never()` typechecks and leaves f
// waiting for a later connect.
type NeverNode struct {
	base
	Children []Node
}

func NewNever(spec *ast.Expr, children []Node) *NeverNode {
	return &NeverNode{base: base{spec: spec, typ: types.Bottom{}}, Children: children}
}

func (n *NeverNode) Update(ctx *Ctx) (types.Value, bool) {
	for _, c := range n.Children {
		c.Update(ctx)
	}
	return types.Value{}, false
}
func (n *NeverNode) Delete(ctx *Ctx) {
	for _, c := range n.Children {
		c.Delete(ctx)
	}
}
func (n *NeverNode) Sleep() {
	for _, c := range n.Children {
		c.Sleep()
	}
}
func (n *NeverNode) Typecheck() error {
	for _, c := range n.Children {
		if err := c.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (n *NeverNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, c := range n.Children {
		out = c.Refs(out)
	}
	return out
}

// RefNode reads a variable's current value, forwarding whatever the
// runtime reports changed for its BindId this cycle.
type RefNode struct {
	base
	Id gxenv.BindId
}

func NewRef(spec *ast.Expr, typ types.Type, id gxenv.BindId) *RefNode {
	return &RefNode{base: base{spec: spec, typ: typ}, Id: id}
}

func (n *RefNode) Update(ctx *Ctx) (types.Value, bool) {
	if ctx == nil || ctx.Event == nil {
		return types.Value{}, false
	}
	return ctx.Event.changedValue(n.Id)
}
func (n *RefNode) Delete(ctx *Ctx) {
	if ctx != nil && ctx.Rt != nil {
		ctx.Rt.UnrefVar(n.Id, ctx.TopId)
	}
}
func (n *RefNode) Sleep()       {}
func (n *RefNode) Typecheck() error { return nil }
func (n *RefNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	return append(out, n.Id)
}

// BindNode is `let [rec] pattern [:T] = value`, followed by a
// continuation node. Since Graphix do-blocks
// sequence lets, Body may be nil at the tail of a block, in which case
// the bind's own value is the block's value.
type BindNode struct {
	base
	Pattern PatternNode
	Value   Node
	Body    Node // continuation, nil at block tail
}

func NewBind(spec *ast.Expr, typ types.Type, pattern PatternNode, value, body Node) *BindNode {
	return &BindNode{base: base{spec: spec, typ: typ}, Pattern: pattern, Value: value, Body: body}
}

func (n *BindNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Value.Update(ctx)
	if ok {
		n.Pattern.Bind(ctx, v)
	}
	if n.Body == nil {
		return v, ok
	}
	return n.Body.Update(ctx)
}
func (n *BindNode) Delete(ctx *Ctx) {
	n.Value.Delete(ctx)
	if n.Body != nil {
		n.Body.Delete(ctx)
	}
}
func (n *BindNode) Sleep() {
	n.Value.Sleep()
	if n.Body != nil {
		n.Body.Sleep()
	}
}
func (n *BindNode) Typecheck() error {
	if err := n.Value.Typecheck(); err != nil {
		return fmt.Errorf("in let binding: %w", err)
	}
	if n.Body != nil {
		return n.Body.Typecheck()
	}
	return nil
}
func (n *BindNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Value.Refs(out)
	if n.Body != nil {
		out = n.Body.Refs(out)
	}
	return out
}

// PatternNode is the compiled form of a let/select pattern: it owns the
// BindIds it produces and knows how to route an incoming value into
// them.
type PatternNode interface {
	// Bind routes v's components into this pattern's owned BindIds via
	// ctx.Rt.SetVar.
	Bind(ctx *Ctx, v types.Value)
	// Matches reports whether v is compatible with this pattern's shape
	// (used by Select for arm dispatch).
	Matches(v types.Value) bool
	Ids() []gxenv.BindId
}

// SimpleBindPattern is the common case: `let x = value`, binding the
// whole value to a single BindId.
type SimpleBindPattern struct{ Id gxenv.BindId }

func (p *SimpleBindPattern) Bind(ctx *Ctx, v types.Value) {
	if ctx != nil && ctx.Rt != nil {
		ctx.Rt.SetVar(p.Id, v)
	}
}
func (p *SimpleBindPattern) Matches(types.Value) bool    { return true }
func (p *SimpleBindPattern) Ids() []gxenv.BindId         { return []gxenv.BindId{p.Id} }

// WildcardPattern binds nothing.
type WildcardPattern struct{}

func (WildcardPattern) Bind(*Ctx, types.Value) {}
func (WildcardPattern) Matches(types.Value) bool { return true }
func (WildcardPattern) Ids() []gxenv.BindId      { return nil }

// LiteralPattern matches only an exact constant.
type LiteralPattern struct{ Value types.Value }

func (p *LiteralPattern) Bind(*Ctx, types.Value)     {}
func (p *LiteralPattern) Matches(v types.Value) bool { return v.String() == p.Value.String() && v.Kind == p.Value.Kind }
func (p *LiteralPattern) Ids() []gxenv.BindId        { return nil }

// TuplePattern destructures a fixed-arity tuple.
type TuplePattern struct{ Elements []PatternNode }

func (p *TuplePattern) Bind(ctx *Ctx, v types.Value) {
	if v.Kind != types.VTuple {
		return
	}
	for i, el := range p.Elements {
		if i < len(v.Elems) {
			el.Bind(ctx, v.Elems[i])
		}
	}
}
func (p *TuplePattern) Matches(v types.Value) bool {
	if v.Kind != types.VTuple || len(v.Elems) != len(p.Elements) {
		return false
	}
	for i, el := range p.Elements {
		if !el.Matches(v.Elems[i]) {
			return false
		}
	}
	return true
}
func (p *TuplePattern) Ids() []gxenv.BindId {
	var out []gxenv.BindId
	for _, el := range p.Elements {
		out = append(out, el.Ids()...)
	}
	return out
}

// StructPattern destructures named fields.
type StructPattern struct{ Fields map[string]PatternNode }

func (p *StructPattern) Bind(ctx *Ctx, v types.Value) {
	if v.Kind != types.VStruct {
		return
	}
	for name, el := range p.Fields {
		if fv, ok := v.Fields[name]; ok {
			el.Bind(ctx, fv)
		}
	}
}
func (p *StructPattern) Matches(v types.Value) bool {
	if v.Kind != types.VStruct {
		return false
	}
	for name, el := range p.Fields {
		fv, ok := v.Fields[name]
		if !ok || !el.Matches(fv) {
			return false
		}
	}
	return true
}
func (p *StructPattern) Ids() []gxenv.BindId {
	var out []gxenv.BindId
	for _, el := range p.Fields {
		out = append(out, el.Ids()...)
	}
	return out
}

// VariantPattern matches a tagged variant by tag and destructures its
// argument positions.
type VariantPattern struct {
	Tag  string
	Args []PatternNode
}

func (p *VariantPattern) Bind(ctx *Ctx, v types.Value) {
	if v.Kind != types.VVariant || v.Tag != p.Tag {
		return
	}
	for i, el := range p.Args {
		if i < len(v.Args) {
			el.Bind(ctx, v.Args[i])
		}
	}
}
func (p *VariantPattern) Matches(v types.Value) bool {
	if v.Kind != types.VVariant || v.Tag != p.Tag || len(v.Args) != len(p.Args) {
		return false
	}
	for i, el := range p.Args {
		if !el.Matches(v.Args[i]) {
			return false
		}
	}
	return true
}
func (p *VariantPattern) Ids() []gxenv.BindId {
	var out []gxenv.BindId
	for _, el := range p.Args {
		out = append(out, el.Ids()...)
	}
	return out
}

// TypeRefinementPattern is `Type as name`: matches only values whose
// runtime type is_a Type, then binds the whole value.
type TypeRefinementPattern struct {
	Resolver types.TypeDefResolver
	Type     types.Type
	Id       gxenv.BindId
}

func (p *TypeRefinementPattern) Bind(ctx *Ctx, v types.Value) {
	if ctx != nil && ctx.Rt != nil {
		ctx.Rt.SetVar(p.Id, v)
	}
}
func (p *TypeRefinementPattern) Matches(v types.Value) bool {
	return types.IsA(p.Resolver, p.Type, v)
}
func (p *TypeRefinementPattern) Ids() []gxenv.BindId { return []gxenv.BindId{p.Id} }
