package node

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/types"
)

// multiChild is the shared walk helpers for nodes holding several
// Cached children: Delete/Sleep/Refs/Typecheck all just fan out.
type multiChild struct {
	Children []*Cached
}

func (m *multiChild) delete(ctx *Ctx) {
	for _, c := range m.Children {
		c.Child.Delete(ctx)
	}
}
func (m *multiChild) sleep() {
	for _, c := range m.Children {
		c.Sleep()
	}
}
func (m *multiChild) refs(out []gxenv.BindId) []gxenv.BindId {
	for _, c := range m.Children {
		out = c.Child.Refs(out)
	}
	return out
}
func (m *multiChild) typecheck() error {
	for _, c := range m.Children {
		if err := c.Child.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (m *multiChild) pull(ctx *Ctx) (allDetermined, anyUpdated bool) {
	allDetermined = true
	for _, c := range m.Children {
		c.Pull(ctx)
		if c.Updated() {
			anyUpdated = true
		}
		if !c.Determined() {
			allDetermined = false
		}
	}
	return
}

// TupleNode/ArrayNode combine N children into an aggregate, firing only
// when all are determined and at least one updated this cycle.
type TupleNode struct {
	base
	multiChild
}

func NewTuple(spec *ast.Expr, typ types.Type, children []Node) *TupleNode {
	n := &TupleNode{base: base{spec: spec, typ: typ}}
	for _, c := range children {
		n.Children = append(n.Children, &Cached{Child: c})
	}
	return n
}

func (n *TupleNode) Update(ctx *Ctx) (types.Value, bool) {
	determined, updated := n.pull(ctx)
	if !determined || !updated {
		return types.Value{}, false
	}
	elems := make([]types.Value, len(n.Children))
	for i, c := range n.Children {
		elems[i] = c.Value()
	}
	return types.Value{Kind: types.VTuple, Elems: elems}, true
}
func (n *TupleNode) Delete(ctx *Ctx)                        { n.delete(ctx) }
func (n *TupleNode) Sleep()                                 { n.sleep() }
func (n *TupleNode) Typecheck() error                       { return n.typecheck() }
func (n *TupleNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.refs(out) }

// ArrayNode is the same combinator over a variable-length element list.
type ArrayNode struct {
	base
	multiChild
}

func NewArray(spec *ast.Expr, typ types.Type, children []Node) *ArrayNode {
	n := &ArrayNode{base: base{spec: spec, typ: typ}}
	for _, c := range children {
		n.Children = append(n.Children, &Cached{Child: c})
	}
	return n
}

func (n *ArrayNode) Update(ctx *Ctx) (types.Value, bool) {
	determined, updated := n.pull(ctx)
	if !determined || !updated {
		return types.Value{}, false
	}
	elems := make([]types.Value, len(n.Children))
	for i, c := range n.Children {
		elems[i] = c.Value()
	}
	return types.Value{Kind: types.VArray, Elems: elems}, true
}
func (n *ArrayNode) Delete(ctx *Ctx)                        { n.delete(ctx) }
func (n *ArrayNode) Sleep()                                 { n.sleep() }
func (n *ArrayNode) Typecheck() error                       { return n.typecheck() }
func (n *ArrayNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.refs(out) }

// StructNode combines named field children into a Struct value.
type StructNode struct {
	base
	Names []string
	multiChild
}

func NewStruct(spec *ast.Expr, typ types.Type, names []string, children []Node) *StructNode {
	n := &StructNode{base: base{spec: spec, typ: typ}, Names: names}
	for _, c := range children {
		n.Children = append(n.Children, &Cached{Child: c})
	}
	return n
}

func (n *StructNode) Update(ctx *Ctx) (types.Value, bool) {
	determined, updated := n.pull(ctx)
	if !determined || !updated {
		return types.Value{}, false
	}
	fields := make(map[string]types.Value, len(n.Children))
	for i, c := range n.Children {
		fields[n.Names[i]] = c.Value()
	}
	return types.Value{Kind: types.VStruct, Fields: fields}, true
}
func (n *StructNode) Delete(ctx *Ctx)                        { n.delete(ctx) }
func (n *StructNode) Sleep()                                 { n.sleep() }
func (n *StructNode) Typecheck() error                       { return n.typecheck() }
func (n *StructNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.refs(out) }

// VariantNode combines constructor argument children under a fixed tag.
type VariantNode struct {
	base
	Tag string
	multiChild
}

func NewVariant(spec *ast.Expr, typ types.Type, tag string, children []Node) *VariantNode {
	n := &VariantNode{base: base{spec: spec, typ: typ}, Tag: tag}
	for _, c := range children {
		n.Children = append(n.Children, &Cached{Child: c})
	}
	return n
}

func (n *VariantNode) Update(ctx *Ctx) (types.Value, bool) {
	if len(n.Children) == 0 {
		// nullary variant acts like a literal
		if ctx != nil && ctx.Event != nil && ctx.Event.Init {
			return types.Value{Kind: types.VVariant, Tag: n.Tag}, true
		}
		return types.Value{}, false
	}
	determined, updated := n.pull(ctx)
	if !determined || !updated {
		return types.Value{}, false
	}
	args := make([]types.Value, len(n.Children))
	for i, c := range n.Children {
		args[i] = c.Value()
	}
	return types.Value{Kind: types.VVariant, Tag: n.Tag, Args: args}, true
}
func (n *VariantNode) Delete(ctx *Ctx)                        { n.delete(ctx) }
func (n *VariantNode) Sleep()                                 { n.sleep() }
func (n *VariantNode) Typecheck() error                       { return n.typecheck() }
func (n *VariantNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.refs(out) }

// BinOpNode implements arithmetic/relational/logical operators: when both operands are cached, produce the result or an
// Error("ArithError(msg)").
type BinOpNode struct {
	base
	Op          ast.BinOpKind
	Left, Right *Cached
}

func NewBinOp(spec *ast.Expr, typ types.Type, op ast.BinOpKind, l, r Node) *BinOpNode {
	return &BinOpNode{base: base{spec: spec, typ: typ}, Op: op, Left: &Cached{Child: l}, Right: &Cached{Child: r}}
}

func (n *BinOpNode) Update(ctx *Ctx) (types.Value, bool) {
	n.Left.Pull(ctx)
	n.Right.Pull(ctx)
	if !n.Left.Determined() || !n.Right.Determined() {
		return types.Value{}, false
	}
	if !n.Left.Updated() && !n.Right.Updated() {
		return types.Value{}, false
	}
	v, err := evalBinOp(n.Op, n.Left.Value(), n.Right.Value())
	if err != nil {
		return n.errValue("ArithError", err.Error()), true
	}
	return v, true
}
func (n *BinOpNode) Delete(ctx *Ctx) { n.Left.Child.Delete(ctx); n.Right.Child.Delete(ctx) }
func (n *BinOpNode) Sleep()          { n.Left.Sleep(); n.Right.Sleep() }
func (n *BinOpNode) Typecheck() error {
	if err := n.Left.Child.Typecheck(); err != nil {
		return err
	}
	return n.Right.Child.Typecheck()
}
func (n *BinOpNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Left.Child.Refs(out)
	return n.Right.Child.Refs(out)
}

func evalBinOp(op ast.BinOpKind, l, r types.Value) (types.Value, error) {
	switch op {
	case ast.OpAnd:
		return types.Value{Kind: types.VBool, Bool: l.Bool && r.Bool}, nil
	case ast.OpOr:
		return types.Value{Kind: types.VBool, Bool: l.Bool || r.Bool}, nil
	case ast.OpEq:
		return types.Value{Kind: types.VBool, Bool: l.String() == r.String()}, nil
	case ast.OpNeq:
		return types.Value{Kind: types.VBool, Bool: l.String() != r.String()}, nil
	}
	lf, lok := numeric(l)
	rf, rok := numeric(r)
	if !lok || !rok {
		return types.Value{}, fmt.Errorf("non-numeric operand")
	}
	switch op {
	case ast.OpAdd:
		return numResult(l, r, lf+rf), nil
	case ast.OpSub:
		return numResult(l, r, lf-rf), nil
	case ast.OpMul:
		return numResult(l, r, lf*rf), nil
	case ast.OpDiv:
		if rf == 0 {
			return types.Value{}, fmt.Errorf("division by zero")
		}
		return numResult(l, r, lf/rf), nil
	case ast.OpMod:
		if rf == 0 {
			return types.Value{}, fmt.Errorf("modulo by zero")
		}
		return types.Value{Kind: types.VInt, Int: l.Int % r.Int}, nil
	case ast.OpLt:
		return types.Value{Kind: types.VBool, Bool: lf < rf}, nil
	case ast.OpLte:
		return types.Value{Kind: types.VBool, Bool: lf <= rf}, nil
	case ast.OpGt:
		return types.Value{Kind: types.VBool, Bool: lf > rf}, nil
	case ast.OpGte:
		return types.Value{Kind: types.VBool, Bool: lf >= rf}, nil
	}
	return types.Value{}, fmt.Errorf("unsupported operator")
}

func numeric(v types.Value) (float64, bool) {
	switch v.Kind {
	case types.VInt:
		return float64(v.Int), true
	case types.VFloat, types.VDecimal:
		return v.Float, true
	}
	return 0, false
}

func numResult(l, r types.Value, f float64) types.Value {
	if l.Kind == types.VInt && r.Kind == types.VInt {
		return types.Value{Kind: types.VInt, Int: int64(f)}
	}
	return types.Value{Kind: types.VFloat, Float: f}
}

// ConnectNode is `name <- value`: on each update of
// value, calls set_var(id, v) on the runtime. For the `*name <- value`
// form, Id is already the byref chain's target — the compiler resolves
// Deref at compile time via gxenv.Env.ByrefChain, since that chain is
// static once a handle is allocated.
type ConnectNode struct {
	base
	Id    gxenv.BindId
	Deref bool
	Value Node
}

func NewConnect(spec *ast.Expr, typ types.Type, id gxenv.BindId, deref bool, value Node) *ConnectNode {
	return &ConnectNode{base: base{spec: spec, typ: typ}, Id: id, Deref: deref, Value: value}
}

func (n *ConnectNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Value.Update(ctx)
	if !ok {
		return types.Value{}, false
	}
	if ctx != nil && ctx.Rt != nil {
		ctx.Rt.SetVar(n.Id, v)
	}
	return v, true
}
func (n *ConnectNode) Delete(ctx *Ctx) { n.Value.Delete(ctx) }
func (n *ConnectNode) Sleep()          { n.Value.Sleep() }
func (n *ConnectNode) Typecheck() error { return n.Value.Typecheck() }
func (n *ConnectNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	return append(n.Value.Refs(out), n.Id)
}

// ByRefNode allocates a reference-handle value for its child
// expression.
type ByRefNode struct {
	base
	Handle gxenv.BindId
}

func NewByRef(spec *ast.Expr, typ types.Type, handle gxenv.BindId) *ByRefNode {
	return &ByRefNode{base: base{spec: spec, typ: typ}, Handle: handle}
}

func (n *ByRefNode) Update(ctx *Ctx) (types.Value, bool) {
	if ctx != nil && ctx.Event != nil && ctx.Event.Init {
		return types.Value{Kind: types.VInt, Int: int64(n.Handle)}, true
	}
	return types.Value{}, false
}
func (n *ByRefNode) Delete(ctx *Ctx)                        {}
func (n *ByRefNode) Sleep()                                 {}
func (n *ByRefNode) Typecheck() error                       { return nil }
func (n *ByRefNode) Refs(out []gxenv.BindId) []gxenv.BindId { return out }

// DerefNode follows a ByRef handle to its live target, re-subscribing
// when the handle itself changes.
type DerefNode struct {
	base
	Child   *Cached
	current gxenv.BindId
	has     bool
}

func NewDeref(spec *ast.Expr, typ types.Type, child Node) *DerefNode {
	return &DerefNode{base: base{spec: spec, typ: typ}, Child: &Cached{Child: child}}
}

func (n *DerefNode) Update(ctx *Ctx) (types.Value, bool) {
	n.Child.Pull(ctx)
	if n.Child.Updated() {
		v := n.Child.Value()
		id := gxenv.BindId(v.Int)
		if ctx != nil && ctx.Rt != nil {
			if n.has && n.current != id {
				ctx.Rt.UnrefVar(n.current, ctx.TopId)
			}
			ctx.Rt.RefVar(id, ctx.TopId)
		}
		n.current = id
		n.has = true
	}
	if !n.has || ctx == nil || ctx.Event == nil {
		return types.Value{}, false
	}
	return ctx.Event.changedValue(n.current)
}
func (n *DerefNode) Delete(ctx *Ctx) {
	n.Child.Child.Delete(ctx)
	if n.has && ctx != nil && ctx.Rt != nil {
		ctx.Rt.UnrefVar(n.current, ctx.TopId)
	}
}
func (n *DerefNode) Sleep()       { n.Child.Sleep() }
func (n *DerefNode) Typecheck() error { return n.Child.Child.Typecheck() }
func (n *DerefNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Child.Child.Refs(out)
	if n.has {
		out = append(out, n.current)
	}
	return out
}

// QopNode is the postfix `?` lifting operator: on
// Error(e) from the child, writes the wrapped error to the enclosing
// catch bind instead of forwarding it.
type QopNode struct {
	base
	Child   Node
	CatchId gxenv.BindId
	wrap    func(types.Value) types.Value
}

func NewQop(spec *ast.Expr, typ types.Type, child Node, catchId gxenv.BindId, wrap func(types.Value) types.Value) *QopNode {
	return &QopNode{base: base{spec: spec, typ: typ}, Child: child, CatchId: catchId, wrap: wrap}
}

func (n *QopNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Child.Update(ctx)
	if !ok {
		return types.Value{}, false
	}
	if v.Kind == types.VError {
		wrapped := v
		if n.wrap != nil {
			wrapped = n.wrap(v)
		}
		if ctx != nil && ctx.Rt != nil {
			ctx.Rt.SetVar(n.CatchId, wrapped)
		}
		return types.Value{}, false
	}
	return v, true
}
func (n *QopNode) Delete(ctx *Ctx)                        { n.Child.Delete(ctx) }
func (n *QopNode) Sleep()                                 { n.Child.Sleep() }
func (n *QopNode) Typecheck() error                       { return n.Child.Typecheck() }
func (n *QopNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.Child.Refs(out) }

// OrNeverNode is the postfix `$` lifting operator: forwards the child's
// value unchanged (its effect is purely on the static Throws type,
// erasing it — see the compiler).
type OrNeverNode struct {
	base
	Child Node
}

func NewOrNever(spec *ast.Expr, typ types.Type, child Node) *OrNeverNode {
	return &OrNeverNode{base: base{spec: spec, typ: typ}, Child: child}
}

func (n *OrNeverNode) Update(ctx *Ctx) (types.Value, bool)          { return n.Child.Update(ctx) }
func (n *OrNeverNode) Delete(ctx *Ctx)                              { n.Child.Delete(ctx) }
func (n *OrNeverNode) Sleep()                                       { n.Child.Sleep() }
func (n *OrNeverNode) Typecheck() error                             { return n.Child.Typecheck() }
func (n *OrNeverNode) Refs(out []gxenv.BindId) []gxenv.BindId       { return n.Child.Refs(out) }

// TryCatchNode introduces a fresh catch scope: Qops inside Body write to
// CatchId; when CatchId updates, Handler runs with that value
// bound.
type TryCatchNode struct {
	base
	Body    []Node
	CatchId gxenv.BindId
	Handler Node
	fired   bool
}

func NewTryCatch(spec *ast.Expr, typ types.Type, body []Node, catchId gxenv.BindId, handler Node) *TryCatchNode {
	return &TryCatchNode{base: base{spec: spec, typ: typ}, Body: body, CatchId: catchId, Handler: handler}
}

func (n *TryCatchNode) Update(ctx *Ctx) (types.Value, bool) {
	var last types.Value
	var lastOk bool
	for _, b := range n.Body {
		if v, ok := b.Update(ctx); ok {
			last, lastOk = v, true
		}
	}
	if ctx != nil && ctx.Event != nil {
		if _, ok := ctx.Event.changedValue(n.CatchId); ok {
			if hv, ok := n.Handler.Update(ctx); ok {
				return hv, true
			}
		}
	}
	return last, lastOk
}
func (n *TryCatchNode) Delete(ctx *Ctx) {
	for _, b := range n.Body {
		b.Delete(ctx)
	}
	n.Handler.Delete(ctx)
}
func (n *TryCatchNode) Sleep() {
	for _, b := range n.Body {
		b.Sleep()
	}
	n.Handler.Sleep()
}
func (n *TryCatchNode) Typecheck() error {
	for _, b := range n.Body {
		if err := b.Typecheck(); err != nil {
			return err
		}
	}
	return n.Handler.Typecheck()
}
func (n *TryCatchNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, b := range n.Body {
		out = b.Refs(out)
	}
	return append(n.Handler.Refs(out), n.CatchId)
}

// SelectArmNode is one compiled `pattern [if guard] => body` arm.
type SelectArmNode struct {
	Pattern PatternNode
	Guard   Node // nil if no guard
	Body    Node
}

// SelectNode dispatches Arg's value to the first matching arm, waking
// that arm and sleeping the rest.
type SelectNode struct {
	base
	Arg     Node
	Arms    []SelectArmNode
	current int
}

func NewSelect(spec *ast.Expr, typ types.Type, arg Node, arms []SelectArmNode) *SelectNode {
	return &SelectNode{base: base{spec: spec, typ: typ}, Arg: arg, Arms: arms, current: -1}
}

func (n *SelectNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Arg.Update(ctx)
	if !ok {
		if n.current < 0 {
			return types.Value{}, false
		}
		return n.Arms[n.current].Body.Update(ctx)
	}
	for i, arm := range n.Arms {
		if !arm.Pattern.Matches(v) {
			continue
		}
		if arm.Guard != nil {
			if gv, gok := arm.Guard.Update(ctx); !gok || !gv.Bool {
				continue
			}
		}
		if n.current >= 0 && n.current != i {
			n.Arms[n.current].Body.Sleep()
		}
		n.current = i
		arm.Pattern.Bind(ctx, v)
		return arm.Body.Update(ctx)
	}
	return types.Value{}, false
}
func (n *SelectNode) Delete(ctx *Ctx) {
	n.Arg.Delete(ctx)
	for _, arm := range n.Arms {
		if arm.Guard != nil {
			arm.Guard.Delete(ctx)
		}
		arm.Body.Delete(ctx)
	}
}
func (n *SelectNode) Sleep() {
	n.Arg.Sleep()
	for _, arm := range n.Arms {
		if arm.Guard != nil {
			arm.Guard.Sleep()
		}
		arm.Body.Sleep()
	}
}
func (n *SelectNode) Typecheck() error {
	if err := n.Arg.Typecheck(); err != nil {
		return err
	}
	for _, arm := range n.Arms {
		if err := arm.Body.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (n *SelectNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Arg.Refs(out)
	for _, arm := range n.Arms {
		out = arm.Body.Refs(out)
	}
	return out
}

// AnyNode returns whichever child updated this cycle, biased toward the
// leftmost on simultaneous updates.
type AnyNode struct {
	base
	Children []Node
}

func NewAny(spec *ast.Expr, typ types.Type, children []Node) *AnyNode {
	return &AnyNode{base: base{spec: spec, typ: typ}, Children: children}
}

func (n *AnyNode) Update(ctx *Ctx) (types.Value, bool) {
	for _, c := range n.Children {
		if v, ok := c.Update(ctx); ok {
			return v, true
		}
	}
	return types.Value{}, false
}
func (n *AnyNode) Delete(ctx *Ctx) {
	for _, c := range n.Children {
		c.Delete(ctx)
	}
}
func (n *AnyNode) Sleep() {
	for _, c := range n.Children {
		c.Sleep()
	}
}
func (n *AnyNode) Typecheck() error {
	for _, c := range n.Children {
		if err := c.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (n *AnyNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, c := range n.Children {
		out = c.Refs(out)
	}
	return out
}

// SampleNode is `trigger ~ arg`: fires only when trigger updates,
// emitting the most recently cached value of arg.
// A trigger firing before arg has ever produced a value is counted in
// Pending and consumed as soon as arg becomes determined.
type SampleNode struct {
	base
	Trigger Node
	Arg     *Cached
	Pending int
}

func NewSample(spec *ast.Expr, typ types.Type, trigger, arg Node) *SampleNode {
	return &SampleNode{base: base{spec: spec, typ: typ}, Trigger: trigger, Arg: &Cached{Child: arg}}
}

func (n *SampleNode) Update(ctx *Ctx) (types.Value, bool) {
	n.Arg.Pull(ctx)
	_, triggered := n.Trigger.Update(ctx)
	if triggered {
		n.Pending++
	}
	if n.Pending > 0 && n.Arg.Determined() {
		n.Pending--
		return n.Arg.Value(), true
	}
	return types.Value{}, false
}
func (n *SampleNode) Delete(ctx *Ctx) { n.Trigger.Delete(ctx); n.Arg.Child.Delete(ctx) }
func (n *SampleNode) Sleep()          { n.Trigger.Sleep(); n.Arg.Sleep(); n.Pending = 0 }
func (n *SampleNode) Typecheck() error {
	if err := n.Trigger.Typecheck(); err != nil {
		return err
	}
	return n.Arg.Child.Typecheck()
}
func (n *SampleNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Trigger.Refs(out)
	return n.Arg.Child.Refs(out)
}

// CastNode applies types.CastValue to its child's updated value each
// cycle.
type CastNode struct {
	base
	Child    Node
	Resolver types.TypeDefResolver
	Target   types.Type
}

func NewCast(spec *ast.Expr, resolver types.TypeDefResolver, target types.Type, child Node) *CastNode {
	return &CastNode{base: base{spec: spec, typ: target}, Child: child, Resolver: resolver, Target: target}
}

func (n *CastNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Child.Update(ctx)
	if !ok {
		return types.Value{}, false
	}
	cv, err := types.CastValue(n.Resolver, n.Target, v)
	if err != nil {
		return n.errValue("InvalidCast", err.Error()), true
	}
	return cv, true
}
func (n *CastNode) Delete(ctx *Ctx)                        { n.Child.Delete(ctx) }
func (n *CastNode) Sleep()                                 { n.Child.Sleep() }
func (n *CastNode) Typecheck() error                       { return n.Child.Typecheck() }
func (n *CastNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.Child.Refs(out) }

// StructRefNode, TupleRefNode, ArrayRefNode, ArraySliceNode, MapRefNode
// project one component out of their child's aggregate value on each
// update.
type StructRefNode struct {
	base
	Child Node
	Field string
}

func NewStructRef(spec *ast.Expr, typ types.Type, child Node, field string) *StructRefNode {
	return &StructRefNode{base: base{spec: spec, typ: typ}, Child: child, Field: field}
}
func (n *StructRefNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Child.Update(ctx)
	if !ok || v.Kind != types.VStruct {
		return types.Value{}, false
	}
	fv, ok := v.Fields[n.Field]
	return fv, ok
}
func (n *StructRefNode) Delete(ctx *Ctx)                        { n.Child.Delete(ctx) }
func (n *StructRefNode) Sleep()                                 { n.Child.Sleep() }
func (n *StructRefNode) Typecheck() error                       { return n.Child.Typecheck() }
func (n *StructRefNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.Child.Refs(out) }

type TupleRefNode struct {
	base
	Child Node
	Index int
}

func NewTupleRef(spec *ast.Expr, typ types.Type, child Node, index int) *TupleRefNode {
	return &TupleRefNode{base: base{spec: spec, typ: typ}, Child: child, Index: index}
}
func (n *TupleRefNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Child.Update(ctx)
	if !ok || v.Kind != types.VTuple || n.Index >= len(v.Elems) {
		return types.Value{}, false
	}
	return v.Elems[n.Index], true
}
func (n *TupleRefNode) Delete(ctx *Ctx)                        { n.Child.Delete(ctx) }
func (n *TupleRefNode) Sleep()                                 { n.Child.Sleep() }
func (n *TupleRefNode) Typecheck() error                       { return n.Child.Typecheck() }
func (n *TupleRefNode) Refs(out []gxenv.BindId) []gxenv.BindId { return n.Child.Refs(out) }

type ArrayRefNode struct {
	base
	Child, Index *Cached
}

func NewArrayRef(spec *ast.Expr, typ types.Type, child, index Node) *ArrayRefNode {
	return &ArrayRefNode{base: base{spec: spec, typ: typ}, Child: &Cached{Child: child}, Index: &Cached{Child: index}}
}
func (n *ArrayRefNode) Update(ctx *Ctx) (types.Value, bool) {
	n.Child.Pull(ctx)
	n.Index.Pull(ctx)
	if !n.Child.Determined() || !n.Index.Determined() {
		return types.Value{}, false
	}
	if !n.Child.Updated() && !n.Index.Updated() {
		return types.Value{}, false
	}
	arr := n.Child.Value()
	idx := int(n.Index.Value().Int)
	if arr.Kind != types.VArray || idx < 0 || idx >= len(arr.Elems) {
		return n.errValue("ArrayIndexError", "index out of range"), true
	}
	return arr.Elems[idx], true
}
func (n *ArrayRefNode) Delete(ctx *Ctx) { n.Child.Child.Delete(ctx); n.Index.Child.Delete(ctx) }
func (n *ArrayRefNode) Sleep()          { n.Child.Sleep(); n.Index.Sleep() }
func (n *ArrayRefNode) Typecheck() error {
	if err := n.Child.Child.Typecheck(); err != nil {
		return err
	}
	return n.Index.Child.Typecheck()
}
func (n *ArrayRefNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Child.Child.Refs(out)
	return n.Index.Child.Refs(out)
}

type MapRefNode struct {
	base
	Child, Key *Cached
}

func NewMapRef(spec *ast.Expr, typ types.Type, child, key Node) *MapRefNode {
	return &MapRefNode{base: base{spec: spec, typ: typ}, Child: &Cached{Child: child}, Key: &Cached{Child: key}}
}
func (n *MapRefNode) Update(ctx *Ctx) (types.Value, bool) {
	n.Child.Pull(ctx)
	n.Key.Pull(ctx)
	if !n.Child.Determined() || !n.Key.Determined() {
		return types.Value{}, false
	}
	if !n.Child.Updated() && !n.Key.Updated() {
		return types.Value{}, false
	}
	m := n.Child.Value()
	k := n.Key.Value()
	if m.Kind != types.VMap {
		return n.errValue("MapKeyError", "not a map"), true
	}
	v, ok := m.MapElems[k.String()]
	if !ok {
		return n.errValue("MapKeyError", "key not found"), true
	}
	return v, true
}
func (n *MapRefNode) Delete(ctx *Ctx) { n.Child.Child.Delete(ctx); n.Key.Child.Delete(ctx) }
func (n *MapRefNode) Sleep()          { n.Child.Sleep(); n.Key.Sleep() }
func (n *MapRefNode) Typecheck() error {
	if err := n.Child.Child.Typecheck(); err != nil {
		return err
	}
	return n.Key.Child.Typecheck()
}
func (n *MapRefNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Child.Child.Refs(out)
	return n.Key.Child.Refs(out)
}

type ArraySliceNode struct {
	base
	Child    Node
	From, To Node // either may be nil
}

func NewArraySlice(spec *ast.Expr, typ types.Type, child, from, to Node) *ArraySliceNode {
	return &ArraySliceNode{base: base{spec: spec, typ: typ}, Child: child, From: from, To: to}
}
func (n *ArraySliceNode) Update(ctx *Ctx) (types.Value, bool) {
	v, ok := n.Child.Update(ctx)
	if !ok || v.Kind != types.VArray {
		return types.Value{}, false
	}
	from, to := 0, len(v.Elems)
	if n.From != nil {
		if fv, ok := n.From.Update(ctx); ok {
			from = int(fv.Int)
		}
	}
	if n.To != nil {
		if tv, ok := n.To.Update(ctx); ok {
			to = int(tv.Int)
		}
	}
	if from < 0 || to > len(v.Elems) || from > to {
		return n.errValue("ArrayIndexError", "slice out of range"), true
	}
	return types.Value{Kind: types.VArray, Elems: v.Elems[from:to]}, true
}
func (n *ArraySliceNode) Delete(ctx *Ctx) {
	n.Child.Delete(ctx)
	if n.From != nil {
		n.From.Delete(ctx)
	}
	if n.To != nil {
		n.To.Delete(ctx)
	}
}
func (n *ArraySliceNode) Sleep() {
	n.Child.Sleep()
	if n.From != nil {
		n.From.Sleep()
	}
	if n.To != nil {
		n.To.Sleep()
	}
}
func (n *ArraySliceNode) Typecheck() error { return n.Child.Typecheck() }
func (n *ArraySliceNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = n.Child.Refs(out)
	if n.From != nil {
		out = n.From.Refs(out)
	}
	if n.To != nil {
		out = n.To.Refs(out)
	}
	return out
}

// DoNode sequences a do-block's statements, threading value-of-last
// through (len(Exprs) >= 2 invariant at parse time;
// Update still tolerates 0/1 defensively since the compiler is free to
// degenerate trivial blocks).
type DoNode struct {
	base
	Exprs []Node
}

func NewDo(spec *ast.Expr, typ types.Type, exprs []Node) *DoNode {
	return &DoNode{base: base{spec: spec, typ: typ}, Exprs: exprs}
}
func (n *DoNode) Update(ctx *Ctx) (types.Value, bool) {
	var last types.Value
	var ok bool
	for _, e := range n.Exprs {
		if v, u := e.Update(ctx); u {
			last, ok = v, true
		}
	}
	return last, ok
}
func (n *DoNode) Delete(ctx *Ctx) {
	for _, e := range n.Exprs {
		e.Delete(ctx)
	}
}
func (n *DoNode) Sleep() {
	for _, e := range n.Exprs {
		e.Sleep()
	}
}
func (n *DoNode) Typecheck() error {
	for _, e := range n.Exprs {
		if err := e.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (n *DoNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, e := range n.Exprs {
		out = e.Refs(out)
	}
	return out
}
