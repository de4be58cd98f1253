// Package node defines the dataflow graph's node capability: every
// compiled expression becomes a Node that can be updated once per
// cycle, typechecked, slept, and deleted — a long-lived, repeatedly
// updated graph rather than a one-shot tree-walk.
package node

import (
	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/types"
)

// Ctx threads the pieces a node needs to reach the outside world
// without every node importing the runtime/host packages directly.
type Ctx struct {
	Rt    Runtime
	TopId ast.ExprId
	Event *Event
}

// Runtime is the narrow slice of the full rt.Rt interface that node
// implementations call directly; it is declared here (not imported from
// package rt) so node has no dependency on rt.
type Runtime interface {
	RefVar(id gxenv.BindId, topId ast.ExprId)
	UnrefVar(id gxenv.BindId, topId ast.ExprId)
	SetVar(id gxenv.BindId, v types.Value)
	NotifySet(id gxenv.BindId)
}

// Event is one propagation cycle's input: the set of BindIds whose
// variable-table value changed, plus whether this is the very first
// cycle for a given top-level expression.
type Event struct {
	Changed map[gxenv.BindId]types.Value
	Init    bool
}

func (e *Event) changedValue(id gxenv.BindId) (types.Value, bool) {
	if e == nil || e.Changed == nil {
		return types.Value{}, false
	}
	v, ok := e.Changed[id]
	return v, ok
}

// Node is the capability every compiled expression implements.
type Node interface {
	// Update runs one propagation cycle, returning a value iff this
	// node's output changed.
	Update(ctx *Ctx) (types.Value, bool)

	// Delete tears the node down, unref'ing every BindId it still holds
	// a reference to.
	Delete(ctx *Ctx)

	// Sleep forgets cached state without changing bind lifetimes (used
	// on unselected select arms and dormant dynamic-module reloads).
	Sleep()

	// Typecheck validates the node (and recursively its children),
	// returning an error describing the first failing check.
	Typecheck() error

	// Typ returns the node's static result type.
	Typ() types.Type

	// Refs appends every BindId this node and its children reference,
	// for delete/unref bookkeeping.
	Refs(out []gxenv.BindId) []gxenv.BindId

	// Spec returns the originating expression, for error reporting.
	Spec() *ast.Expr
}

// Cached wraps a single child input, remembering its last-seen value
// across cycles in which the child did not update. Combinators with N children hold N of these and derive
// Updated/Determined from them.
type Cached struct {
	Child   Node
	value   types.Value
	has     bool
	updated bool
}

// Pull runs the child for this cycle, updating the cache if the child
// produced a value, and recording whether it updated this cycle.
func (c *Cached) Pull(ctx *Ctx) {
	v, ok := c.Child.Update(ctx)
	c.updated = ok
	if ok {
		c.value = v
		c.has = true
	}
}

// Updated reports whether the wrapped child produced a new value this
// cycle.
func (c *Cached) Updated() bool { return c.updated }

// Determined reports whether the cache holds any value at all (from
// this cycle or an earlier one).
func (c *Cached) Determined() bool { return c.has }

// Value returns the cached value; callers must check Determined first.
func (c *Cached) Value() types.Value { return c.value }

// Sleep clears the cache.
func (c *Cached) Sleep() {
	c.has = false
	c.updated = false
	c.Child.Sleep()
}
