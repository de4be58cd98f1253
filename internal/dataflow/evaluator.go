// Package dataflow implements Graphix's per-cycle evaluator: the loop
// that drives every registered top-level node through one Update per
// Event, applies the per-key FIFO overflow rule to set_var/netidx/RPC
// deliveries, and asks the Runtime adapter to commit publish batches.
package dataflow

import (
	"context"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/rt"
	"github.com/graphix-lang/graphix/internal/types"
)

// OutputKind distinguishes the two shapes of value the output channel
// carries.
type OutputKind int

const (
	OutputUpdated OutputKind = iota
	OutputEnv
)

// Output is one value on the evaluator's output channel.
type Output struct {
	Kind  OutputKind
	Id    ast.ExprId
	Value types.Value
	Env   *gxenv.Env
}

// registryEntry is one live top-level root: its node, whether it has
// completed its first (Init) cycle, and the Env in effect when it was
// compiled (for Env snapshots on the output channel).
type registryEntry struct {
	root    node.Node
	initted bool
	env     *gxenv.Env
}

// Evaluator owns the node registry and drives cycles. Registration
// order is preserved (a Go map would not): a top-level expression
// inserted earlier is updated earlier.
type Evaluator struct {
	Rt             *rt.Local
	PublishTimeout time.Duration

	order   []ast.ExprId
	entries map[ast.ExprId]*registryEntry
	overflow map[gxenv.BindId][]types.Value

	out chan Output
}

// New builds an Evaluator around rt, with a buffered output channel of
// the given capacity (0 means unbuffered).
func New(r *rt.Local, outputBuf int) *Evaluator {
	return &Evaluator{
		Rt:             r,
		PublishTimeout: 2 * time.Second,
		entries:        map[ast.ExprId]*registryEntry{},
		overflow:       map[gxenv.BindId][]types.Value{},
		out:            make(chan Output, outputBuf),
	}
}

// Output is the read side of the evaluator's output channel.
func (e *Evaluator) Output() <-chan Output { return e.out }

// Register adds a compiled top-level root under id, preserving
// insertion order.
func (e *Evaluator) Register(id ast.ExprId, root node.Node, env *gxenv.Env) {
	if _, exists := e.entries[id]; exists {
		return
	}
	e.order = append(e.order, id)
	e.entries[id] = &registryEntry{root: root, env: env}
}

// Unregister tears a root down, unref'ing every BindId it still
// references.
func (e *Evaluator) Unregister(id ast.ExprId) {
	entry, ok := e.entries[id]
	if !ok {
		return
	}
	ctx := &node.Ctx{Rt: e.Rt, TopId: id}
	entry.root.Delete(ctx)
	delete(e.entries, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// candidate is one (BindId, Value) delivery contending for this cycle's
// commit slot.
type candidate struct {
	id gxenv.BindId
	v  types.Value
}

// Cycle runs exactly one propagation cycle: arbitrate
// this cycle's winning writes per BindId, build the Event, update every
// registered root, emit Updated(...) for whichever roots produced a
// value, and commit outstanding publish batches.
func (e *Evaluator) Cycle(ctx context.Context) error {
	changed := e.collectChanged()

	event := &node.Event{Changed: changed}
	for _, id := range e.order {
		entry := e.entries[id]
		event.Init = !entry.initted
		nctx := &node.Ctx{Rt: e.Rt, TopId: id, Event: event}
		if v, ok := entry.root.Update(nctx); ok {
			e.out <- Output{Kind: OutputUpdated, Id: id, Value: v}
		}
		entry.initted = true
	}

	return e.Rt.Commit(ctx, e.PublishTimeout)
}

// collectChanged arbitrates the pending set_var queue plus any
// asynchronously delivered Results() (subscriptions, RPC responses,
// spawned-task completions, timers) into this cycle's Changed map,
// applying the per-key FIFO rule: only the first write to a given
// BindId takes effect this cycle; the rest queue in e.overflow for a
// later cycle.
func (e *Evaluator) collectChanged() map[gxenv.BindId]types.Value {
	var all []candidate
	for _, p := range e.Rt.DrainPending() {
		all = append(all, candidate{id: p.Id, v: p.Value})
	}
	for _, d := range e.Rt.Results() {
		all = append(all, candidate{id: d.Id, v: d.Value})
	}

	changed := map[gxenv.BindId]types.Value{}
	for _, c := range all {
		if _, taken := changed[c.id]; taken {
			e.overflow[c.id] = append(e.overflow[c.id], c.v)
			continue
		}
		changed[c.id] = c.v
		e.Rt.CommitVar(c.id, c.v)
	}

	// Promote one queued overflow value per key that wasn't already
	// written to this cycle, preserving each key's FIFO order.
	for id, queue := range e.overflow {
		if len(queue) == 0 {
			delete(e.overflow, id)
			continue
		}
		if _, already := changed[id]; already {
			continue
		}
		changed[id] = queue[0]
		e.Rt.CommitVar(id, queue[0])
		e.overflow[id] = queue[1:]
	}
	return changed
}

// Close releases the output channel. Callers must stop calling Cycle
// before Close.
func (e *Evaluator) Close() {
	close(e.out)
}
