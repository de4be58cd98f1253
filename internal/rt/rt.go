// Package rt implements Graphix's Runtime adapter: the
// capability object that parameterizes the evaluator for every
// external effect (variable storage, netidx pub/sub, RPC, timers,
// spawned futures). No netidx or RPC client ships in this module, so
// the network-facing methods are defined against a pluggable Transport
// the host wires in, following the same interface-only boundary as
// internal/resolve's NetidxSubscriber.
package rt

import (
	"context"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/types"
)

// SubId, PubId identify a live subscription or publication.
type SubId uint64
type PubId uint64

// DvalHandle mirrors a subscribed remote value; AbortHandle cancels a
// spawned future.
type DvalHandle struct{ Sub SubId }

type AbortHandle struct {
	cancel context.CancelFunc
}

// Abort cancels the spawned task if it has not already completed.
func (a AbortHandle) Abort() {
	if a.cancel != nil {
		a.cancel()
	}
}

// SpawnResult is what a spawned future resolves to: the BindId to post
// the value to.
type SpawnResult struct {
	Id    gxenv.BindId
	Value types.Value
}

// ListFlags controls subscribe-as-list semantics (list vs list_table).
type ListFlags int

const (
	ListPlain ListFlags = iota
	ListTable
)

// Transport is the pluggable network boundary: a host supplies a real
// netidx/RPC client; Local (see local.go) works against any Transport,
// or against none (nil) for hosts with no network backend configured.
type Transport interface {
	Subscribe(ctx context.Context, flags ListFlags, path string) (<-chan types.Value, func(), error)
	Publish(ctx context.Context, path string, v types.Value) (func(v types.Value), func(), error)
	CallRPC(ctx context.Context, path string, args []types.Value) (types.Value, error)
	PublishRPC(ctx context.Context, path string, doc string, spec types.Type, handler func([]types.Value) (types.Value, error)) (func(), error)
}

// Rt is the full capability surface the evaluator calls out through.
// It is a superset of node.Runtime: any *Local satisfies both.
type Rt interface {
	RefVar(id gxenv.BindId, topId ast.ExprId)
	UnrefVar(id gxenv.BindId, topId ast.ExprId)
	SetVar(id gxenv.BindId, v types.Value)
	NotifySet(id gxenv.BindId)

	Subscribe(ctx context.Context, flags ListFlags, path string, topId ast.ExprId) (DvalHandle, error)
	Unsubscribe(h DvalHandle)

	Publish(ctx context.Context, path string, v types.Value, topId ast.ExprId) (PubId, error)
	Update(id PubId, v types.Value)
	Unpublish(id PubId)

	List(id gxenv.BindId, path string)
	ListTable(id gxenv.BindId, path string)
	StopList(id gxenv.BindId)

	CallRPC(ctx context.Context, path string, args []types.Value, id gxenv.BindId)
	PublishRPC(ctx context.Context, path, doc string, spec types.Type, id gxenv.BindId) error
	UnpublishRPC(path string)

	SetTimer(id gxenv.BindId, d time.Duration)

	Spawn(f func(ctx context.Context) SpawnResult) AbortHandle
	Watch(ch <-chan []SpawnResult)

	// Commit flushes pending publish batches within publish_timeout
	//; called once per cycle by the evaluator.
	Commit(ctx context.Context, timeout time.Duration) error

	// Results drains values delivered asynchronously since the last
	// call: RPC responses, subscriptions, spawned-task completions,
	// and due timers — everything the evaluator folds into the next
	// Event's Changed set.
	Results() []Delivery
}

// Delivery is one asynchronously-produced (BindId, Value) pair folded
// into the next cycle's Event.
type Delivery struct {
	Id    gxenv.BindId
	Value types.Value
}

// GXExt is the custom-event extension the host loop alternates with
// cycle execution: "update_sources" refreshes whatever
// external source a host embeds (e.g. a UI toolkit's event queue);
// "do_cycle" lets the extension veto/delay a cycle; "is_ready" gates
// the alternation loop; "empty_event" is the Event used when no
// BindIds changed but the extension still wants a pass (e.g. to drive
// animation frames).
type GXExt interface {
	UpdateSources(ctx context.Context) error
	DoCycle(ctx context.Context) error
	IsReady() bool
	EmptyEvent() bool
}
