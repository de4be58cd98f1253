package rt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/gxerrors"
	"github.com/graphix-lang/graphix/internal/types"
)

// deferredUnsub is one entry in the "unsubscribe after quiet period"
// ring buffer.
type deferredUnsub struct {
	at     time.Time
	cancel func()
}

// Local is the in-process Runtime adapter: it owns the variable table,
// reference counts, and the pending-set queue the evaluator drains each
// cycle, and delegates only the genuinely network-facing calls
// (subscribe/publish/rpc) to a pluggable Transport, with a monotonic
// timer anchor for SetTimer.
type Local struct {
	mu sync.Mutex

	vars     map[gxenv.BindId]types.Value
	refcount map[gxenv.BindId]map[ast.ExprId]int
	pending  []PendingSet

	transport Transport
	subs      map[SubId]func()
	nextSub   SubId
	pubs      map[PubId]func(types.Value)
	pubCancel map[PubId]func()
	nextPub   PubId

	deferred     []deferredUnsub
	deferredWait time.Duration

	results []Delivery
	timers  []*time.Timer
}

// PendingSet is one queued set_var call awaiting the evaluator's
// per-cycle arbitration.
type PendingSet struct {
	Id    gxenv.BindId
	Value types.Value
}

// NewLocal builds a Local runtime adapter. transport may be nil if the
// host has no netidx/RPC backend configured; Subscribe, Publish and
// PublishRPC then return an error, and List, ListTable and CallRPC
// deliver a NetError/RpcError value, instead of blocking.
func NewLocal(transport Transport) *Local {
	return &Local{
		vars:         map[gxenv.BindId]types.Value{},
		refcount:     map[gxenv.BindId]map[ast.ExprId]int{},
		transport:    transport,
		subs:         map[SubId]func(){},
		pubs:         map[PubId]func(types.Value){},
		pubCancel:    map[PubId]func(){},
		deferredWait: time.Second,
	}
}

func (l *Local) RefVar(id gxenv.BindId, topId ast.ExprId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.refcount[id]
	if !ok {
		m = map[ast.ExprId]int{}
		l.refcount[id] = m
	}
	m[topId]++
}

func (l *Local) UnrefVar(id gxenv.BindId, topId ast.ExprId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.refcount[id]
	if !ok {
		return
	}
	m[topId]--
	if m[topId] <= 0 {
		delete(m, topId)
	}
	if len(m) == 0 {
		delete(l.refcount, id)
		delete(l.vars, id)
	}
}

// SetVar queues a write; per-key first-wins-this-cycle arbitration and
// FIFO re-queueing of the rest is the evaluator's job, since only the evaluator knows where one cycle ends and the
// next begins.
func (l *Local) SetVar(id gxenv.BindId, v types.Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, PendingSet{Id: id, Value: v})
}

func (l *Local) NotifySet(id gxenv.BindId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.vars[id]; ok {
		l.results = append(l.results, Delivery{Id: id, Value: v})
	}
}

// DrainPending removes and returns every queued SetVar call since the
// last drain, in call order (per-key FIFO).
func (l *Local) DrainPending() []PendingSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pending
	l.pending = nil
	return p
}

// CommitVar writes v into the variable table for id, for use by the
// evaluator once it has resolved which pending write (if any) wins this
// cycle.
func (l *Local) CommitVar(id gxenv.BindId, v types.Value) {
	l.mu.Lock()
	l.vars[id] = v
	l.mu.Unlock()
}

func (l *Local) Var(id gxenv.BindId) (types.Value, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.vars[id]
	return v, ok
}

func (l *Local) Subscribe(ctx context.Context, flags ListFlags, path string, topId ast.ExprId) (DvalHandle, error) {
	if l.transport == nil {
		return DvalHandle{}, fmt.Errorf("subscribe %s: no transport configured", path)
	}
	ch, cancel, err := l.transport.Subscribe(ctx, flags, path)
	if err != nil {
		return DvalHandle{}, err
	}
	l.mu.Lock()
	l.nextSub++
	id := l.nextSub
	l.subs[id] = cancel
	l.mu.Unlock()
	go func() {
		for v := range ch {
			l.mu.Lock()
			l.results = append(l.results, Delivery{Value: v})
			l.mu.Unlock()
		}
	}()
	return DvalHandle{Sub: id}, nil
}

// Unsubscribe defers the actual teardown by deferredWait,
// so a briefly-reappearing expression doesn't thrash the transport.
func (l *Local) Unsubscribe(h DvalHandle) {
	l.mu.Lock()
	cancel, ok := l.subs[h.Sub]
	if ok {
		delete(l.subs, h.Sub)
		l.deferred = append(l.deferred, deferredUnsub{at: time.Now().Add(l.deferredWait), cancel: cancel})
	}
	l.mu.Unlock()
}

// FlushDeferred actually cancels any deferred unsubscription whose
// quiet period has elapsed; the host loop calls this periodically.
func (l *Local) FlushDeferred(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.deferred[:0]
	for _, d := range l.deferred {
		if now.After(d.at) {
			d.cancel()
		} else {
			kept = append(kept, d)
		}
	}
	l.deferred = kept
}

func (l *Local) Publish(ctx context.Context, path string, v types.Value, topId ast.ExprId) (PubId, error) {
	if l.transport == nil {
		return 0, fmt.Errorf("publish %s: no transport configured", path)
	}
	update, cancel, err := l.transport.Publish(ctx, path, v)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.nextPub++
	id := l.nextPub
	l.pubs[id] = update
	l.pubCancel[id] = cancel
	l.mu.Unlock()
	return id, nil
}

func (l *Local) Update(id PubId, v types.Value) {
	l.mu.Lock()
	update := l.pubs[id]
	l.mu.Unlock()
	if update != nil {
		update(v)
	}
}

func (l *Local) Unpublish(id PubId) {
	l.mu.Lock()
	cancel := l.pubCancel[id]
	delete(l.pubs, id)
	delete(l.pubCancel, id)
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// List and ListTable both subscribe to path through the transport, with
// ListPlain or ListTable flags respectively, and deliver every value the
// transport sends to id unchanged; without a transport, or when the
// subscription fails, they deliver one NetError value instead.
func (l *Local) List(id gxenv.BindId, path string) {
	l.listInternal(id, path, ListPlain)
}

func (l *Local) ListTable(id gxenv.BindId, path string) {
	l.listInternal(id, path, ListTable)
}

func (l *Local) listInternal(id gxenv.BindId, path string, flags ListFlags) {
	if l.transport == nil {
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: gxerrors.NewErrorValue("NetError", "no transport configured", ast.SourcePosition{}, path, nil)})
		l.mu.Unlock()
		return
	}
	ch, cancel, err := l.transport.Subscribe(context.Background(), flags, path)
	if err != nil {
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: gxerrors.NewErrorValue("NetError", err.Error(), ast.SourcePosition{}, path, nil)})
		l.mu.Unlock()
		return
	}
	l.mu.Lock()
	l.nextSub++
	sid := l.nextSub
	l.subs[sid] = cancel
	l.mu.Unlock()
	go func() {
		for v := range ch {
			l.mu.Lock()
			l.results = append(l.results, Delivery{Id: id, Value: v})
			l.mu.Unlock()
		}
	}()
}

func (l *Local) StopList(id gxenv.BindId) {
	// The goroutine started in listInternal exits when the transport
	// closes its channel after Unsubscribe; StopList is the caller's
	// signal that it no longer wants further deliveries to id, which it
	// enforces by simply no longer reading the Results() it produces.
}

func (l *Local) CallRPC(ctx context.Context, path string, args []types.Value, id gxenv.BindId) {
	if l.transport == nil {
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: gxerrors.NewErrorValue("RpcError", "no transport configured", ast.SourcePosition{}, path, nil)})
		l.mu.Unlock()
		return
	}
	go func() {
		v, err := l.transport.CallRPC(ctx, path, args)
		if err != nil {
			v = gxerrors.NewErrorValue("RpcError", err.Error(), ast.SourcePosition{}, path, nil)
		}
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: v})
		l.mu.Unlock()
	}()
}

func (l *Local) PublishRPC(ctx context.Context, path, doc string, spec types.Type, id gxenv.BindId) error {
	if l.transport == nil {
		return fmt.Errorf("publish_rpc %s: no transport configured", path)
	}
	handler := func(args []types.Value) (types.Value, error) {
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: types.Value{Kind: types.VArray, Elems: args}})
		l.mu.Unlock()
		return types.Value{Kind: types.VNull}, nil
	}
	cancel, err := l.transport.PublishRPC(ctx, path, doc, spec, handler)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.pubCancel[PubId(id)] = cancel
	l.mu.Unlock()
	return nil
}

func (l *Local) UnpublishRPC(path string) {}

// SetTimer guarantees exactly one Variable(id, now) delivery at least d
// after the call; a timer belonging to a deleted node is
// not cancelled here (the node's own Delete simply stops reading
// Results() for that id — "a stale firing must be treated as a no-op").
func (l *Local) SetTimer(id gxenv.BindId, d time.Duration) {
	t := time.AfterFunc(d, func() {
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: id, Value: types.Value{Kind: types.VDatetime, Int: time.Now().UnixMilli()}})
		l.mu.Unlock()
	})
	l.mu.Lock()
	l.timers = append(l.timers, t)
	l.mu.Unlock()
}

// Spawn runs f on its own goroutine, delivering its result through
// Results(); aborting before completion guarantees no delivery, since the goroutine checks ctx.Err() before appending.
func (l *Local) Spawn(f func(ctx context.Context) SpawnResult) AbortHandle {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		r := f(ctx)
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		l.results = append(l.results, Delivery{Id: r.Id, Value: r.Value})
		l.mu.Unlock()
	}()
	return AbortHandle{cancel: cancel}
}

func (l *Local) Watch(ch <-chan []SpawnResult) {
	go func() {
		for batch := range ch {
			l.mu.Lock()
			for _, r := range batch {
				l.results = append(l.results, Delivery{Id: r.Id, Value: r.Value})
			}
			l.mu.Unlock()
		}
	}()
}

// Commit is a no-op for the in-process Local adapter: Update already
// applies synchronously. A netidx-backed Transport would batch writes
// here and flush within timeout.
func (l *Local) Commit(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (l *Local) Results() []Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.results
	l.results = nil
	return r
}

var _ Rt = (*Local)(nil)
