package rt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/types"
)

// fakeTransport is an in-memory Transport stand-in for tests, since no
// real netidx/RPC client ships in this module.
type fakeTransport struct {
	subCh map[string]chan types.Value
	rpc   map[string]types.Value
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subCh: map[string]chan types.Value{}, rpc: map[string]types.Value{}}
}

func (f *fakeTransport) Subscribe(ctx context.Context, flags ListFlags, path string) (<-chan types.Value, func(), error) {
	ch := make(chan types.Value, 4)
	f.subCh[path] = ch
	return ch, func() { close(ch) }, nil
}

func (f *fakeTransport) Publish(ctx context.Context, path string, v types.Value) (func(types.Value), func(), error) {
	var last types.Value
	update := func(v types.Value) { last = v }
	_ = last
	return update, func() {}, nil
}

func (f *fakeTransport) CallRPC(ctx context.Context, path string, args []types.Value) (types.Value, error) {
	return f.rpc[path], nil
}

func (f *fakeTransport) PublishRPC(ctx context.Context, path, doc string, spec types.Type, handler func([]types.Value) (types.Value, error)) (func(), error) {
	return func() {}, nil
}

func TestRefVarUnrefVarLifecycle(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(1)
	top := ast.ExprId(1)

	l.RefVar(id, top)
	l.CommitVar(id, types.Value{Kind: types.VInt, Int: 42})
	v, ok := l.Var(id)
	require.True(t, ok)
	require.Equal(t, int64(42), v.Int)

	l.UnrefVar(id, top)
	_, ok = l.Var(id)
	require.False(t, ok, "last unref should evict the variable")
}

func TestRefVarMultipleHolders(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(1)
	l.RefVar(id, ast.ExprId(1))
	l.RefVar(id, ast.ExprId(2))
	l.CommitVar(id, types.Value{Kind: types.VBool, Bool: true})

	l.UnrefVar(id, ast.ExprId(1))
	_, ok := l.Var(id)
	require.True(t, ok, "one remaining holder should keep the variable alive")

	l.UnrefVar(id, ast.ExprId(2))
	_, ok = l.Var(id)
	require.False(t, ok)
}

func TestSetVarDrainPendingFIFOOrder(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(1)

	l.SetVar(id, types.Value{Kind: types.VInt, Int: 1})
	l.SetVar(id, types.Value{Kind: types.VInt, Int: 2})
	l.SetVar(id, types.Value{Kind: types.VInt, Int: 3})

	pending := l.DrainPending()
	require.Len(t, pending, 3)
	require.Equal(t, int64(1), pending[0].Value.Int)
	require.Equal(t, int64(2), pending[1].Value.Int)
	require.Equal(t, int64(3), pending[2].Value.Int)

	require.Empty(t, l.DrainPending(), "drain should clear the queue")
}

func TestSubscribeUnsubscribeDeferredTeardown(t *testing.T) {
	ft := newFakeTransport()
	l := NewLocal(ft)
	l.deferredWait = 10 * time.Millisecond

	h, err := l.Subscribe(context.Background(), ListPlain, "/topic", ast.ExprId(1))
	require.NoError(t, err)

	ft.subCh["/topic"] <- types.Value{Kind: types.VInt, Int: 7}
	var delivered []Delivery
	require.Eventually(t, func() bool {
		delivered = l.Results()
		return len(delivered) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, int64(7), delivered[0].Value.Int)

	l.Unsubscribe(h)
	l.FlushDeferred(time.Now())
	require.Len(t, l.deferred, 1, "teardown should not happen before the quiet period elapses")

	l.FlushDeferred(time.Now().Add(20 * time.Millisecond))
	require.Empty(t, l.deferred)
}

func TestSubscribeNoTransportErrors(t *testing.T) {
	l := NewLocal(nil)
	_, err := l.Subscribe(context.Background(), ListPlain, "/topic", ast.ExprId(1))
	require.Error(t, err)
}

func TestListWithoutTransportProducesNetError(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(1)
	l.List(id, "/topic")

	results := l.Results()
	require.Len(t, results, 1)
	require.Equal(t, types.VError, results[0].Value.Kind)
	require.Equal(t, "NetError", results[0].Value.Inner.Fields["error"].Tag)
}

func TestPublishUpdateUnpublish(t *testing.T) {
	ft := newFakeTransport()
	l := NewLocal(ft)

	id, err := l.Publish(context.Background(), "/topic", types.Value{Kind: types.VInt, Int: 1}, ast.ExprId(1))
	require.NoError(t, err)

	l.Update(id, types.Value{Kind: types.VInt, Int: 2})
	l.Unpublish(id)

	l.mu.Lock()
	_, stillThere := l.pubs[id]
	l.mu.Unlock()
	require.False(t, stillThere)
}

func TestCallRPCWithTransport(t *testing.T) {
	ft := newFakeTransport()
	ft.rpc["/add"] = types.Value{Kind: types.VInt, Int: 5}
	l := NewLocal(ft)

	id := gxenv.BindId(9)
	l.CallRPC(context.Background(), "/add", nil, id)

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.results) == 1
	}, time.Second, time.Millisecond)

	results := l.Results()
	require.Equal(t, id, results[0].Id)
	require.Equal(t, int64(5), results[0].Value.Int)
}

func TestCallRPCWithoutTransportProducesRpcError(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(1)
	l.CallRPC(context.Background(), "/add", nil, id)

	results := l.Results()
	require.Len(t, results, 1)
	require.Equal(t, "RpcError", results[0].Value.Inner.Fields["error"].Tag)
}

func TestSetTimerDeliversAfterDuration(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(3)
	l.SetTimer(id, 5*time.Millisecond)

	var delivered []Delivery
	require.Eventually(t, func() bool {
		delivered = l.Results()
		return len(delivered) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, id, delivered[0].Id)
	require.Equal(t, types.VDatetime, delivered[0].Value.Kind)
}

func TestSpawnDeliversResult(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(4)
	l.Spawn(func(ctx context.Context) SpawnResult {
		return SpawnResult{Id: id, Value: types.Value{Kind: types.VInt, Int: 99}}
	})

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.results) == 1
	}, time.Second, time.Millisecond)

	results := l.Results()
	require.Equal(t, int64(99), results[0].Value.Int)
}

func TestSpawnAbortPreventsDelivery(t *testing.T) {
	l := NewLocal(nil)
	id := gxenv.BindId(5)
	started := make(chan struct{})
	h := l.Spawn(func(ctx context.Context) SpawnResult {
		close(started)
		<-ctx.Done()
		return SpawnResult{Id: id, Value: types.Value{Kind: types.VInt, Int: 1}}
	})
	<-started
	h.Abort()

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, l.Results())
}

func TestWatchDeliversBatches(t *testing.T) {
	l := NewLocal(nil)
	ch := make(chan []SpawnResult, 1)
	l.Watch(ch)
	ch <- []SpawnResult{{Id: gxenv.BindId(1), Value: types.Value{Kind: types.VInt, Int: 1}}}
	close(ch)

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.results) == 1
	}, time.Second, time.Millisecond)
}
