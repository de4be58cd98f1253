package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/dataflow"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/resolve"
	"github.com/graphix-lang/graphix/internal/types"
)

func TestCompileArithmeticProducesOutputOnRun(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile("1 + 2 * 3")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go h.Run(ctx, 5*time.Millisecond, nil)

	select {
	case out := <-h.Output():
		require.Equal(t, dataflow.OutputUpdated, out.Kind)
		require.Equal(t, handle.Id, out.Id)
		require.Equal(t, int64(7), out.Value.Int)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the first cycle's output")
	}
}

func TestLoadResolvesThroughVFS(t *testing.T) {
	h := New([]resolve.Resolver{resolve.NewVFSResolver(map[string]string{
		"main": "10 * 2",
	})})
	handle, err := h.Load("main")
	require.NoError(t, err)
	require.NotZero(t, handle.Id)
}

func TestLoadReportsCouldNotResolve(t *testing.T) {
	h := New([]resolve.Resolver{resolve.NewVFSResolver(map[string]string{})})
	_, err := h.Load("missing")
	require.Error(t, err)
}

func TestCheckCompilesWithoutRegistering(t *testing.T) {
	h := New([]resolve.Resolver{resolve.NewVFSResolver(map[string]string{
		"main": "1 + 1",
	})})
	require.NoError(t, h.Check("main"))
	require.Empty(t, h.Eval.Output())
}

func TestCheckSurfacesCompileErrors(t *testing.T) {
	h := New([]resolve.Resolver{resolve.NewVFSResolver(map[string]string{
		"main": "undefined_name",
	})})
	require.Error(t, h.Check("main"))
}

// findBind returns the BindId RootEnv assigned to the first top-level
// binding named name, for tests driving the handle API against a
// specific variable.
func findBind(t *testing.T, h *Host, name string) gxenv.BindId {
	t.Helper()
	for id, b := range h.RootEnv.ByID {
		if b.Name == name {
			return id
		}
	}
	t.Fatalf("no bind named %q in RootEnv", name)
	return 0
}

func TestSetWritesVariableForNextCycle(t *testing.T) {
	h := New(nil)
	_, err := h.Compile("let x = 1; x")
	require.NoError(t, err)

	id := findBind(t, h, "x")
	h.Set(id, types.Value{Kind: types.VInt, Int: 42})

	pending := h.Rt.DrainPending()
	require.Len(t, pending, 1)
	require.Equal(t, id, pending[0].Id)
	require.Equal(t, int64(42), pending[0].Value.Int)
}

func TestCompileRefMirrorsVariable(t *testing.T) {
	h := New(nil)
	_, err := h.Compile("let counter = 0; counter")
	require.NoError(t, err)

	id := findBind(t, h, "counter")
	ref, err := h.CompileRef(id)
	require.NoError(t, err)
	require.Equal(t, id, ref.BindId)

	ref.Set(types.Value{Kind: types.VInt, Int: 5})
	h.Rt.CommitVar(id, types.Value{Kind: types.VInt, Int: 5})
	v, ok := h.Rt.Var(id)
	require.True(t, ok)
	require.Equal(t, int64(5), v.Int)
}

func TestCompileCallableCallsUnderlyingLambda(t *testing.T) {
	h := New(nil)
	_, err := h.Compile("let add = |a: i64, b: i64| -> i64 a + b; add")
	require.NoError(t, err)

	lambdaId := findLambda(t, h)
	callable, err := h.CompileCallable(h.RootEnv.Lambdas[lambdaId], 2)
	require.NoError(t, err)
	require.Len(t, callable.ArgIds, 2)

	require.NoError(t, callable.Call([]types.Value{
		{Kind: types.VInt, Int: 3},
		{Kind: types.VInt, Int: 4},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go h.Run(ctx, 5*time.Millisecond, nil)

	select {
	case out := <-h.Output():
		require.Equal(t, int64(7), out.Value.Int)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the callable's result")
	}
}

func findLambda(t *testing.T, h *Host) gxenv.LambdaId {
	t.Helper()
	for id := range h.RootEnv.Lambdas {
		return id
	}
	t.Fatal("no lambda registered in RootEnv")
	return 0
}

func TestDeleteUnregistersHandle(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile("1")
	require.NoError(t, err)
	h.Delete(handle.Id)

	require.NoError(t, h.Eval.Cycle(context.Background()))
	select {
	case out := <-h.Output():
		t.Fatalf("expected no output after delete, got %+v", out)
	default:
	}
}
