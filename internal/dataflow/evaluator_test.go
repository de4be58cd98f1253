package dataflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/rt"
	"github.com/graphix-lang/graphix/internal/types"
)

// recordingNode is a minimal node.Node whose Update reports the Changed
// value for a fixed watchId, letting tests observe exactly what Event
// the evaluator built for a cycle.
type recordingNode struct {
	watch   gxenv.BindId
	updates int
	deleted bool
}

func (n *recordingNode) Update(ctx *node.Ctx) (types.Value, bool) {
	n.updates++
	if ctx.Event == nil {
		return types.Value{}, false
	}
	v, ok := ctx.Event.Changed[n.watch]
	return v, ok
}
func (n *recordingNode) Delete(ctx *node.Ctx)                    { n.deleted = true }
func (n *recordingNode) Sleep()                                 {}
func (n *recordingNode) Typecheck() error                        { return nil }
func (n *recordingNode) Typ() types.Type                         { return types.Any{} }
func (n *recordingNode) Refs(out []gxenv.BindId) []gxenv.BindId  { return append(out, n.watch) }
func (n *recordingNode) Spec() *ast.Expr                         { return nil }

func TestEvaluatorRegisterPreservesInsertionOrder(t *testing.T) {
	e := New(rt.NewLocal(nil), 8)
	n1 := &recordingNode{watch: gxenv.BindId(1)}
	n2 := &recordingNode{watch: gxenv.BindId(2)}
	n3 := &recordingNode{watch: gxenv.BindId(3)}

	e.Register(ast.ExprId(30), n3, gxenv.New())
	e.Register(ast.ExprId(10), n1, gxenv.New())
	e.Register(ast.ExprId(20), n2, gxenv.New())

	require.Equal(t, []ast.ExprId{30, 10, 20}, e.order)
}

func TestEvaluatorRegisterIsIdempotent(t *testing.T) {
	e := New(rt.NewLocal(nil), 8)
	n1 := &recordingNode{watch: gxenv.BindId(1)}
	n2 := &recordingNode{watch: gxenv.BindId(1)}

	e.Register(ast.ExprId(1), n1, gxenv.New())
	e.Register(ast.ExprId(1), n2, gxenv.New())

	require.Len(t, e.order, 1)
	require.Same(t, n1, e.entries[ast.ExprId(1)].root)
}

func TestEvaluatorUnregisterDeletesAndRemovesFromOrder(t *testing.T) {
	e := New(rt.NewLocal(nil), 8)
	n1 := &recordingNode{watch: gxenv.BindId(1)}
	e.Register(ast.ExprId(1), n1, gxenv.New())

	e.Unregister(ast.ExprId(1))
	require.True(t, n1.deleted)
	require.Empty(t, e.order)
	require.NotContains(t, e.entries, ast.ExprId(1))
}

func TestEvaluatorCycleDeliversSetVarAndMarksInit(t *testing.T) {
	r := rt.NewLocal(nil)
	e := New(r, 8)
	defer e.Close()

	id := gxenv.BindId(5)
	n := &recordingNode{watch: id}
	e.Register(ast.ExprId(1), n, gxenv.New())

	r.SetVar(id, types.Value{Kind: types.VInt, Int: 7})
	require.NoError(t, e.Cycle(context.Background()))

	select {
	case out := <-e.Output():
		require.Equal(t, OutputUpdated, out.Kind)
		require.Equal(t, int64(7), out.Value.Int)
	default:
		t.Fatal("expected an Output on the first cycle")
	}
	require.Equal(t, 1, n.updates)
}

func TestEvaluatorPerKeyFIFOOverflow(t *testing.T) {
	r := rt.NewLocal(nil)
	e := New(r, 8)
	defer e.Close()

	id := gxenv.BindId(1)
	n := &recordingNode{watch: id}
	e.Register(ast.ExprId(1), n, gxenv.New())

	r.SetVar(id, types.Value{Kind: types.VInt, Int: 1})
	r.SetVar(id, types.Value{Kind: types.VInt, Int: 2})
	r.SetVar(id, types.Value{Kind: types.VInt, Int: 3})

	require.NoError(t, e.Cycle(context.Background()))
	first := <-e.Output()
	require.Equal(t, int64(1), first.Value.Int, "only the first write should take effect this cycle")
	require.Len(t, e.overflow[id], 2, "the rest should queue for later cycles")

	require.NoError(t, e.Cycle(context.Background()))
	second := <-e.Output()
	require.Equal(t, int64(2), second.Value.Int, "the next cycle promotes one queued overflow value")
	require.Len(t, e.overflow[id], 1)

	require.NoError(t, e.Cycle(context.Background()))
	third := <-e.Output()
	require.Equal(t, int64(3), third.Value.Int)
	require.Empty(t, e.overflow[id])
}

func TestEvaluatorOverflowDoesNotBlockOtherKeys(t *testing.T) {
	r := rt.NewLocal(nil)
	e := New(r, 8)
	defer e.Close()

	idA, idB := gxenv.BindId(1), gxenv.BindId(2)
	nA := &recordingNode{watch: idA}
	nB := &recordingNode{watch: idB}
	e.Register(ast.ExprId(1), nA, gxenv.New())
	e.Register(ast.ExprId(2), nB, gxenv.New())

	r.SetVar(idA, types.Value{Kind: types.VInt, Int: 1})
	r.SetVar(idA, types.Value{Kind: types.VInt, Int: 2})
	r.SetVar(idB, types.Value{Kind: types.VInt, Int: 100})

	require.NoError(t, e.Cycle(context.Background()))
	outs := drainOutputs(e, 2)
	require.ElementsMatch(t, []int64{1, 100}, []int64{outs[0].Value.Int, outs[1].Value.Int})
}

func drainOutputs(e *Evaluator, n int) []Output {
	outs := make([]Output, 0, n)
	for i := 0; i < n; i++ {
		outs = append(outs, <-e.Output())
	}
	return outs
}
