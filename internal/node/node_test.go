package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/types"
)

// fakeRuntime is a minimal Runtime stand-in recording SetVar calls, for
// nodes (BindNode/ConnectNode) that route values through ctx.Rt.
type fakeRuntime struct {
	set map[gxenv.BindId]types.Value
}

func newFakeRuntime() *fakeRuntime { return &fakeRuntime{set: map[gxenv.BindId]types.Value{}} }

func (f *fakeRuntime) RefVar(gxenv.BindId, ast.ExprId)          {}
func (f *fakeRuntime) UnrefVar(gxenv.BindId, ast.ExprId)        {}
func (f *fakeRuntime) SetVar(id gxenv.BindId, v types.Value)    { f.set[id] = v }
func (f *fakeRuntime) NotifySet(gxenv.BindId)                   {}

func intLit(v int64) *LiteralNode {
	return NewLiteral(nil, types.NewPrimitive(types.PI64), types.Value{Kind: types.VInt, Int: v})
}

func TestLiteralNodeFiresOnlyOnInitCycle(t *testing.T) {
	n := intLit(7)
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, int64(7), v.Int)

	_, ok = n.Update(&Ctx{Event: &Event{Init: false}})
	require.False(t, ok, "a literal must not refire once it has already fired")
}

func TestLiteralNodeSleepAllowsRefire(t *testing.T) {
	n := intLit(3)
	_, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)

	n.Sleep()
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, int64(3), v.Int)
}

func TestRefNodeForwardsChangedValue(t *testing.T) {
	id := gxenv.BindId(42)
	n := NewRef(nil, types.Any{}, id)

	_, ok := n.Update(&Ctx{Event: &Event{Changed: map[gxenv.BindId]types.Value{}}})
	require.False(t, ok, "unchanged bind should not produce a value")

	v, ok := n.Update(&Ctx{Event: &Event{Changed: map[gxenv.BindId]types.Value{
		id: {Kind: types.VInt, Int: 9},
	}}})
	require.True(t, ok)
	require.Equal(t, int64(9), v.Int)
}

func TestRefNodeRefsReportsItsBindAfterDelete(t *testing.T) {
	id := gxenv.BindId(1)
	n := NewRef(nil, types.Any{}, id)
	rt := newFakeRuntime()
	top := ast.ExprId(5)

	n.Delete(&Ctx{Rt: rt, TopId: top})

	require.Equal(t, []gxenv.BindId{id}, n.Refs(nil))
}

func TestBinOpAddsOnFirstCycle(t *testing.T) {
	n := NewBinOp(nil, types.Any{}, ast.OpAdd, intLit(2), intLit(3))
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, int64(5), v.Int)
}

func TestBinOpDoesNotRefireWhenNeitherSideChanges(t *testing.T) {
	n := NewBinOp(nil, types.Any{}, ast.OpAdd, intLit(2), intLit(3))
	_, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)

	_, ok = n.Update(&Ctx{Event: &Event{Init: false}})
	require.False(t, ok, "both literals already fired; no change this cycle")
}

func TestBinOpDivisionByZeroProducesErrorValue(t *testing.T) {
	n := NewBinOp(nil, types.Any{}, ast.OpDiv, intLit(1), intLit(0))
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, types.VError, v.Kind)

	// The payload is the canonical {cause, error, ori, pos} struct with
	// the error under a tagged variant.
	require.Equal(t, types.VStruct, v.Inner.Kind)
	errField := v.Inner.Fields["error"]
	require.Equal(t, types.VVariant, errField.Kind)
	require.Equal(t, "ArithError", errField.Tag)
	require.Contains(t, errField.Args[0].Str, "division by zero")
	require.Equal(t, types.VNull, v.Inner.Fields["cause"].Kind)
}

func TestBinOpComparison(t *testing.T) {
	n := NewBinOp(nil, types.Any{}, ast.OpLt, intLit(2), intLit(3))
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.True(t, v.Bool)
}

func TestTupleNodeCombinesChildren(t *testing.T) {
	n := NewTuple(nil, &types.Tuple{}, []Node{intLit(1), intLit(2), intLit(3)})
	v, ok := n.Update(&Ctx{Event: &Event{Init: true}})
	require.True(t, ok)
	require.Equal(t, types.VTuple, v.Kind)
	require.Len(t, v.Elems, 3)
	require.Equal(t, int64(1), v.Elems[0].Int)
	require.Equal(t, int64(2), v.Elems[1].Int)
	require.Equal(t, int64(3), v.Elems[2].Int)
}

func TestSimpleBindPatternRoutesThroughRuntime(t *testing.T) {
	rt := newFakeRuntime()
	id := gxenv.BindId(1)
	p := &SimpleBindPattern{Id: id}
	p.Bind(&Ctx{Rt: rt}, types.Value{Kind: types.VInt, Int: 11})

	require.Equal(t, int64(11), rt.set[id].Int)
}

func TestVariantPatternMatchesTagAndArity(t *testing.T) {
	p := &VariantPattern{Tag: "Some", Args: []PatternNode{&WildcardPattern{}}}
	require.True(t, p.Matches(types.Value{Kind: types.VVariant, Tag: "Some", Args: []types.Value{{Kind: types.VInt, Int: 1}}}))
	require.False(t, p.Matches(types.Value{Kind: types.VVariant, Tag: "None"}))
}

func TestCachedTracksUpdatedAndDetermined(t *testing.T) {
	c := &Cached{Child: intLit(5)}
	require.False(t, c.Determined())

	c.Pull(&Ctx{Event: &Event{Init: true}})
	require.True(t, c.Determined())
	require.True(t, c.Updated())
	require.Equal(t, int64(5), c.Value().Int)

	c.Pull(&Ctx{Event: &Event{Init: false}})
	require.True(t, c.Determined(), "cache should retain the last value")
	require.False(t, c.Updated(), "the literal fired only once")
}
