package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/types"
)

// runCollect drives the host for d and returns every Updated value the
// given root produced, in order.
func runCollect(t *testing.T, h *Host, id ast.ExprId, d time.Duration) []types.Value {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan []types.Value, 1)
	go func() {
		var outs []types.Value
		for {
			select {
			case out := <-h.Output():
				if out.Id == id {
					outs = append(outs, out.Value)
				}
			case <-ctx.Done():
				done <- outs
				return
			}
		}
	}()
	h.Run(ctx, 2*time.Millisecond, nil)
	return <-done
}

func lastOutput(t *testing.T, outs []types.Value) types.Value {
	t.Helper()
	require.NotEmpty(t, outs, "expected at least one output")
	return outs[len(outs)-1]
}

func TestArithmeticBind(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`{ let v = (((1+1)*2)/2) - 1; v }`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 100*time.Millisecond))
	require.Equal(t, int64(1), out.Int)
}

func TestLexicalClosure(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`{ let y = 10; let f = |x| x + y; f(10) }`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 150*time.Millisecond))
	require.Equal(t, int64(20), out.Int)
}

func TestPatternLoopSampleAndSelect(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`{
		let v: [i64, string] = "1";
		let v = select v { i64 as i => i, string as s => v <- cast<i64>(s) };
		v + 1
	}`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 300*time.Millisecond))
	require.Equal(t, int64(2), out.Int)
}

func TestLateBoundFunction(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`{
		let f: fn(i64) -> i64 = never();
		let res = f(1);
		f <- |i: i64| i + 1;
		res
	}`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 300*time.Millisecond))
	require.Equal(t, int64(2), out.Int)
}

func TestSampleAndHold(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`{ let t = 1; let x = 10; t ~ x }`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 100*time.Millisecond))
	require.Equal(t, int64(10), out.Int)
}

func TestTryCatchRoutesErrorToHandler(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`try cast<i64>("nope")? catch(e) => e`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 150*time.Millisecond))
	require.Equal(t, types.VError, out.Kind)
}

func TestDynamicModuleWithSandbox(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`
		let one = 1
		mod foo dynamic { sandbox whitelist [one]; sig { val two: i64; }; "let two = one + 1" }
		foo::two
	`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 200*time.Millisecond))
	require.Equal(t, int64(2), out.Int)
}

func TestDynamicModuleCallAcrossBoundary(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`
		mod foo dynamic { sig { val add: fn(i64) -> i64; val cfg: Array<i64>; }; "let add = |x: i64| -> i64 x + 1; let cfg = [1, 2, 3]" }
		foo::add(foo::cfg[0])
	`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 300*time.Millisecond))
	require.Equal(t, int64(2), out.Int)
}

func TestDynamicModuleSandboxHidesUnlistedBinds(t *testing.T) {
	h := New(nil)
	_, err := h.Compile(`
		let secret = 1
		mod foo dynamic { sandbox whitelist []; sig { }; "let x = secret" }
		foo::x
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "secret")
}

func TestDynamicModuleSigMismatchFails(t *testing.T) {
	h := New(nil)
	_, err := h.Compile(`
		mod foo dynamic { sig { val missing: i64; }; "let present = 1" }
		foo::present
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestRecursiveNamedType(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile("type L<'a> = [`Cons('a, L<'a>), `Nil]\n" +
		"let l: L<Any> = `Cons(42, `Cons(3, `Nil))\n" +
		"l")
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 150*time.Millisecond))
	require.Equal(t, types.VVariant, out.Kind)
	require.Equal(t, "Cons", out.Tag)
	require.Equal(t, int64(42), out.Args[0].Int)
	require.Equal(t, "Cons", out.Args[1].Tag)
	require.Equal(t, int64(3), out.Args[1].Args[0].Int)
}

func TestModuleQualifiedReference(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`
		mod util { let double = |x: i64| -> i64 x * 2 }
		util::double(21)
	`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 200*time.Millisecond))
	require.Equal(t, int64(42), out.Int)
}

func TestSelectNonExhaustiveArmsFailTypecheck(t *testing.T) {
	h := New(nil)
	// The catch bind is an error chain; two variant arms cannot cover it,
	// so the select must be rejected at compile time.
	_, err := h.Compile("try cast<i64>(\"nope\")? catch(e) => " +
		"select e { `ArithError(s) => s, `ArrayIndexError(s) => s }")
	require.Error(t, err)
	require.Contains(t, err.Error(), "exhaustive")
}

func TestQopChainsErrorPayload(t *testing.T) {
	h := New(nil)
	handle, err := h.Compile(`try cast<i64>("nope")? catch(e) => e`)
	require.NoError(t, err)
	out := lastOutput(t, runCollect(t, h, handle.Id, 150*time.Millisecond))
	require.Equal(t, types.VError, out.Kind)

	// The diverted error carries the canonical {cause, error, ori, pos}
	// payload: the original InvalidCast variant is copied forward and
	// the prior chain sits under cause.
	payload := out.Inner
	require.NotNil(t, payload)
	require.Equal(t, types.VStruct, payload.Kind)
	errField := payload.Fields["error"]
	require.Equal(t, types.VVariant, errField.Kind)
	require.Equal(t, "InvalidCast", errField.Tag)
	require.Equal(t, types.VError, payload.Fields["cause"].Kind)
}
