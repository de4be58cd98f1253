// Package host implements Graphix's host loop and handle API.
// The host wires loaded programs to the resolver/evaluator and
// exposes a handle-shaped API: one persistent session drives one
// evaluator across many incremental compiles.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/compile"
	"github.com/graphix-lang/graphix/internal/dataflow"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/parser"
	"github.com/graphix-lang/graphix/internal/resolve"
	"github.com/graphix-lang/graphix/internal/rt"
	"github.com/graphix-lang/graphix/internal/types"
)

// ExprHandle is the result of compile/load/check: a registered
// top-level root plus the Env snapshot in effect after it.
type ExprHandle struct {
	Id  ast.ExprId
	Env *gxenv.Env
}

// CallableHandle mirrors a compiled callable: calling it sets its
// argument BindIds for the next cycle.
type CallableHandle struct {
	Id     ast.ExprId
	ArgIds []gxenv.BindId
	host   *Host
}

// Call queues args as this cycle's (or the next cycle's, per the
// per-key FIFO overflow rule) inputs to the callable's argument binds.
func (c *CallableHandle) Call(args []types.Value) error {
	if len(args) != len(c.ArgIds) {
		return fmt.Errorf("host: callable expects %d args, got %d", len(c.ArgIds), len(args))
	}
	for i, a := range args {
		c.host.Rt.SetVar(c.ArgIds[i], a)
	}
	return nil
}

// RefHandle mirrors a single variable.
type RefHandle struct {
	Id     ast.ExprId
	BindId gxenv.BindId
	host   *Host
}

// Set writes v into the variable's next cycle.
func (r *RefHandle) Set(v types.Value) { r.host.Rt.SetVar(r.BindId, v) }

// SetDeref writes through the byref chain to the ultimate target bind,
// mirroring the `*name <- value` deref-connect form.
func (r *RefHandle) SetDeref(v types.Value) {
	target := r.BindId
	for {
		next, ok := r.host.RootEnv.ByrefChain[target]
		if !ok {
			break
		}
		target = next
	}
	r.host.Rt.SetVar(target, v)
}

// Update posts v as though it arrived from evaluation of eventId,
// i.e. a plain set_var; Graphix does not distinguish the two at the
// Rt boundary.
func (r *RefHandle) Update(eventId ast.ExprId, v types.Value) { r.Set(v) }

// Host is a running Graphix instance: its evaluator, runtime adapter,
// module resolvers, and the root Env new top-level compiles extend.
type Host struct {
	Eval      *dataflow.Evaluator
	Rt        *rt.Local
	RootEnv   *gxenv.Env
	Resolvers []resolve.Resolver
	Scope     modpath.ModPath

	syntheticCounter int
}

// New builds a Host around a fresh Local runtime adapter and evaluator.
func New(resolvers []resolve.Resolver) *Host {
	r := rt.NewLocal(nil)
	return &Host{
		Eval:      dataflow.New(r, 64),
		Rt:        r,
		RootEnv:   gxenv.New(),
		Resolvers: resolvers,
		Scope:     modpath.Root,
	}
}

// compileProgram type-resolves and lowers every top-level expression in
// prog in sequence, threading Env forward the way compileSeq's
// non-barrier Let handling does, and returns the last expression's node
// (the program's result) and id.
func (h *Host) compileProgram(prog []*ast.Expr) (node.Node, *ast.Expr, error) {
	if len(prog) == 0 {
		return nil, nil, fmt.Errorf("host: empty program")
	}
	env := h.RootEnv
	var root node.Node
	var last *ast.Expr
	for _, e := range prog {
		ctx := &compile.Ctx{Scope: h.Scope, Env: env}
		n, env2, err := compile.Compile(ctx, e)
		if err != nil {
			return nil, nil, err
		}
		root, env, last = n, env2, e
	}
	if err := root.Typecheck(); err != nil {
		return nil, nil, err
	}
	return root, last, nil
}

// Compile implements the compile(text) handle API.
func (h *Host) Compile(text string) (*ExprHandle, error) {
	origin := &ast.Origin{Kind: ast.OriginText, Path: "<compile>"}
	prog, err := parser.ParseProgram(text, "<compile>", origin)
	if err != nil {
		return nil, err
	}
	if err := resolve.Resolve(context.Background(), prog, h.Resolvers, origin); err != nil {
		return nil, err
	}
	root, last, err := h.compileProgram(prog)
	if err != nil {
		return nil, err
	}
	h.Eval.Register(last.Id, root, h.RootEnv)
	return &ExprHandle{Id: last.Id, Env: h.RootEnv}, nil
}

// resolveText tries each configured resolver in turn, aggregating
// failures into a CouldNotResolve-shaped error if every one
// declines.
func (h *Host) resolveText(path string) (string, error) {
	var errs []string
	for _, r := range h.Resolvers {
		text, _, ok, err := r.Resolve(context.Background(), path)
		if ok {
			return text, nil
		}
		if err != nil {
			errs = append(errs, r.Kind()+": "+err.Error())
		}
	}
	return "", &resolve.CouldNotResolve{Name: path, Errors: errs}
}

// Load implements load(path): a `.gx` file or modpath
// resolution, loaded and compiled the same way as Compile.
func (h *Host) Load(path string) (*ExprHandle, error) {
	origin := &ast.Origin{Kind: ast.OriginFile, Path: path}
	text, err := h.resolveText(path)
	if err != nil {
		return nil, fmt.Errorf("host: load %s: %w", path, err)
	}
	prog, err := parser.ParseProgram(text, path, origin)
	if err != nil {
		return nil, err
	}
	if err := resolve.Resolve(context.Background(), prog, h.Resolvers, origin); err != nil {
		return nil, err
	}
	root, last, err := h.compileProgram(prog)
	if err != nil {
		return nil, err
	}
	h.Eval.Register(last.Id, root, h.RootEnv)
	return &ExprHandle{Id: last.Id, Env: h.RootEnv}, nil
}

// Check implements check(path): compile + typecheck
// without retaining any state (no registration, no Env mutation).
func (h *Host) Check(path string) error {
	origin := &ast.Origin{Kind: ast.OriginFile, Path: path}
	text, err := h.resolveText(path)
	if err != nil {
		return fmt.Errorf("host: check %s: %w", path, err)
	}
	prog, err := parser.ParseProgram(text, path, origin)
	if err != nil {
		return err
	}
	if err := resolve.Resolve(context.Background(), prog, h.Resolvers, origin); err != nil {
		return err
	}
	root, _, err := h.compileProgram(prog)
	if err != nil {
		return err
	}
	ctx := &node.Ctx{Rt: h.Rt, TopId: 0}
	root.Delete(ctx) // discard: check never retains compiled state
	return nil
}

// syntheticName allocates a unique placeholder name for host-internal
// binds that never appear in user source (compile_callable's argument
// slots, compile_callable_by_name's target alias).
func (h *Host) syntheticName(prefix string) string {
	h.syntheticCounter++
	return fmt.Sprintf("$%s%d", prefix, h.syntheticCounter)
}

// CompileCallable implements compile_callable(lambda_id_value):
// a handle with .call(args), built by binding the lambda under a
// synthetic name and compiling a matching Apply against fresh argument
// binds the caller can then drive via CallableHandle.Call.
func (h *Host) CompileCallable(lambda *gxenv.LambdaDef, argc int) (*CallableHandle, error) {
	env := h.RootEnv
	fnName := h.syntheticName("fn")
	env, fnId := env.BindVariable(h.Scope, fnName, types.Any{})
	env.Lambdas[lambda.Id] = lambda
	gxenv.RegisterLambda(lambda)
	env = env.WithBindLambda(fnId, lambda.Id)

	argIds := make([]gxenv.BindId, argc)
	args := make([]ast.ApplyArg, argc)
	for i := 0; i < argc; i++ {
		name := h.syntheticName("arg")
		var id gxenv.BindId
		env, id = env.BindVariable(h.Scope, name, types.Any{})
		argIds[i] = id
		ref := ast.New(&ast.Reference{Name: name, BindId: uint64(id)}, nil, ast.SourcePosition{})
		args[i] = ast.ApplyArg{Value: ref}
	}
	fnRef := ast.New(&ast.Name{Name: fnName}, nil, ast.SourcePosition{})
	applyExpr := ast.New(&ast.Apply{Func: fnRef, Args: args}, nil, ast.SourcePosition{})

	ctx := &compile.Ctx{Scope: h.Scope, Env: env}
	n, env2, err := compile.Compile(ctx, applyExpr)
	if err != nil {
		return nil, err
	}
	h.RootEnv = env2
	h.Eval.Register(applyExpr.Id, n, env2)
	return &CallableHandle{Id: applyExpr.Id, ArgIds: argIds, host: h}, nil
}

// CompileRef implements compile_ref(bind_id).
func (h *Host) CompileRef(id gxenv.BindId) (*RefHandle, error) {
	b, ok := h.RootEnv.ByID[id]
	if !ok {
		return nil, fmt.Errorf("host: unknown bind id %d", id)
	}
	ref := ast.New(&ast.Reference{Name: b.Name, BindId: uint64(id)}, nil, ast.SourcePosition{})
	ctx := &compile.Ctx{Scope: h.Scope, Env: h.RootEnv}
	n, env2, err := compile.Compile(ctx, ref)
	if err != nil {
		return nil, err
	}
	h.RootEnv = env2
	h.Eval.Register(ref.Id, n, env2)
	return &RefHandle{Id: ref.Id, BindId: id, host: h}, nil
}

// CompileCallableByName implements
// compile_callable_by_name(env, scope, name): a late-bound call handle
// that resolves on the first non-never value and queues calls in the
// meantime — the same Callsite late-binding the compiler already
// applies to `f(args)` when f is a plain name (internal/compile's
// resolveLambdaDef BindLambda path), here driven from the host instead
// of from a parsed Apply expression.
func (h *Host) CompileCallableByName(env *gxenv.Env, scope modpath.ModPath, name string, argc int) (*CallableHandle, error) {
	argIds := make([]gxenv.BindId, argc)
	args := make([]ast.ApplyArg, argc)
	cur := env
	for i := 0; i < argc; i++ {
		argName := h.syntheticName("arg")
		var id gxenv.BindId
		cur, id = cur.BindVariable(scope, argName, types.Any{})
		argIds[i] = id
		ref := ast.New(&ast.Reference{Name: argName, BindId: uint64(id)}, nil, ast.SourcePosition{})
		args[i] = ast.ApplyArg{Value: ref}
	}
	fnRef := ast.New(&ast.Name{Name: name}, nil, ast.SourcePosition{})
	applyExpr := ast.New(&ast.Apply{Func: fnRef, Args: args}, nil, ast.SourcePosition{})

	ctx := &compile.Ctx{Scope: scope, Env: cur}
	n, env2, err := compile.Compile(ctx, applyExpr)
	if err != nil {
		return nil, err
	}
	h.RootEnv = env2
	h.Eval.Register(applyExpr.Id, n, env2)
	return &CallableHandle{Id: applyExpr.Id, ArgIds: argIds, host: h}, nil
}

// Set implements set(bind_id, value): writes a variable
// into the next cycle.
func (h *Host) Set(id gxenv.BindId, v types.Value) { h.Rt.SetVar(id, v) }

// Delete unregisters a previously compiled handle, balancing every
// ref_var with an unref_var.
func (h *Host) Delete(id ast.ExprId) { h.Eval.Unregister(id) }

// Run drives the host's select! loop: it alternates GXExt
// update_sources/do_cycle passes (when ext is non-nil) with ordinary
// evaluator cycles, spaced by tick, until ctx is cancelled.
func (h *Host) Run(ctx context.Context, tick time.Duration, ext rt.GXExt) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	gcTicker := time.NewTicker(30 * time.Second)
	defer gcTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gcTicker.C:
			h.Rt.FlushDeferred(time.Now())
		case <-ticker.C:
			if ext != nil {
				for ext.IsReady() {
					if err := ext.UpdateSources(ctx); err != nil {
						return err
					}
					if err := ext.DoCycle(ctx); err != nil {
						return err
					}
				}
			}
			if err := h.Eval.Cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// Output exposes the evaluator's output channel.
func (h *Host) Output() <-chan dataflow.Output { return h.Eval.Output() }
