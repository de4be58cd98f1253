package compile

import (
	"fmt"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/gxenv"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/node"
	"github.com/graphix-lang/graphix/internal/parser"
	"github.com/graphix-lang/graphix/internal/types"
)

// compileLambda captures the lambda's definition and defining
// environment as a LambdaDef, producing a LiteralNode carrying a
// VLambdaId value; actual body compilation is deferred to call time
// (late binding).
func compileLambda(ctx *Ctx, e *ast.Expr, k *ast.Lambda) (node.Node, error) {
	id := gxenv.NextLambdaId()
	// Snapshot the defining environment so a later Callsite compiles
	// the body against the lexical scope in effect here, not the
	// caller's.
	def := &gxenv.LambdaDef{Id: id, Expr: k, Env: ctx.Env}
	ctx.Env.Lambdas[id] = def
	gxenv.RegisterLambda(def)
	fnType, err := lambdaType(ctx, k)
	if err != nil {
		return nil, wrapErr(e, err)
	}
	return node.NewLiteral(e, fnType, types.Value{Kind: types.VLambdaId, LambdaId: uint64(id)}), nil
}

func lambdaType(ctx *Ctx, k *ast.Lambda) (types.Type, error) {
	args := make([]types.FnArg, len(k.Args))
	for i, a := range k.Args {
		at, err := ResolveType(ctx.Env, ctx.Scope, a.Type)
		if err != nil {
			return nil, err
		}
		args[i] = types.FnArg{Label: a.Label, Optional: a.Optional, Type: at}
	}
	var vargs *types.FnArg
	if k.VArgs != nil {
		vt, err := ResolveType(ctx.Env, ctx.Scope, k.VArgs.Type)
		if err != nil {
			return nil, err
		}
		vargs = &types.FnArg{Label: k.VArgs.Label, Optional: k.VArgs.Optional, Type: vt}
	}
	ret, err := ResolveType(ctx.Env, ctx.Scope, k.RType)
	if err != nil {
		return nil, err
	}
	var throws types.Type = types.Bottom{}
	if k.Throws != nil {
		throws, err = ResolveType(ctx.Env, ctx.Scope, k.Throws)
		if err != nil {
			return nil, err
		}
	}
	return &types.Fn{Fn: &types.FnType{Args: args, VArgs: vargs, Return: ret, Throws: throws}}, nil
}

// compileApply dispatches call-site compilation. A direct lambda
// literal/name reference is resolved to its LambdaDef and compiled
// inline against an environment extended with the arguments bound as
// fresh variables. When the function expression is not statically
// known (e.g. a variable initialised to never() and connected later),
// a DynCallsiteNode compiles the arguments once and rebinds its body
// whenever a new lambda id arrives through the variable table.
func compileApply(ctx *Ctx, e *ast.Expr, k *ast.Apply) (node.Node, *gxenv.Env, error) {
	if name, isName := k.Func.Kind.(*ast.Name); isName && name.Name == "never" {
		if _, bound := ctx.Env.Resolve(ctx.Scope, "never"); !bound {
			children := make([]node.Node, len(k.Args))
			for i, a := range k.Args {
				c, _, err := Compile(ctx, a.Value)
				if err != nil {
					return nil, ctx.Env, err
				}
				children[i] = c
			}
			return node.NewNever(e, children), ctx.Env, nil
		}
	}
	def, ok := resolveLambdaDef(ctx, k.Func)
	if !ok {
		return compileDynApply(ctx, e, k)
	}
	callScope := ctx.Scope.Append(fmt.Sprintf("@call%d", e.Id))
	env := def.Env.DeclareModule(callScope)
	args, err := bindCallArgs(ctx, &env, callScope, def.Expr, k.Args)
	if err != nil {
		return nil, ctx.Env, wrapErr(e, err)
	}
	bodyCtx := &Ctx{Scope: callScope, Env: env, CatchId: ctx.CatchId}
	body, _, err := Compile(bodyCtx, def.Expr.Body)
	if err != nil {
		return nil, ctx.Env, err
	}
	return &CallsiteNode{body: body, argNodes: args}, ctx.Env, nil
}

// resolveLambdaDef finds the statically known LambdaDef a callsite's
// function expression refers to: either a bare lambda literal, or a
// name that was let-bound to one.
func resolveLambdaDef(ctx *Ctx, fn *ast.Expr) (*gxenv.LambdaDef, bool) {
	switch k := fn.Kind.(type) {
	case *ast.Name:
		id, ok := ctx.Env.Resolve(ctx.Scope, k.Name)
		if !ok {
			return nil, false
		}
		lid, ok := ctx.Env.BindLambda[id]
		if !ok {
			return nil, false
		}
		def, ok := ctx.Env.Lambdas[lid]
		return def, ok
	case *ast.Lambda:
		lid := gxenv.NextLambdaId()
		def := &gxenv.LambdaDef{Id: lid, Expr: k, Env: ctx.Env}
		ctx.Env.Lambdas[lid] = def
		gxenv.RegisterLambda(def)
		return def, true
	default:
		return nil, false
	}
}

func bindCallArgs(ctx *Ctx, env **gxenv.Env, scope modpath.ModPath, lam *ast.Lambda, args []ast.ApplyArg) ([]node.Node, error) {
	nodes := make([]node.Node, 0, len(args))
	byLabel := map[string]*ast.Expr{}
	var positional []*ast.Expr
	for _, a := range args {
		if a.Label != "" {
			byLabel[a.Label] = a.Value
		} else {
			positional = append(positional, a.Value)
		}
	}
	pi := 0
	for _, param := range lam.Args {
		var valExpr *ast.Expr
		if param.Label != "" {
			if v, ok := byLabel[param.Label]; ok {
				valExpr = v
			}
		}
		if valExpr == nil && pi < len(positional) {
			valExpr = positional[pi]
			pi++
		}
		if valExpr == nil {
			if param.Optional {
				continue
			}
			return nil, fmt.Errorf("missing argument %q", param.Label)
		}
		argCtx := &Ctx{Scope: ctx.Scope, Env: ctx.Env, CatchId: ctx.CatchId}
		v, _, err := Compile(argCtx, valExpr)
		if err != nil {
			return nil, err
		}
		paramType, err := ResolveType(*env, scope, param.Type)
		if err != nil {
			return nil, err
		}
		e2, id := (*env).BindVariable(scope, param.Label, paramType)
		*env = e2
		nodes = append(nodes, node.NewBind(valExpr, paramType, &node.SimpleBindPattern{Id: id}, v, nil))
	}
	return nodes, nil
}

// CallsiteNode threads every bound-argument BindNode and the compiled
// body through one Update per cycle.
type CallsiteNode struct {
	argNodes []node.Node
	body     node.Node
}

func (c *CallsiteNode) Update(ctx *node.Ctx) (types.Value, bool) {
	for _, a := range c.argNodes {
		a.Update(ctx)
	}
	return c.body.Update(ctx)
}
func (c *CallsiteNode) Delete(ctx *node.Ctx) {
	for _, a := range c.argNodes {
		a.Delete(ctx)
	}
	c.body.Delete(ctx)
}
func (c *CallsiteNode) Sleep() {
	for _, a := range c.argNodes {
		a.Sleep()
	}
	c.body.Sleep()
}
func (c *CallsiteNode) Typecheck() error { return c.body.Typecheck() }
func (c *CallsiteNode) Typ() types.Type  { return c.body.Typ() }
func (c *CallsiteNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, a := range c.argNodes {
		out = a.Refs(out)
	}
	return c.body.Refs(out)
}
func (c *CallsiteNode) Spec() *ast.Expr { return c.body.Spec() }

// compileDynApply compiles a callsite whose function expression only
// resolves at runtime: the function and argument subtrees are compiled
// once, and the body is compiled (or recompiled) when a lambda id
// arrives on the function input. Calls issued while the function is never() hold the
// latest argument values and deliver them as soon as the first id
// arrives.
func compileDynApply(ctx *Ctx, e *ast.Expr, k *ast.Apply) (node.Node, *gxenv.Env, error) {
	fn, _, err := Compile(ctx, k.Func)
	if err != nil {
		return nil, ctx.Env, err
	}
	ret := types.Type(types.Any{})
	if ft, ok := fn.Typ().(*types.Fn); ok {
		ret = ft.Fn.Return
	}
	d := &DynCallsiteNode{
		spec:    e,
		apply:   k,
		scope:   ctx.Scope,
		env:     ctx.Env,
		catchId: ctx.CatchId,
		fn:      node.Cached{Child: fn},
		ret:     ret,
	}
	d.args = make([]node.Cached, len(k.Args))
	d.labels = make([]string, len(k.Args))
	for i, a := range k.Args {
		c, _, err := Compile(ctx, a.Value)
		if err != nil {
			return nil, ctx.Env, err
		}
		d.args[i] = node.Cached{Child: c}
		d.labels[i] = a.Label
	}
	return d, ctx.Env, nil
}

// DynCallsiteNode is the late-bound form of CallsiteNode: its function
// input carries lambda ids as ordinary values, and a new id rewires the
// body without rebuilding the argument nodes.
type DynCallsiteNode struct {
	spec    *ast.Expr
	apply   *ast.Apply
	scope   modpath.ModPath
	env     *gxenv.Env
	catchId gxenv.BindId
	fn      node.Cached
	args    []node.Cached
	labels  []string
	ret     types.Type

	cur      gxenv.LambdaId
	body     node.Node
	paramIds []gxenv.BindId
	fresh    bool // body compiled this cycle; give it one Init update
}

func (d *DynCallsiteNode) Update(ctx *node.Ctx) (types.Value, bool) {
	d.fn.Pull(ctx)
	for i := range d.args {
		d.args[i].Pull(ctx)
	}
	if d.fn.Updated() {
		if v := d.fn.Value(); v.Kind == types.VLambdaId {
			lid := gxenv.LambdaId(v.LambdaId)
			if d.body == nil || lid != d.cur {
				d.rebind(ctx, lid)
			}
		}
	}
	if d.body == nil {
		return types.Value{}, false
	}
	// Forward argument updates (and, on a fresh bind, the held values)
	// into the parameter binds; they land next cycle via the variable
	// table, like any set_var.
	for i, id := range d.paramIds {
		if i >= len(d.args) || id == 0 {
			continue
		}
		if d.args[i].Determined() && (d.args[i].Updated() || d.fresh) && ctx.Rt != nil {
			ctx.Rt.SetVar(id, d.args[i].Value())
		}
	}
	ev := ctx.Event
	if d.fresh {
		d.fresh = false
		init := &node.Event{Init: true}
		if ev != nil {
			init.Changed = ev.Changed
		}
		ev = init
	}
	bctx := &node.Ctx{Rt: ctx.Rt, TopId: ctx.TopId, Event: ev}
	return d.body.Update(bctx)
}

// rebind tears down the previous body (if any) and compiles the lambda
// named by lid against its defining environment, sharing this
// callsite's already-compiled argument nodes.
func (d *DynCallsiteNode) rebind(ctx *node.Ctx, lid gxenv.LambdaId) {
	def, ok := gxenv.LookupLambda(lid)
	if !ok {
		def, ok = d.env.Lambdas[lid], d.env.Lambdas[lid] != nil
		if !ok {
			return
		}
	}
	if d.body != nil {
		d.body.Delete(ctx)
		d.body = nil
	}
	callScope := d.scope.Append(fmt.Sprintf("@dyn%d", d.spec.Id))
	env := def.Env.DeclareModule(callScope)

	byLabel := map[string]int{}
	var positional []int
	for i, l := range d.labels {
		if l != "" {
			byLabel[l] = i
		} else {
			positional = append(positional, i)
		}
	}
	var paramIds []gxenv.BindId
	var argIdx []int
	pi := 0
	for _, param := range def.Expr.Args {
		idx := -1
		if param.Label != "" {
			if j, ok := byLabel[param.Label]; ok {
				idx = j
			}
		}
		if idx < 0 && pi < len(positional) {
			idx = positional[pi]
			pi++
		}
		if idx < 0 {
			if param.Optional {
				continue
			}
			return // arity mismatch: leave unbound until a matching lambda arrives
		}
		paramType, err := ResolveType(env, callScope, param.Type)
		if err != nil {
			return
		}
		var id gxenv.BindId
		env, id = env.BindVariable(callScope, param.Label, paramType)
		paramIds = append(paramIds, id)
		argIdx = append(argIdx, idx)
	}
	bodyCtx := &Ctx{Scope: callScope, Env: env, CatchId: d.catchId}
	body, _, err := Compile(bodyCtx, def.Expr.Body)
	if err != nil {
		return
	}
	// Reorder paramIds into argument order so Update's forwarding loop
	// indexes d.args directly.
	ordered := make([]gxenv.BindId, len(d.args))
	for i := range ordered {
		ordered[i] = 0
	}
	for j, idx := range argIdx {
		if idx < len(ordered) {
			ordered[idx] = paramIds[j]
		}
	}
	d.paramIds = ordered
	d.cur = lid
	d.body = body
	d.fresh = true
}

func (d *DynCallsiteNode) Delete(ctx *node.Ctx) {
	d.fn.Child.Delete(ctx)
	for i := range d.args {
		d.args[i].Child.Delete(ctx)
	}
	if d.body != nil {
		d.body.Delete(ctx)
	}
}
func (d *DynCallsiteNode) Sleep() {
	d.fn.Sleep()
	for i := range d.args {
		d.args[i].Sleep()
	}
	if d.body != nil {
		d.body.Sleep()
	}
}
func (d *DynCallsiteNode) Typecheck() error {
	if err := d.fn.Child.Typecheck(); err != nil {
		return err
	}
	for i := range d.args {
		if err := d.args[i].Child.Typecheck(); err != nil {
			return err
		}
	}
	switch d.fn.Child.Typ().(type) {
	case *types.Fn, types.Bottom, types.Any, *types.TVar:
	default:
		return fmt.Errorf("%s: applied expression is not a function", d.spec.Pos)
	}
	return nil
}
func (d *DynCallsiteNode) Typ() types.Type { return d.ret }
func (d *DynCallsiteNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = d.fn.Child.Refs(out)
	for i := range d.args {
		out = d.args[i].Child.Refs(out)
	}
	if d.body != nil {
		out = d.body.Refs(out)
	}
	return out
}
func (d *DynCallsiteNode) Spec() *ast.Expr { return d.spec }

// compileDynamicModule splices a `mod name dynamic {... }` declaration
//: the source
// expression must reduce to a statically known string in this build
// (the netidx subscription transport that would deliver it at runtime
// is an external collaborator, modeled only as an interface); the text
// is parsed and compiled under the module's scope against a sandboxed
// view of the enclosing environment, its exports are checked against
// the declared sig, and the resulting binds are grafted back so sibling
// expressions can call into the module.
func compileDynamicModule(ctx *Ctx, e *ast.Expr, k *ast.ModuleDecl) (node.Node, *gxenv.Env, error) {
	d := k.Dynamic
	if d == nil || d.Source == nil {
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("dynamic module %q has no source expression", k.Name))
	}
	lit, isLit := d.Source.Kind.(*ast.Literal)
	if !isLit || lit.Kind != ast.LitString {
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("dynamic module %q: source did not reduce to a string", k.Name))
	}
	text, _ := lit.Value.(string)

	sandboxed, err := ctx.Env.ApplySandbox(d.Sandbox, d.SandboxList)
	if err != nil {
		return nil, ctx.Env, wrapErr(e, err)
	}
	origin := &ast.Origin{Kind: ast.OriginText, Path: "dynamic:" + k.Name, Parent: e.Origin}
	prog, err := parser.ParseProgram(text, "dynamic:"+k.Name, origin)
	if err != nil {
		return nil, ctx.Env, wrapErr(e, err)
	}

	modScope := ctx.Scope.Append(k.Name)
	env := sandboxed.DeclareModule(modScope)
	nodes := make([]node.Node, 0, len(prog))
	curEnv := env
	for _, stmt := range prog {
		n, nextEnv, err := Compile(&Ctx{Scope: modScope, Env: curEnv, CatchId: ctx.CatchId}, stmt)
		if err != nil {
			return nil, ctx.Env, err
		}
		nodes = append(nodes, n)
		curEnv = nextEnv
	}

	got := map[string]bool{}
	for name := range curEnv.Binds[modScope.String()] {
		got[name] = true
	}
	if missing := gxenv.SplitSig(d.Sig, got); len(missing) > 0 {
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("dynamic module %q does not export: %v", k.Name, missing))
	}
	for _, s := range d.Sig {
		want, err := ResolveType(curEnv, modScope, s.Type)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		id := curEnv.Binds[modScope.String()][s.Name]
		if b := curEnv.ByID[id]; b != nil {
			if err := types.CheckContains(curEnv, want, b.Typ); err != nil {
				return nil, ctx.Env, wrapErr(e, fmt.Errorf("dynamic module %q export %s: %w", k.Name, s.Name, err))
			}
		}
	}

	out := ctx.Env.AdoptModule(curEnv, modScope)
	return node.NewDo(e, types.Bottom{}, nodes), out, nil
}

// compileTryCatch allocates a fresh catch BindId, compiles Body against
// an environment recording it (so nested Qops find it via
// ctx.CatchId), then compiles Handler with that same id visible as its
// bound name.
func compileTryCatch(ctx *Ctx, e *ast.Expr, k *ast.TryCatch) (node.Node, *gxenv.Env, error) {
	var constraint types.Type = types.Any{}
	if k.Constraint != nil {
		var err error
		constraint, err = ResolveType(ctx.Env, ctx.Scope, k.Constraint)
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
	}
	env, catchId := ctx.Env.BindVariable(ctx.Scope, k.CatchName, &types.Error{Inner: constraint})
	env = env.WithCatch(ctx.Scope, catchId)
	bodyCtx := &Ctx{Scope: ctx.Scope, Env: env, CatchId: catchId}
	body := make([]node.Node, len(k.Body))
	curEnv := env
	for i, stmt := range k.Body {
		n, nextEnv, err := Compile(&Ctx{Scope: ctx.Scope, Env: curEnv, CatchId: catchId}, stmt)
		if err != nil {
			return nil, ctx.Env, err
		}
		body[i] = n
		curEnv = nextEnv
	}
	handlerCtx := &Ctx{Scope: ctx.Scope, Env: curEnv, CatchId: ctx.CatchId}
	handler, _, err := Compile(handlerCtx, k.Handler)
	if err != nil {
		return nil, ctx.Env, err
	}
	_ = bodyCtx
	return node.NewTryCatch(e, handler.Typ(), body, catchId, handler), ctx.Env, nil
}

// compileSelect compiles each arm's pattern and body against an
// environment extended by that arm's own bindings, then verifies
// exhaustiveness: diff(arg type, union of unguarded arm patterns) must
// be empty. Guarded arms prove nothing — a guard can decline at
// runtime.
func compileSelect(ctx *Ctx, e *ast.Expr, k *ast.Select) (node.Node, *gxenv.Env, error) {
	arg, argEnv, err := Compile(ctx, k.Arg)
	if err != nil {
		return nil, ctx.Env, err
	}
	arms := make([]node.SelectArmNode, len(k.Arms))
	var resultType types.Type = types.Bottom{}
	covered := types.Type(types.Bottom{})
	for i, a := range k.Arms {
		pn, armEnv, err := compilePattern(&Ctx{Scope: ctx.Scope, Env: argEnv, CatchId: ctx.CatchId}, a.Pattern, arg.Typ())
		if err != nil {
			return nil, ctx.Env, wrapErr(e, err)
		}
		armCtx := &Ctx{Scope: ctx.Scope, Env: armEnv, CatchId: ctx.CatchId}
		var guard node.Node
		if a.Guard != nil {
			guard, _, err = Compile(armCtx, a.Guard)
			if err != nil {
				return nil, ctx.Env, err
			}
		}
		body, _, err := Compile(armCtx, a.Body)
		if err != nil {
			return nil, ctx.Env, err
		}
		resultType = types.Union(resultType, body.Typ())
		arms[i] = node.SelectArmNode{Pattern: pn, Guard: guard, Body: body}
		if a.Guard == nil {
			pt, err := patternCoverage(argEnv, ctx.Scope, a.Pattern, arg.Typ())
			if err != nil {
				return nil, ctx.Env, wrapErr(e, err)
			}
			covered = types.Union(covered, pt)
		}
	}
	if rest := types.Diff(arg.Typ(), covered); !types.IsEmpty(rest) {
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("select arms are not exhaustive: %s is not covered", rest))
	}
	return node.NewSelect(e, resultType, arg, arms), ctx.Env, nil
}

// compileStringInterpolate concatenates constant runs with compiled
// sub-expressions' values.
func compileStringInterpolate(ctx *Ctx, e *ast.Expr, k *ast.StringInterpolate) (node.Node, *gxenv.Env, error) {
	parts := make([]node.Node, 0, len(k.Parts))
	for _, p := range k.Parts {
		if p.Expr == nil {
			parts = append(parts, node.NewLiteral(e, types.NewPrimitive(types.PString), types.Value{Kind: types.VString, Str: p.Const}))
			continue
		}
		n, _, err := Compile(ctx, p.Expr)
		if err != nil {
			return nil, ctx.Env, err
		}
		parts = append(parts, n)
	}
	return &StringInterpolateNode{parts: parts}, ctx.Env, nil
}

// StringInterpolateNode joins its parts' String() renderings whenever
// any of them updates.
type StringInterpolateNode struct {
	parts []node.Node
	cache []types.Value
	init  bool
}

func (s *StringInterpolateNode) Update(ctx *node.Ctx) (types.Value, bool) {
	if s.cache == nil {
		s.cache = make([]types.Value, len(s.parts))
	}
	any := false
	for i, p := range s.parts {
		if v, ok := p.Update(ctx); ok {
			s.cache[i] = v
			any = true
		}
	}
	if !any && s.init {
		return types.Value{}, false
	}
	s.init = true
	var out string
	for _, v := range s.cache {
		out += v.String()
	}
	return types.Value{Kind: types.VString, Str: out}, true
}
func (s *StringInterpolateNode) Delete(ctx *node.Ctx) {
	for _, p := range s.parts {
		p.Delete(ctx)
	}
}
func (s *StringInterpolateNode) Sleep() {
	for _, p := range s.parts {
		p.Sleep()
	}
	s.init = false
}
func (s *StringInterpolateNode) Typecheck() error {
	for _, p := range s.parts {
		if err := p.Typecheck(); err != nil {
			return err
		}
	}
	return nil
}
func (s *StringInterpolateNode) Typ() types.Type { return types.NewPrimitive(types.PString) }
func (s *StringInterpolateNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, p := range s.parts {
		out = p.Refs(out)
	}
	return out
}
func (s *StringInterpolateNode) Spec() *ast.Expr { return nil }

// compileMapLit builds a MapNode from parallel key/value expression
// lists.
func compileMapLit(ctx *Ctx, e *ast.Expr, k *ast.MapLit) (node.Node, *gxenv.Env, error) {
	keys := make([]node.Node, len(k.Keys))
	values := make([]node.Node, len(k.Values))
	var keyType, valType types.Type = types.Bottom{}, types.Bottom{}
	for i := range k.Keys {
		kn, _, err := Compile(ctx, k.Keys[i])
		if err != nil {
			return nil, ctx.Env, err
		}
		vn, _, err := Compile(ctx, k.Values[i])
		if err != nil {
			return nil, ctx.Env, err
		}
		keys[i], values[i] = kn, vn
		keyType = types.Union(keyType, kn.Typ())
		valType = types.Union(valType, vn.Typ())
	}
	return &MapLitNode{keys: keys, values: values, typ: &types.Map{Key: keyType, Value: valType}}, ctx.Env, nil
}

// MapLitNode recomputes the whole map whenever any key or value
// updates — sufficient for a literal's typical small, static size.
type MapLitNode struct {
	keys, values []node.Node
	typ          types.Type
	has          bool
}

func (m *MapLitNode) Update(ctx *node.Ctx) (types.Value, bool) {
	anyUpdated := false
	kvs := make([]types.Value, len(m.keys))
	vvs := make([]types.Value, len(m.values))
	for i := range m.keys {
		kv, ok := m.keys[i].Update(ctx)
		vv, ok2 := m.values[i].Update(ctx)
		if ok || ok2 {
			anyUpdated = true
		}
		kvs[i], vvs[i] = kv, vv
	}
	if !anyUpdated && m.has {
		return types.Value{}, false
	}
	m.has = true
	elems := make(map[string]types.Value, len(kvs))
	mapKeys := make([]types.Value, len(kvs))
	for i := range kvs {
		elems[kvs[i].String()] = vvs[i]
		mapKeys[i] = kvs[i]
	}
	return types.Value{Kind: types.VMap, MapElems: elems, MapKeys: mapKeys}, true
}
func (m *MapLitNode) Delete(ctx *node.Ctx) {
	for _, k := range m.keys {
		k.Delete(ctx)
	}
	for _, v := range m.values {
		v.Delete(ctx)
	}
}
func (m *MapLitNode) Sleep() {
	for _, k := range m.keys {
		k.Sleep()
	}
	for _, v := range m.values {
		v.Sleep()
	}
	m.has = false
}
func (m *MapLitNode) Typecheck() error { return nil }
func (m *MapLitNode) Typ() types.Type  { return m.typ }
func (m *MapLitNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	for _, k := range m.keys {
		out = k.Refs(out)
	}
	for _, v := range m.values {
		out = v.Refs(out)
	}
	return out
}
func (m *MapLitNode) Spec() *ast.Expr { return nil }

// compileStructWith compiles the base struct plus its overridden
// fields, merging on each update.
func compileStructWith(ctx *Ctx, e *ast.Expr, k *ast.StructWith) (node.Node, *gxenv.Env, error) {
	base, _, err := Compile(ctx, k.Base)
	if err != nil {
		return nil, ctx.Env, err
	}
	names := make([]string, len(k.Fields))
	overrides := make([]node.Node, len(k.Fields))
	for i, f := range k.Fields {
		names[i] = f.Name
		overrides[i], _, err = Compile(ctx, f.Value)
		if err != nil {
			return nil, ctx.Env, err
		}
	}
	return &StructWithNode{base: base, names: names, overrides: overrides, typ: base.Typ()}, ctx.Env, nil
}

// StructWithNode merges base's struct value with the overridden fields
// every time either changes.
type StructWithNode struct {
	base      node.Node
	names     []string
	overrides []node.Node
	typ       types.Type
	last      types.Value
	has       bool
}

func (s *StructWithNode) Update(ctx *node.Ctx) (types.Value, bool) {
	bv, bok := s.base.Update(ctx)
	if bok {
		s.last = bv
		s.has = true
	}
	changed := bok
	if !s.has {
		return types.Value{}, false
	}
	fields := map[string]types.Value{}
	for k, v := range s.last.Fields {
		fields[k] = v
	}
	for i, ov := range s.overrides {
		if v, ok := ov.Update(ctx); ok {
			fields[s.names[i]] = v
			changed = true
		}
	}
	if !changed {
		return types.Value{}, false
	}
	return types.Value{Kind: types.VStruct, Fields: fields}, true
}
func (s *StructWithNode) Delete(ctx *node.Ctx) {
	s.base.Delete(ctx)
	for _, o := range s.overrides {
		o.Delete(ctx)
	}
}
func (s *StructWithNode) Sleep() {
	s.base.Sleep()
	for _, o := range s.overrides {
		o.Sleep()
	}
	s.has = false
}
func (s *StructWithNode) Typecheck() error { return s.base.Typecheck() }
func (s *StructWithNode) Typ() types.Type  { return s.typ }
func (s *StructWithNode) Refs(out []gxenv.BindId) []gxenv.BindId {
	out = s.base.Refs(out)
	for _, o := range s.overrides {
		out = o.Refs(out)
	}
	return out
}
func (s *StructWithNode) Spec() *ast.Expr { return nil }

// compileModule splices an already-resolved module's body into the
// enclosing scope: every statement is compiled under the module's own
// ModPath, and the resulting env is merged back so later siblings can
// see exported binds. An unresolved module reaching compile is a
// resolver bug.
func compileModule(ctx *Ctx, e *ast.Expr, k *ast.ModuleDecl) (node.Node, *gxenv.Env, error) {
	switch k.Kind {
	case ast.ModuleUnresolved:
		return nil, ctx.Env, wrapErr(e, fmt.Errorf("module %q reached compile unresolved", k.Name))
	case ast.ModuleDynamic:
		return compileDynamicModule(ctx, e, k)
	}
	body := k.Inline
	if k.Kind == ast.ModuleResolved {
		body = k.Body
	}
	modScope := ctx.Scope.Append(k.Name)
	env := ctx.Env.DeclareModule(modScope)
	nodes := make([]node.Node, 0, len(body))
	curEnv := env
	for _, stmt := range body {
		n, nextEnv, err := Compile(&Ctx{Scope: modScope, Env: curEnv, CatchId: ctx.CatchId}, stmt)
		if err != nil {
			return nil, ctx.Env, err
		}
		nodes = append(nodes, n)
		curEnv = nextEnv
	}
	return node.NewDo(e, types.Bottom{}, nodes), curEnv, nil
}
