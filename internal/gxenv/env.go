// Package gxenv implements Graphix's persistent scope environment: a
// path-copy-on-write record of binds, typedefs, modules, lambdas, and
// byref chains. Scopes are ModPath-keyed maps rather than a
// parent-linked chain, because Graphix scoping is module-nested rather
// than lexically-nested per call frame.
package gxenv

import (
	"fmt"
	"strings"
	"sync"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/types"
)

type BindId uint64
type LambdaId uint64

var bindIdCounter uint64
var lambdaIdCounter uint64

func NextBindId() BindId {
	bindIdCounter++
	return BindId(bindIdCounter)
}

func NextLambdaId() LambdaId {
	lambdaIdCounter++
	return LambdaId(lambdaIdCounter)
}

// Bind is a single named binding.
type Bind struct {
	Id     BindId
	Export bool
	Typ    types.Type
	Doc    string
	Scope  modpath.ModPath
	Name   string
}

// LambdaDef is the captured definition of a lambda: its AST and the Env
// snapshot in effect when it was defined, for later re-entry from a
// Callsite node.
type LambdaDef struct {
	Id   LambdaId
	Expr *ast.Lambda
	Env  *Env
}

// The process-wide lambda arena. Env.Lambdas remains the scoped view the compiler consults
// for static resolution; the arena is the escape hatch that maps a
// runtime VLambdaId value back to its definition, which is how a
// callsite rebinds when a lambda id arrives through the variable table
// (late binding).
var (
	lambdaMu    sync.Mutex
	lambdaArena = map[LambdaId]*LambdaDef{}
)

// RegisterLambda records def in the process-wide arena.
func RegisterLambda(def *LambdaDef) {
	lambdaMu.Lock()
	defer lambdaMu.Unlock()
	lambdaArena[def.Id] = def
}

// LookupLambda resolves a LambdaId (typically recovered from a
// VLambdaId runtime value) against the arena.
func LookupLambda(id LambdaId) (*LambdaDef, bool) {
	lambdaMu.Lock()
	defer lambdaMu.Unlock()
	def, ok := lambdaArena[id]
	return def, ok
}

// Env is Graphix's persistent scope record. Every mutator
// returns a new *Env; the receiver is left untouched. Maps are cloned at
// the top level on each mutation (cheap path-copy emulation of the
// original's structural sharing — adequate at the scope sizes this
// interpreter operates at).
type Env struct {
	ByID       map[BindId]*Bind
	Binds      map[string]map[string]BindId // scope.String() -> name -> BindId
	Lambdas    map[LambdaId]*LambdaDef
	ByrefChain map[BindId]BindId
	Used       map[string][]string // scope.String() -> ordered used scopes
	Modules    map[string]bool     // declared module scope.String()
	Typedefs   map[string]map[string]*types.TypeDef
	Catch      map[string]BindId // scope.String() -> visible catch bind
	BindLambda map[BindId]LambdaId // bind -> the lambda literal it was let-bound to, if any
}

// New returns an empty Env.
func New() *Env {
	return &Env{
		ByID:       map[BindId]*Bind{},
		Binds:      map[string]map[string]BindId{},
		Lambdas:    map[LambdaId]*LambdaDef{},
		ByrefChain: map[BindId]BindId{},
		Used:       map[string][]string{},
		Modules:    map[string]bool{},
		Typedefs:   map[string]map[string]*types.TypeDef{},
		Catch:      map[string]BindId{},
		BindLambda: map[BindId]LambdaId{},
	}
}

// clone makes a shallow top-level copy: each field's own map is
// reallocated and re-populated, but the values (e.g. *Bind) are shared.
func (e *Env) clone() *Env {
	n := &Env{
		ByID:       make(map[BindId]*Bind, len(e.ByID)),
		Binds:      make(map[string]map[string]BindId, len(e.Binds)),
		Lambdas:    make(map[LambdaId]*LambdaDef, len(e.Lambdas)),
		ByrefChain: make(map[BindId]BindId, len(e.ByrefChain)),
		Used:       make(map[string][]string, len(e.Used)),
		Modules:    make(map[string]bool, len(e.Modules)),
		Typedefs:   make(map[string]map[string]*types.TypeDef, len(e.Typedefs)),
		Catch:      make(map[string]BindId, len(e.Catch)),
		BindLambda: make(map[BindId]LambdaId, len(e.BindLambda)),
	}
	for k, v := range e.ByID {
		n.ByID[k] = v
	}
	for k, v := range e.Binds {
		inner := make(map[string]BindId, len(v))
		for n2, id := range v {
			inner[n2] = id
		}
		n.Binds[k] = inner
	}
	for k, v := range e.Lambdas {
		n.Lambdas[k] = v
	}
	for k, v := range e.ByrefChain {
		n.ByrefChain[k] = v
	}
	for k, v := range e.Used {
		n.Used[k] = append([]string(nil), v...)
	}
	for k, v := range e.Modules {
		n.Modules[k] = v
	}
	for k, v := range e.Typedefs {
		inner := make(map[string]*types.TypeDef, len(v))
		for n2, d := range v {
			inner[n2] = d
		}
		n.Typedefs[k] = inner
	}
	for k, v := range e.Catch {
		n.Catch[k] = v
	}
	for k, v := range e.BindLambda {
		n.BindLambda[k] = v
	}
	return n
}

// BindVariable inserts or shadow-replaces name in scope, allocating a
// fresh BindId; the previous BindId (if any) stays live in ByID for any
// node that already captured it.
func (e *Env) BindVariable(scope modpath.ModPath, name string, typ types.Type) (*Env, BindId) {
	n := e.clone()
	id := NextBindId()
	n.ByID[id] = &Bind{Id: id, Typ: typ, Scope: scope, Name: name}
	key := scope.String()
	if n.Binds[key] == nil {
		n.Binds[key] = map[string]BindId{}
	} else {
		inner := make(map[string]BindId, len(n.Binds[key]))
		for k, v := range n.Binds[key] {
			inner[k] = v
		}
		n.Binds[key] = inner
	}
	n.Binds[key][name] = id
	return n, id
}

// AliasVariable binds an existing id under a new name in scope.
func (e *Env) AliasVariable(scope modpath.ModPath, name string, id BindId) *Env {
	n := e.clone()
	key := scope.String()
	inner := map[string]BindId{}
	for k, v := range n.Binds[key] {
		inner[k] = v
	}
	inner[name] = id
	n.Binds[key] = inner
	return n
}

// UnbindVariable removes both the ByID entry and its name in the owning
// scope, dropping the scope entry entirely if it becomes empty.
func (e *Env) UnbindVariable(id BindId) *Env {
	bind, ok := e.ByID[id]
	if !ok {
		return e
	}
	n := e.clone()
	delete(n.ByID, id)
	key := bind.Scope.String()
	inner := n.Binds[key]
	if inner != nil {
		if inner[bind.Name] == id {
			clone := make(map[string]BindId, len(inner))
			for k, v := range inner {
				if k != bind.Name {
					clone[k] = v
				}
			}
			if len(clone) == 0 {
				delete(n.Binds, key)
			} else {
				n.Binds[key] = clone
			}
		}
	}
	return n
}

// DefType declares a named type in scope, validating that params are
// unique, every TVar reachable from typ or its constraint bounds is
// declared, and no param is unused; then aliases same-named TVars into a
// single shared cell so the recursive type can refer to itself through
// its own parameters.
func (e *Env) DefType(scope modpath.ModPath, name string, params []*types.TVar, typ types.Type) (*Env, error) {
	seen := map[string]bool{}
	subst := map[string]*types.TVar{}
	for _, p := range params {
		if seen[p.Name] {
			return nil, fmt.Errorf("deftype %s: duplicate type parameter %q", name, p.Name)
		}
		seen[p.Name] = true
		subst[p.Name] = p
	}
	aliased := types.AliasTVars(typ, subst)
	used := map[string]bool{}
	for _, tv := range types.CollectTVars(aliased) {
		used[tv.Name] = true
	}
	for _, p := range params {
		if !used[p.Name] {
			return nil, fmt.Errorf("deftype %s: unused type parameter %q", name, p.Name)
		}
	}
	for _, tv := range types.CollectTVars(aliased) {
		if !seen[tv.Name] {
			return nil, fmt.Errorf("deftype %s: undeclared type variable %q", name, tv.Name)
		}
	}

	n := e.clone()
	key := scope.String()
	inner := make(map[string]*types.TypeDef, len(n.Typedefs[key])+1)
	for k, v := range n.Typedefs[key] {
		inner[k] = v
	}
	inner[name] = &types.TypeDef{Name: name, Params: params, Body: aliased}
	n.Typedefs[key] = inner
	return n, nil
}

// LookupTypeDef implements types.TypeDefResolver.
func (e *Env) LookupTypeDef(scope, name string) (*types.TypeDef, bool) {
	inner, ok := e.Typedefs[scope]
	if !ok {
		return nil, false
	}
	d, ok := inner[name]
	return d, ok
}

// FindVisible walks successively shorter prefixes of scope, then each
// path in Used[scope_prefix], probing f(scope, name) and returning the
// first non-nil result; this provides "import once in an enclosing
// module is visible everywhere inside".
func (e *Env) FindVisible(scope modpath.ModPath, name string, f func(scope modpath.ModPath, name string) (BindId, bool)) (BindId, bool) {
	prefixes := scope.Prefixes()
	for i := len(prefixes) - 1; i >= 0; i-- {
		p := prefixes[i]
		if id, ok := f(p, name); ok {
			return id, true
		}
		for _, usedPath := range e.Used[p.String()] {
			up := modpath.Parse(usedPath)
			if id, ok := f(up, name); ok {
				return id, true
			}
		}
	}
	return 0, false
}

// Lookup is the probe function FindVisible expects: the direct (non-use-
// following) binding of name in exactly scope.
func (e *Env) Lookup(scope modpath.ModPath, name string) (BindId, bool) {
	id, ok := e.Binds[scope.String()][name]
	return id, ok
}

// Resolve finds name visible from scope, walking enclosing scopes and
// their `use`d modules via FindVisible. This is the
// general-purpose name lookup the compiler calls for a bare reference;
// Lookup itself only checks the exact scope. A module-qualified name
// ("foo::bar::x") resolves its module path relative to scope and each
// enclosing prefix in turn.
func (e *Env) Resolve(scope modpath.ModPath, name string) (BindId, bool) {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		qual := strings.Split(name[:i], "::")
		base := name[i+2:]
		prefixes := scope.Prefixes()
		for j := len(prefixes) - 1; j >= 0; j-- {
			p := prefixes[j]
			for _, q := range qual {
				p = p.Append(q)
			}
			if id, ok := e.Lookup(p, base); ok {
				return id, true
			}
		}
		return 0, false
	}
	return e.FindVisible(scope, name, e.Lookup)
}

// WithBindLambda records that id was let-bound to lambda, so a later
// `f(...)` call on that name can find the LambdaDef for inline
// compilation.
func (e *Env) WithBindLambda(id BindId, lambda LambdaId) *Env {
	n := e.clone()
	n.BindLambda[id] = lambda
	return n
}

// WithCatch returns an Env recording id as the visible catch bind for
// scope, for compiling postfix `?` inside a try/catch body.
func (e *Env) WithCatch(scope modpath.ModPath, id BindId) *Env {
	n := e.clone()
	n.Catch[scope.String()] = id
	return n
}
