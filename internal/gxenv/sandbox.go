package gxenv

import (
	"fmt"
	"strings"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/modpath"
	"github.com/graphix-lang/graphix/internal/types"
)

// ApplySandbox filters the whole environment per the three
// sandbox policies, for splicing a dynamic module's resolved source
// against a restricted view of the surrounding scope:
//
//   - Unrestricted: clone, unchanged.
//   - Blacklist(list): each entry naming a declared module removes that
//     module's subtree (modules/binds/typedefs with that path or a
//     descendant path); any other entry is "scope::name" and removes
//     that one bind, erroring if absent.
//   - Whitelist(list): keep only the explicitly named modules (as
//     subtrees) and bindings, erroring if an entry is absent. Typedefs
//     survive for each kept module's subtree and for the scope of each
//     kept bind together with that scope's descendants.
//
// The filter narrows what is visible without rebuilding the values it
// grants access to.
func (e *Env) ApplySandbox(kind ast.SandboxKind, list []string) (*Env, error) {
	switch kind {
	case ast.SandboxUnrestricted:
		return e.clone(), nil
	case ast.SandboxBlacklist:
		n := e.clone()
		for _, entry := range list {
			if e.Modules[entry] {
				n.removeModuleSubtree(entry)
				continue
			}
			scope, name, ok := splitScopedName(entry)
			if !ok {
				return nil, fmt.Errorf("sandbox blacklist: %q is not a known module or scope::name", entry)
			}
			if _, ok := n.Binds[scope][name]; !ok {
				return nil, fmt.Errorf("sandbox blacklist: bind %q not found in scope %q", name, scope)
			}
			n.removeBind(scope, name)
		}
		return n, nil
	case ast.SandboxWhitelist:
		n := New()
		for _, entry := range list {
			if e.Modules[entry] {
				n.keepModuleSubtree(e, entry)
				continue
			}
			scope, name, ok := splitScopedName(entry)
			if !ok {
				return nil, fmt.Errorf("sandbox whitelist: %q is not a known module or scope::name", entry)
			}
			id, ok := e.Binds[scope][name]
			if !ok {
				return nil, fmt.Errorf("sandbox whitelist: bind %q not found in scope %q", name, scope)
			}
			if n.Binds[scope] == nil {
				n.Binds[scope] = map[string]BindId{}
			}
			n.Binds[scope][name] = id
			n.ByID[id] = e.ByID[id]
			n.copyTypedefsForScope(e, scope)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown sandbox kind %v", kind)
	}
}

// splitScopedName parses a "scope::name" or bare "name" (root scope)
// entry.
func splitScopedName(entry string) (scope, name string, ok bool) {
	i := strings.LastIndex(entry, "::")
	if i < 0 {
		return "", entry, entry != ""
	}
	return entry[:i], entry[i+2:], true
}

func (n *Env) removeModuleSubtree(prefix string) {
	p := modpath.Parse(prefix)
	for scope := range n.Modules {
		if modpath.Parse(scope).HasPrefix(p) {
			delete(n.Modules, scope)
		}
	}
	for scope := range n.Binds {
		if modpath.Parse(scope).HasPrefix(p) {
			delete(n.Binds, scope)
		}
	}
	for scope := range n.Typedefs {
		if modpath.Parse(scope).HasPrefix(p) {
			delete(n.Typedefs, scope)
		}
	}
}

func (n *Env) removeBind(scope, name string) {
	id, ok := n.Binds[scope][name]
	if !ok {
		return
	}
	inner := make(map[string]BindId, len(n.Binds[scope])-1)
	for k, v := range n.Binds[scope] {
		if k != name {
			inner[k] = v
		}
	}
	if len(inner) == 0 {
		delete(n.Binds, scope)
	} else {
		n.Binds[scope] = inner
	}
	delete(n.ByID, id)
}

func (n *Env) keepModuleSubtree(src *Env, prefix string) {
	p := modpath.Parse(prefix)
	n.Modules[prefix] = true
	for scope, binds := range src.Binds {
		if !modpath.Parse(scope).HasPrefix(p) {
			continue
		}
		inner := make(map[string]BindId, len(binds))
		for name, id := range binds {
			inner[name] = id
			n.ByID[id] = src.ByID[id]
		}
		n.Binds[scope] = inner
	}
	n.copyTypedefsForScope(src, prefix)
}

func (n *Env) copyTypedefsForScope(src *Env, prefix string) {
	p := modpath.Parse(prefix)
	for scope, defs := range src.Typedefs {
		if !modpath.Parse(scope).HasPrefix(p) {
			continue
		}
		inner := make(map[string]*types.TypeDef, len(defs))
		for name, d := range defs {
			inner[name] = d
		}
		n.Typedefs[scope] = inner
	}
}

// DeclareModule returns a copy of e with scope marked as a declared
// module path. It does not change Used.
func (e *Env) DeclareModule(scope modpath.ModPath) *Env {
	n := e.clone()
	n.Modules[scope.String()] = true
	return n
}

// Use records that scope has imported used (a `use` declaration), making
// used's bindings visible to FindVisible calls rooted anywhere under
// scope.
func (e *Env) Use(scope, used modpath.ModPath) *Env {
	n := e.clone()
	key := scope.String()
	existing := n.Used[key]
	for _, u := range existing {
		if u == used.String() {
			return n
		}
	}
	n.Used[key] = append(append([]string(nil), existing...), used.String())
	return n
}

// AdoptModule grafts every scope at or under prefix from src into e:
// binds, ByID entries, typedefs, module declarations, and any lambda
// definitions created while compiling the module body. This splices a
// dynamic module compiled against a sandboxed environment back into the
// enclosing one, so sibling expressions can reference its
// exports.
func (e *Env) AdoptModule(src *Env, prefix modpath.ModPath) *Env {
	n := e.clone()
	n.Modules[prefix.String()] = true
	for scope, binds := range src.Binds {
		if !modpath.Parse(scope).HasPrefix(prefix) {
			continue
		}
		inner := make(map[string]BindId, len(binds))
		for name, id := range binds {
			inner[name] = id
			n.ByID[id] = src.ByID[id]
		}
		n.Binds[scope] = inner
	}
	for scope, defs := range src.Typedefs {
		if !modpath.Parse(scope).HasPrefix(prefix) {
			continue
		}
		inner := make(map[string]*types.TypeDef, len(defs))
		for name, d := range defs {
			inner[name] = d
		}
		n.Typedefs[scope] = inner
	}
	for scope := range src.Modules {
		if modpath.Parse(scope).HasPrefix(prefix) {
			n.Modules[scope] = true
		}
	}
	for id, def := range src.Lambdas {
		if _, ok := n.Lambdas[id]; !ok {
			n.Lambdas[id] = def
		}
	}
	for id, lid := range src.BindLambda {
		if _, ok := n.BindLambda[id]; !ok {
			n.BindLambda[id] = lid
		}
	}
	return n
}

// SplitSig validates a dynamic module's declared signature against the
// names the module actually bound (got), returning the names present in
// sig but not in got.
func SplitSig(sig []ast.SigEntry, got map[string]bool) []string {
	var missing []string
	for _, s := range sig {
		if !got[s.Name] {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// String is a debug helper rendering a scope path followed by the names
// bound in it, in map iteration order.
func (e *Env) String(scope modpath.ModPath) string {
	names := make([]string, 0, len(e.Binds[scope.String()]))
	for n := range e.Binds[scope.String()] {
		names = append(names, n)
	}
	return scope.String() + ": " + strings.Join(names, ", ")
}
