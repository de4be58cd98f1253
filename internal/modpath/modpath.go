// Package modpath implements Graphix's hierarchical module path type.
//
// A ModPath is a canonical, absolute, slash-separated sequence of
// identifiers. Paths are interned so that structurally equal paths share
// storage and compare equal by pointer as well as by value, the way a
// module loader normalizes and caches import paths.
package modpath

import (
	"strings"
	"sync"
)

// ModPath is a canonical absolute module path, e.g. "core/net/rpc".
//
// The zero value is the root path ("").
type ModPath struct {
	// segments is the interned, slash-joined string form. Two ModPaths
	// with equal segments always share the same underlying string via
	// the package-level intern table, so Equal can be a cheap compare.
	segments string
}

var (
	internMu    sync.Mutex
	internTable = map[string]string{"": ""}
)

func intern(s string) string {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := internTable[s]; ok {
		return v
	}
	internTable[s] = s
	return s
}

// Root is the empty, top-level ModPath.
var Root = ModPath{}

// New builds a ModPath from its component identifiers.
func New(parts ...string) ModPath {
	return ModPath{segments: intern(strings.Join(parts, "/"))}
}

// Parse splits a slash-separated string into a ModPath, dropping any
// leading or trailing slash so "/foo/bar/" and "foo/bar" are identical.
func Parse(s string) ModPath {
	s = strings.Trim(s, "/")
	return ModPath{segments: intern(s)}
}

// String returns the canonical slash-separated form.
func (p ModPath) String() string { return p.segments }

// IsRoot reports whether p is the empty root path.
func (p ModPath) IsRoot() bool { return p.segments == "" }

// Parts returns the path's identifiers in order.
func (p ModPath) Parts() []string {
	if p.segments == "" {
		return nil
	}
	return strings.Split(p.segments, "/")
}

// Append returns a new ModPath with name appended as the final segment.
func (p ModPath) Append(name string) ModPath {
	if p.segments == "" {
		return New(name)
	}
	return ModPath{segments: intern(p.segments + "/" + name)}
}

// Dirname returns the path with its last segment removed (the "prefix").
// Dirname of the root path is the root path.
func (p ModPath) Dirname() ModPath {
	i := strings.LastIndexByte(p.segments, '/')
	if i < 0 {
		return Root
	}
	return ModPath{segments: intern(p.segments[:i])}
}

// Basename returns the last segment of the path, or "" for the root.
func (p ModPath) Basename() string {
	i := strings.LastIndexByte(p.segments, '/')
	if i < 0 {
		return p.segments
	}
	return p.segments[i+1:]
}

// Dirnames iterates over successively longer prefixes of p, root first,
// ending at p itself. Env.FindVisible walks this order in reverse, to
// probe enclosing scopes from innermost to outermost.
func (p ModPath) Dirnames(yield func(ModPath) bool) {
	if p.IsRoot() {
		yield(Root)
		return
	}
	parts := p.Parts()
	cur := ""
	if !yield(Root) {
		return
	}
	for _, part := range parts {
		if cur == "" {
			cur = part
		} else {
			cur = cur + "/" + part
		}
		if !yield(ModPath{segments: intern(cur)}) {
			return
		}
	}
}

// Prefixes materializes Dirnames into a slice, root first, p last.
func (p ModPath) Prefixes() []ModPath {
	var out []ModPath
	p.Dirnames(func(m ModPath) bool {
		out = append(out, m)
		return true
	})
	return out
}

// Equal reports structural path equality.
func (p ModPath) Equal(o ModPath) bool { return p.segments == o.segments }

// HasPrefix reports whether prefix is a prefix of p or equal to it.
func (p ModPath) HasPrefix(prefix ModPath) bool {
	if prefix.IsRoot() {
		return true
	}
	if p.segments == prefix.segments {
		return true
	}
	return strings.HasPrefix(p.segments, prefix.segments+"/")
}
