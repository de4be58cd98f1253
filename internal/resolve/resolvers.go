package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
)

// VFSResolver looks a module path up in an in-memory map, keyed
// "scope::name" ("VFS looks up
// scope::name"). Used by tests and by compile_callable-style embedding
// where a host hands the compiler pre-loaded source text instead of a
// filesystem.
type VFSResolver struct {
	Files map[string]string
	Scope string // the scope this VFS instance is rooted at, "" for global
}

func NewVFSResolver(files map[string]string) *VFSResolver {
	return &VFSResolver{Files: files}
}

func (v *VFSResolver) Kind() string { return "vfs" }

func (v *VFSResolver) Resolve(_ context.Context, name string) (string, *ast.Origin, bool, error) {
	key := name
	if v.Scope != "" {
		key = v.Scope + "::" + name
	}
	text, ok := v.Files[key]
	if !ok {
		text, ok = v.Files[name]
	}
	if !ok {
		return "", nil, false, nil
	}
	return text, &ast.Origin{Kind: ast.OriginText, Path: key}, true, nil
}

func (v *VFSResolver) Rebase(loadedName string) []Resolver {
	return []Resolver{&VFSResolver{Files: v.Files, Scope: loadedName}}
}

// FilesResolver tries "<dir>/<name>.gx" then "<dir>/<name>/mod.gx",
// resolved against a search
// directory, canonicalized with EvalSymlinks so two import paths that
// reach the same file (e.g. via a symlinked vendor directory) resolve to
// the same Origin path.
type FilesResolver struct {
	Dir string

	// lastDir is the directory actually containing the most recently
	// resolved file, which may differ from Dir when the match was
	// "<dir>/<name>/mod.gx" rather than "<dir>/<name>.gx". Rebase uses
	// it so imports relative to a package's mod.gx see that package's
	// own directory, not its parent.
	lastDir string
}

func NewFilesResolver(dir string) *FilesResolver {
	return &FilesResolver{Dir: dir}
}

func (f *FilesResolver) Kind() string { return "files" }

func (f *FilesResolver) Resolve(_ context.Context, name string) (string, *ast.Origin, bool, error) {
	candidates := []string{
		filepath.Join(f.Dir, name+".gx"),
		filepath.Join(f.Dir, name, "mod.gx"),
	}
	var lastErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			lastErr = err
			continue
		}
		canon, err := filepath.EvalSymlinks(path)
		if err != nil {
			canon = path
		}
		f.lastDir = filepath.Dir(canon)
		return string(data), &ast.Origin{Kind: ast.OriginFile, Path: canon}, true, nil
	}
	if lastErr != nil {
		return "", nil, false, lastErr
	}
	return "", nil, false, nil
}

func (f *FilesResolver) Rebase(loadedName string) []Resolver {
	dir := f.lastDir
	if dir == "" {
		dir = f.Dir
	}
	return []Resolver{NewFilesResolver(dir)}
}

// NetidxSubscriber is the narrow transport contract the resolver
// consumes: a single blocking subscribe call bounded by a timeout. No
// netidx client ships in this module; a host wires a real
// implementation in.
type NetidxSubscriber interface {
	Subscribe(ctx context.Context, path string, timeout time.Duration) (string, error)
}

// NetidxResolver subscribes once, with a timeout, and expects the
// published value to be a Graphix source string.
type NetidxResolver struct {
	Subscriber NetidxSubscriber
	Base       string
	Timeout    time.Duration
}

func NewNetidxResolver(sub NetidxSubscriber, base string, timeout time.Duration) *NetidxResolver {
	return &NetidxResolver{Subscriber: sub, Base: base, Timeout: timeout}
}

func (n *NetidxResolver) Kind() string { return "netidx" }

func (n *NetidxResolver) Resolve(ctx context.Context, name string) (string, *ast.Origin, bool, error) {
	path := n.Base + "/" + name
	cctx, cancel := timeoutCtx(ctx, n.Timeout)
	defer cancel()
	text, err := n.Subscriber.Subscribe(cctx, path, n.Timeout)
	if err != nil {
		return "", nil, false, fmt.Errorf("netidx subscribe %s: %w", path, err)
	}
	return text, &ast.Origin{Kind: ast.OriginNetwork, Path: path}, true, nil
}

func (n *NetidxResolver) Rebase(loadedName string) []Resolver {
	return []Resolver{NewNetidxResolver(n.Subscriber, n.Base+"/"+loadedName, n.Timeout)}
}
