package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/stretchr/testify/require"
)

func modDecl(name string) *ast.Expr {
	return ast.New(&ast.ModuleDecl{Name: name, Kind: ast.ModuleUnresolved}, nil, ast.SourcePosition{})
}

func TestVFSResolverResolvesByScopedKey(t *testing.T) {
	vfs := NewVFSResolver(map[string]string{"a::b": "let x = 1"})
	text, origin, ok, err := vfs.Resolve(context.Background(), "a::b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "let x = 1", text)
	require.Equal(t, ast.OriginText, origin.Kind)
}

func TestVFSResolverMissDoesNotError(t *testing.T) {
	vfs := NewVFSResolver(map[string]string{})
	_, _, ok, err := vfs.Resolve(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveSplicesVFSModuleBody(t *testing.T) {
	vfs := NewVFSResolver(map[string]string{"helper": "let x = 1"})
	prog := []*ast.Expr{modDecl("helper")}
	err := Resolve(context.Background(), prog, []Resolver{vfs}, nil)
	require.NoError(t, err)

	decl := prog[0].Kind.(*ast.ModuleDecl)
	require.Equal(t, ast.ModuleResolved, decl.Kind)
	require.Len(t, decl.Body, 1)
}

func TestResolveReportsCouldNotResolveWithAllAttempts(t *testing.T) {
	prog := []*ast.Expr{modDecl("nope")}
	err := Resolve(context.Background(), prog, []Resolver{NewVFSResolver(nil)}, nil)
	require.Error(t, err)
	var cnr *CouldNotResolve
	require.ErrorAs(t, err, &cnr)
}

func TestFilesResolverTriesFileThenPackageDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "mod.gx"), []byte("let y = 2"), 0o644))

	fr := NewFilesResolver(dir)
	text, origin, ok, err := fr.Resolve(context.Background(), "pkg")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "let y = 2", text)
	require.Equal(t, ast.OriginFile, origin.Kind)
}

func TestFilesResolverRebaseUsesResolvedDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "mod.gx"), []byte("let y = 2"), 0o644))

	fr := NewFilesResolver(dir)
	_, _, ok, err := fr.Resolve(context.Background(), "pkg")
	require.NoError(t, err)
	require.True(t, ok)

	rebased := fr.Rebase("pkg")
	require.Len(t, rebased, 1)
	nested := rebased[0].(*FilesResolver)
	require.Equal(t, filepath.Join(dir, "pkg"), nested.Dir)
}

type fakeSubscriber struct {
	text string
	err  error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ string, _ time.Duration) (string, error) {
	return f.text, f.err
}

func TestNetidxResolverSubscribesOnce(t *testing.T) {
	nr := NewNetidxResolver(&fakeSubscriber{text: "let z = 3"}, "base", time.Second)
	text, origin, ok, err := nr.Resolve(context.Background(), "mod")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "let z = 3", text)
	require.Equal(t, "base/mod", origin.Path)
}
