package hostcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/internal/ast"
)

func TestParseModPathBasic(t *testing.T) {
	entries, err := ParseModPath("file:/srv/gx,netidx:/gx/prod")
	require.NoError(t, err)
	require.Equal(t, []ModPathEntry{
		{Kind: "file", Path: "/srv/gx"},
		{Kind: "netidx", Path: "/gx/prod"},
	}, entries)
}

func TestParseModPathEmpty(t *testing.T) {
	entries, err := ParseModPath("")
	require.NoError(t, err)
	require.Nil(t, entries)
}

func TestParseModPathEscapedComma(t *testing.T) {
	entries, err := ParseModPath(`file:/a\,b,file:/c`)
	require.NoError(t, err)
	require.Equal(t, []ModPathEntry{
		{Kind: "file", Path: "/a,b"},
		{Kind: "file", Path: "/c"},
	}, entries)
}

func TestParseModPathUnknownKind(t *testing.T) {
	_, err := ParseModPath("http:/gx")
	require.Error(t, err)
}

func TestParseModPathMalformedEntry(t *testing.T) {
	_, err := ParseModPath("no-colon-here")
	require.Error(t, err)
}

func TestDefaultModPathStartsWithCurrentDir(t *testing.T) {
	entries := DefaultModPath()
	require.NotEmpty(t, entries)
	require.Equal(t, ModPathEntry{Kind: "file", Path: "."}, entries[0])
}

func TestSandboxManifestKind(t *testing.T) {
	cases := []struct {
		kind string
		want ast.SandboxKind
	}{
		{"whitelist", ast.SandboxWhitelist},
		{"blacklist", ast.SandboxBlacklist},
		{"unrestricted", ast.SandboxUnrestricted},
		{"", ast.SandboxUnrestricted},
	}
	for _, c := range cases {
		m := &SandboxManifest{Name: "m", Kind: c.kind}
		got, err := m.SandboxKind()
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestSandboxManifestUnknownKind(t *testing.T) {
	m := &SandboxManifest{Name: "m", Kind: "bogus"}
	_, err := m.SandboxKind()
	require.Error(t, err)
}

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modpath: "file:/srv/gx"
sandboxes:
  - name: public
    kind: whitelist
    list: ["std::io", "std::time"]
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "file:/srv/gx", cfg.ModPath)
	require.Equal(t, 2*time.Second, cfg.PublishTimeout)
	require.Equal(t, 30*time.Second, cfg.RPCGCInterval)

	sb, ok := cfg.Sandbox("public")
	require.True(t, ok)
	require.Equal(t, "whitelist", sb.Kind)
	require.Equal(t, []string{"std::io", "std::time"}, sb.List)

	_, ok = cfg.Sandbox("missing")
	require.False(t, ok)
}

func TestLoadRespectsExplicitTimeouts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
publish_timeout: 500ms
rpc_gc_interval: 5s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.PublishTimeout)
	require.Equal(t, 5*time.Second, cfg.RPCGCInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestDefaultReadsEnv(t *testing.T) {
	t.Setenv("GRAPHIX_MODPATH", "file:/opt/gx")
	cfg := Default()
	require.Equal(t, "file:/opt/gx", cfg.ModPath)
	require.Equal(t, 2*time.Second, cfg.PublishTimeout)
}
