// Package hostcfg loads a Graphix host's configuration: the
// GRAPHIX_MODPATH resolver list, top-level sandbox manifests, and
// timing knobs for the evaluator and runtime adapter, read from a YAML
// file.
package hostcfg

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/graphix-lang/graphix/internal/ast"
)

// ModPathEntry is one `file:/abs/path` or `netidx:/abs/path` entry from
// GRAPHIX_MODPATH.
type ModPathEntry struct {
	Kind string // "file" or "netidx"
	Path string
}

// ParseModPath splits GRAPHIX_MODPATH's backslash-escaped,
// comma-separated entry list. A literal comma inside a
// path is written `\,`.
func ParseModPath(env string) ([]ModPathEntry, error) {
	if env == "" {
		return nil, nil
	}
	raw := splitEscaped(env, ',')
	entries := make([]ModPathEntry, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		kind, path, ok := strings.Cut(r, ":")
		if !ok {
			return nil, fmt.Errorf("hostcfg: malformed GRAPHIX_MODPATH entry %q (want kind:path)", r)
		}
		switch kind {
		case "file", "netidx":
		default:
			return nil, fmt.Errorf("hostcfg: unknown GRAPHIX_MODPATH resolver kind %q", kind)
		}
		entries = append(entries, ModPathEntry{Kind: kind, Path: path})
	}
	return entries, nil
}

// splitEscaped splits s on sep, except where sep is preceded by a
// backslash, which is consumed as an escape and does not split.
func splitEscaped(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == sep {
			cur.WriteByte(sep)
			i++
			continue
		}
		if s[i] == sep {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	out = append(out, cur.String())
	return out
}

// DefaultModPath returns the default resolver list:
// the current directory and the user data directory, both as `file`
// entries, used when GRAPHIX_MODPATH is unset.
func DefaultModPath() []ModPathEntry {
	entries := []ModPathEntry{{Kind: "file", Path: "."}}
	if dir, err := os.UserConfigDir(); err == nil {
		entries = append(entries, ModPathEntry{Kind: "file", Path: dir + "/graphix"})
	}
	return entries
}

// SandboxManifest is a named, YAML-declared sandbox policy: which names
// a dynamic module may see. Config.Sandbox looks manifests up by name.
// The parser accepts only inline `sandbox whitelist [...]` and
// `sandbox blacklist [...]` clauses, so a dynamic module cannot name a
// manifest.
type SandboxManifest struct {
	Name string   `yaml:"name"`
	Kind string   `yaml:"kind"` // "whitelist" | "blacklist" | "unrestricted"
	List []string `yaml:"list"`
}

// SandboxKind converts the YAML kind string to ast.SandboxKind.
func (m *SandboxManifest) SandboxKind() (ast.SandboxKind, error) {
	switch m.Kind {
	case "whitelist":
		return ast.SandboxWhitelist, nil
	case "blacklist":
		return ast.SandboxBlacklist, nil
	case "unrestricted", "":
		return ast.SandboxUnrestricted, nil
	default:
		return ast.SandboxUnrestricted, fmt.Errorf("hostcfg: unknown sandbox kind %q in manifest %q", m.Kind, m.Name)
	}
}

// Config is a Graphix host's top-level configuration file.
type Config struct {
	ModPath        string            // overrides GRAPHIX_MODPATH if set
	PublishTimeout time.Duration     // publish batch commit deadline
	RPCGCInterval  time.Duration     // stale RPC client sweep period
	Sandboxes      []SandboxManifest
}

// rawConfig mirrors Config's YAML shape with duration fields as plain
// strings: yaml.v3 has no built-in time.Duration support, so
// publish_timeout/rpc_gc_interval are written as "500ms"/"5s" and parsed
// by UnmarshalYAML below via time.ParseDuration.
type rawConfig struct {
	ModPath        string            `yaml:"modpath"`
	PublishTimeout string            `yaml:"publish_timeout"`
	RPCGCInterval  string            `yaml:"rpc_gc_interval"`
	Sandboxes      []SandboxManifest `yaml:"sandboxes"`
}

// UnmarshalYAML implements yaml.v3's Unmarshaler interface.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.ModPath = raw.ModPath
	c.Sandboxes = raw.Sandboxes
	if raw.PublishTimeout != "" {
		d, err := time.ParseDuration(raw.PublishTimeout)
		if err != nil {
			return fmt.Errorf("hostcfg: publish_timeout: %w", err)
		}
		c.PublishTimeout = d
	}
	if raw.RPCGCInterval != "" {
		d, err := time.ParseDuration(raw.RPCGCInterval)
		if err != nil {
			return fmt.Errorf("hostcfg: rpc_gc_interval: %w", err)
		}
		c.RPCGCInterval = d
	}
	return nil
}

// Load reads and parses a host config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hostcfg: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("hostcfg: parse %s: %w", path, err)
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.RPCGCInterval == 0 {
		cfg.RPCGCInterval = 30 * time.Second
	}
	return &cfg, nil
}

// Sandbox looks up a named sandbox manifest.
func (c *Config) Sandbox(name string) (*SandboxManifest, bool) {
	for i := range c.Sandboxes {
		if c.Sandboxes[i].Name == name {
			return &c.Sandboxes[i], true
		}
	}
	return nil, false
}

// Default returns a Config with GRAPHIX_MODPATH-driven defaults and no
// sandbox manifests, for hosts that don't supply a config file.
func Default() *Config {
	return &Config{
		ModPath:        os.Getenv("GRAPHIX_MODPATH"),
		PublishTimeout: 2 * time.Second,
		RPCGCInterval:  30 * time.Second,
	}
}
