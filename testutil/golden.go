// Package testutil provides the golden-file and JSON-diff helpers
// Graphix's tests share.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UpdateGoldens rewrites golden files instead of comparing against
// them: UPDATE_GOLDENS=true go test ./...
var UpdateGoldens = os.Getenv("UPDATE_GOLDENS") == "true"

// GoldenPath returns the conventional location of a golden file.
func GoldenPath(feature, name string) string {
	return filepath.Join("testdata", feature, name+".golden.json")
}

// CompareWithGolden marshals actual to indented JSON and compares it to
// the named golden file, creating or rewriting the file when
// UpdateGoldens is set.
func CompareWithGolden(t *testing.T, feature, name string, actual any) {
	t.Helper()
	path := GoldenPath(feature, name)

	actualJSON, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("marshal actual: %v", err)
	}

	if UpdateGoldens {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create golden dir: %v", err)
		}
		if err := os.WriteFile(path, actualJSON, 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		t.Logf("updated %s", path)
		return
	}

	expectedJSON, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("golden file %s does not exist; run with UPDATE_GOLDENS=true to create it", path)
		}
		t.Fatalf("read golden: %v", err)
	}
	if diff := DiffJSON(decode(t, expectedJSON), decode(t, actualJSON)); diff != "" {
		t.Errorf("golden mismatch for %s/%s (-want +got):\n%s", feature, name, diff)
	}
}

// DiffJSON compares two values through their JSON encodings (so struct
// tags, map ordering, and numeric widths are normalized away) and
// returns a cmp.Diff-formatted difference, empty when equal.
func DiffJSON(want, got any) string {
	return cmp.Diff(normalize(want), normalize(got))
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func decode(t *testing.T, data []byte) any {
	t.Helper()
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal golden JSON: %v", err)
	}
	return out
}
