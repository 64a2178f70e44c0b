package extract_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"roller/internal/config"
	"roller/internal/deps"
	"roller/internal/extract"
	"roller/internal/logging"
)

// newCoordinator wires the default registry against cfg with tool lookup
// confined to PATH, the project root from cfg, and extra_paths.
func newCoordinator(t *testing.T, cfg *config.Config) *extract.Coordinator {
	t.Helper()
	tools := deps.NewTools(cfg, deps.WithExecutableDir(""), deps.WithoutWellKnownLocations())
	return extract.NewCoordinator(cfg, extract.DefaultRegistry(cfg, tools), logging.NewNop())
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
}

// listTree returns every regular file below root as slash paths mapped to
// their contents.
func listTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func assertTree(t *testing.T, root string, want map[string][]byte) {
	t.Helper()
	got := listTree(t, root)
	if len(got) != len(want) {
		t.Fatalf("expected files %v, got %v", keys(want), keys(got))
	}
	for name, data := range want {
		have, ok := got[name]
		if !ok {
			t.Fatalf("missing %s; have %v", name, keys(got))
		}
		if !bytes.Equal(have, data) {
			t.Fatalf("content mismatch for %s", name)
		}
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
}
