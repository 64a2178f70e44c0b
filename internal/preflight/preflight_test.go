package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roller/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDestinationExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	result := CheckDestination(dir)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestCheckDestinationMissingUsesAncestor(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "a", "b", "install")
	result := CheckDestination(target)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created under "+base) {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
	if _, err := os.Stat(filepath.Join(base, "a")); !os.IsNotExist(err) {
		t.Fatal("check must not create directories")
	}
}

func TestCheckDestinationRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "install")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDestination(f); result.Passed {
		t.Fatal("expected failure when destination is a file")
	}
	if result := CheckDestination(filepath.Join(f, "child")); result.Passed {
		t.Fatal("expected failure when nearest ancestor is a file")
	}
}

func TestCheckDestinationEmpty(t *testing.T) {
	if result := CheckDestination(""); result.Passed {
		t.Fatal("expected failure for empty destination")
	}
}

func TestRunAll(t *testing.T) {
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = ""
	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(&cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results (blank log dir skipped), got %d", len(results))
	}
	if !results[0].Passed || results[0].Name != "Work directory" {
		t.Fatalf("unexpected work dir result %+v", results[0])
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "State directory" {
		t.Fatalf("expected missing state dir to fail, got %+v", failed)
	}
}
