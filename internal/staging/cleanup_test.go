package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"roller/internal/logging"
)

func mkdirAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if age > 0 {
		when := time.Now().Add(-age)
		if err := os.Chtimes(path, when, when); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldScratchDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, WorkDirPrefix+"111")
	recentDir := filepath.Join(tmpDir, WorkDirPrefix+"222")
	foreignDir := filepath.Join(tmpDir, "someone-else")
	mkdirAged(t, oldDir, 2*time.Hour)
	mkdirAged(t, recentDir, 0)
	mkdirAged(t, foreignDir, 48*time.Hour)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	for _, keep := range []string{recentDir, foreignDir} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist", keep)
		}
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, WorkDirPrefix+"file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected files to be ignored, removed %v", result.Removed)
	}
}

func TestCleanStaleStopsWhenCanceled(t *testing.T) {
	tmpDir := t.TempDir()
	mkdirAged(t, filepath.Join(tmpDir, WorkDirPrefix+"a"), 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := CleanStale(ctx, tmpDir, time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancel, got %v", result.Removed)
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	scratch := filepath.Join(tmpDir, WorkDirPrefix+"abc")
	mkdirAged(t, scratch, 0)
	if err := os.WriteFile(filepath.Join(scratch, "track01.iso"), make([]byte, 1000), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(scratch, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "nested", "track02.wav"), make([]byte, 500), 0o644); err != nil {
		t.Fatal(err)
	}
	mkdirAged(t, filepath.Join(tmpDir, "unrelated"), 0)

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if dirs[0].Name != WorkDirPrefix+"abc" || dirs[0].Path != scratch || dirs[0].Size != 1500 {
		t.Fatalf("unexpected dir info %+v", dirs[0])
	}
	if time.Since(dirs[0].ModTime) > time.Minute {
		t.Errorf("unexpected mod time %v", dirs[0].ModTime)
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "  ", filepath.Join(t.TempDir(), "missing")} {
		dirs, err := ListDirectories(dir)
		if err != nil || dirs != nil {
			t.Errorf("expected nil result for %q, got %v %v", dir, dirs, err)
		}
	}
}
