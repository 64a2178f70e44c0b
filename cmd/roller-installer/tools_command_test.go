package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roller/internal/staging"
	"roller/internal/testsupport"
)

func timeAgo(hours int) time.Time {
	return time.Now().Add(-time.Duration(hours) * time.Hour)
}

func TestToolsJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"tools", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("tools --json: %v", err)
	}
	var statuses []toolStatusJSON
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(statuses) != 2 || statuses[0].Name != "bchunk" || statuses[1].Name != "ubi" {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	for _, s := range statuses {
		if !s.Available || s.Path == "" || s.Method == "" {
			t.Fatalf("expected %s resolved, got %+v", s.Name, s)
		}
	}
}

func TestToolsTableReportsMissing(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEmptyPath())

	out, _, err := runCLI(t, []string{"tools"}, env.configPath)
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	requireContains(t, out, "bchunk")
	requireContains(t, out, "ubi")
	requireContains(t, out, "Directories")
	requireContains(t, out, "Work directory:")
	if !strings.Contains(out, "[OK]") {
		t.Fatalf("expected directory checks to pass, got %q", out)
	}
}

func TestFetchRunsUbi(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "ubi-args")
	stub := `if [ "$1" = "--version" ]; then
  echo "ubi 0.7.1"
  exit 0
fi
echo "$@" > "` + argsFile + `"`
	env := setupCLITestEnv(t, testsupport.WithStubbedScripts(map[string]string{"ubi": stub}))
	dir := filepath.Join(t.TempDir(), "release")

	out, _, err := runCLI(t, []string{"fetch", "--tag", "v0.3.0", "--dir", dir}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "Fetched FatalDecomp/ROLLER (v0.3.0) into "+dir)

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	want := "--project FatalDecomp/ROLLER --tag v0.3.0 --in " + dir + " --extract-all"
	if strings.TrimSpace(string(recorded)) != want {
		t.Fatalf("unexpected ubi args %q", recorded)
	}
}

func TestFetchMissingUbi(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEmptyPath())

	_, _, err := runCLI(t, []string{"fetch"}, env.configPath)
	if err == nil {
		t.Fatal("expected TOOL_NOT_FOUND")
	}
	requireContains(t, formatError(err), "[TOOL_NOT_FOUND]")
}

func TestCleanDryRunAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.WorkDir, staging.WorkDirPrefix+"stale")
	fresh := filepath.Join(env.cfg.Paths.WorkDir, staging.WorkDirPrefix+"fresh")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	testsupport.WriteBytes(t, filepath.Join(stale, "track01.iso"), make([]byte, 2048))
	old := timeAgo(30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"clean", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	requireContains(t, out, staging.WorkDirPrefix+"stale")
	requireContains(t, out, "2.0 kB")
	if _, err := os.Stat(stale); err != nil {
		t.Fatal("dry run must not remove anything")
	}

	out, _, err = runCLI(t, []string{"clean"}, env.configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 1 work directory")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale directory removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("expected fresh directory kept")
	}
}
