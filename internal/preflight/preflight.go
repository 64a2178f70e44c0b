package preflight

import (
	"strings"

	"roller/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the configured state, log, and work directories. Blank
// paths are skipped. Call config.EnsureDirectories first; a missing
// directory is reported as a failure.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, dir := range []struct {
		name string
		path string
	}{
		{"Work directory", cfg.Paths.WorkDir},
		{"State directory", cfg.Paths.StateDir},
		{"Log directory", cfg.Paths.LogDir},
	} {
		if strings.TrimSpace(dir.path) == "" {
			continue
		}
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
