package deps

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"roller/internal/config"
	"roller/internal/services"
)

// Tool names as they appear on disk (before platform suffixes).
const (
	SplitterName = "bchunk"
	FetcherName  = "ubi"
)

// SplitterSpec describes bchunk. Run without arguments it prints its usage
// and exits 0 or 1 depending on the build.
func SplitterSpec(cfg *config.Config) Spec {
	spec := Spec{
		Name:            SplitterName,
		Description:     "Splits BIN/CUE disc images into ISO and audio tracks",
		AcceptExitCodes: []int{0, 1},
		ExpectOutput:    "usage",
		Candidates: []string{
			"/usr/local/bin/bchunk",
			"/opt/homebrew/bin/bchunk",
			"/usr/bin/bchunk",
		},
		Hint: "Build bchunk from source: https://github.com/extramaster/bchunk",
	}
	if cfg != nil {
		spec.ConfiguredPath = cfg.Tools.Bchunk.Path
		spec.ExtraPaths = cfg.Tools.Bchunk.ExtraPaths
	}
	return spec
}

// FetcherSpec describes ubi, the release downloader.
func FetcherSpec(cfg *config.Config) Spec {
	spec := Spec{
		Name:            FetcherName,
		Description:     "Downloads ROLLER release binaries",
		VersionArgs:     []string{"--version"},
		AcceptExitCodes: []int{0},
		Hint:            "Download ubi from: https://github.com/houseabsolute/ubi",
	}
	if home, err := os.UserHomeDir(); err == nil {
		spec.Candidates = []string{
			filepath.Join(home, ".local", "bin", FetcherName),
			filepath.Join(home, "bin", FetcherName),
			filepath.Join(home, ".cargo", "bin", FetcherName),
		}
	}
	if cfg != nil {
		spec.ConfiguredPath = cfg.Tools.Ubi.Path
		spec.ExtraPaths = cfg.Tools.Ubi.ExtraPaths
	}
	return spec
}

// Status reports the availability of a tool for display.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Method      string
	Detail      string
}

// Tools resolves the installer's external helpers against one shared cache.
type Tools struct {
	resolver *Resolver
	splitter Spec
	fetcher  Spec
}

// NewTools builds Tools from configuration. Extra options are applied after
// the configuration-derived ones.
func NewTools(cfg *config.Config, opts ...Option) *Tools {
	base := []Option{}
	if cfg != nil {
		base = append(base,
			WithVerifyTimeout(time.Duration(cfg.Tools.VerifyTimeout)*time.Second),
			WithProjectRoot(cfg.Tools.ProjectRoot),
		)
	}
	return &Tools{
		resolver: NewResolver(append(base, opts...)...),
		splitter: SplitterSpec(cfg),
		fetcher:  FetcherSpec(cfg),
	}
}

// Splitter resolves bchunk.
func (t *Tools) Splitter(ctx context.Context) (Binding, error) {
	return t.resolver.Resolve(ctx, t.splitter)
}

// Fetcher resolves ubi.
func (t *Tools) Fetcher(ctx context.Context) (Binding, error) {
	return t.resolver.Resolve(ctx, t.fetcher)
}

// Statuses resolves every tool and reports the outcome without failing.
// Both tools are optional: only CUE/BIN sources need bchunk and only fetch
// needs ubi.
func (t *Tools) Statuses(ctx context.Context) []Status {
	specs := []Spec{t.splitter, t.fetcher}
	out := make([]Status, 0, len(specs))
	for _, spec := range specs {
		status := Status{
			Name:        spec.Name,
			Command:     spec.Name,
			Description: spec.Description,
			Optional:    true,
		}
		binding, err := t.resolver.Resolve(ctx, spec)
		if err != nil {
			status.Detail = services.ErrorMessage(err)
		} else {
			status.Available = true
			status.Command = binding.Path
			status.Method = binding.Method
		}
		out = append(out, status)
	}
	return out
}
