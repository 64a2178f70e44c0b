package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"roller/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Tool resolution is confined to the temp tree: the project root points at
// an empty directory and no configured paths are set.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InstallDir = filepath.Join(base, "install")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Tools.ProjectRoot = filepath.Join(base, "project")
	cfgVal.Tools.Bchunk = config.Tool{}
	cfgVal.Tools.Ubi = config.Tool{}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSectorSize overrides the ISO sector size.
func WithSectorSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ISO.SectorSize = size
	}
}

// WithPreferRockRidge prefers Rock Ridge names over Joliet.
func WithPreferRockRidge() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ISO.PreferRockRidge = true
	}
}

// Default stub bodies. The bchunk stub prints its usage line when run
// without arguments, the way the real tool does.
const (
	StubBchunkUsage = `if [ $# -eq 0 ]; then
  echo "Usage: bchunk [-v] [-r] [-p (PSX)] [-w (wav)] [-s (swabaudio)] <image.bin> <image.cue> <basename>" >&2
  exit 1
fi
exit 0`
	StubUbiVersion = `if [ "$1" = "--version" ]; then
  echo "ubi 0.7.1"
  exit 0
fi
exit 0`
)

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, bchunk and ubi are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"bchunk", "ubi"}
		}
		stubs := make(map[string]string, len(names))
		for _, name := range names {
			switch name {
			case "bchunk":
				stubs[name] = StubBchunkUsage
			case "ubi":
				stubs[name] = StubUbiVersion
			default:
				stubs[name] = "exit 0"
			}
		}
		WithStubbedScripts(stubs)(b)
	}
}

// WithStubbedScripts writes one #!/bin/sh stub per entry (name -> body) into
// a bin directory and prepends it to PATH for the duration of the test.
func WithStubbedScripts(stubs map[string]string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for name, body := range stubs {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithEmptyPath replaces PATH with an empty directory so no system tool can
// be found.
func WithEmptyPath() ConfigOption {
	return func(b *configBuilder) {
		empty := filepath.Join(b.baseDir, "empty-path")
		if err := os.MkdirAll(empty, 0o755); err != nil {
			b.t.Fatalf("mkdir empty path: %v", err)
		}
		b.t.Setenv("PATH", empty)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
