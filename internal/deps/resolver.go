package deps

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"roller/internal/config"
	"roller/internal/logging"
	"roller/internal/services"
)

// Resolution methods recorded on a Binding and on each Attempt.
const (
	MethodConfigured       = "configured"
	MethodBundled          = "bundled-alongside"
	MethodProjectRoot      = "project-root"
	MethodSystemSearchPath = "system-search-path"
	MethodExtraCandidate   = "extra-candidate"
)

const defaultVerifyTimeout = 5 * time.Second

// Spec describes how to find and verify one external executable.
type Spec struct {
	Name            string
	Description     string
	VersionArgs     []string
	AcceptExitCodes []int
	// ExpectOutput, when set, must appear (case-insensitively) in the
	// combined stdout and stderr of the verification run.
	ExpectOutput string
	// ConfiguredPath is tried before the regular chain.
	ConfiguredPath string
	Candidates     []string
	ExtraPaths     []string
	Hint           string
}

// Attempt records one candidate considered during resolution.
type Attempt struct {
	Path   string
	Method string
	Reason string
}

// Binding is a resolved, verified executable.
type Binding struct {
	Name   string
	Path   string
	Method string
	Tried  []Attempt
}

// Resolver locates external executables through an ordered fallback chain
// and caches successful bindings for the life of the process.
type Resolver struct {
	runner        services.Runner
	logger        *slog.Logger
	verifyTimeout time.Duration
	projectRoot   string
	exeDir        func() string
	searchPath    func() string
	suffixes      []string
	wellKnown     bool

	mu    sync.Mutex
	cache map[string]Binding
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRunner overrides the command runner used for verification.
func WithRunner(runner services.Runner) Option {
	return func(r *Resolver) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithVerifyTimeout bounds each verification run.
func WithVerifyTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.verifyTimeout = timeout
		}
	}
}

// WithProjectRoot sets the development checkout searched after the
// executable's own directory.
func WithProjectRoot(root string) Option {
	return func(r *Resolver) {
		r.projectRoot = strings.TrimSpace(root)
	}
}

// WithExecutableDir overrides the directory treated as "alongside the
// installer".
func WithExecutableDir(dir string) Option {
	return func(r *Resolver) {
		r.exeDir = func() string { return dir }
	}
}

// WithSearchPath overrides the PATH value consulted for the system search.
func WithSearchPath(path string) Option {
	return func(r *Resolver) {
		r.searchPath = func() string { return path }
	}
}

// WithSuffixes overrides the executable suffixes tried per directory.
func WithSuffixes(suffixes ...string) Option {
	return func(r *Resolver) {
		if len(suffixes) > 0 {
			r.suffixes = suffixes
		}
	}
}

// WithoutWellKnownLocations ignores Spec.Candidates, the hard-coded install
// locations, so only configured paths, the bundled directory, the project
// root, PATH, and extra_paths are searched.
func WithoutWellKnownLocations() Option {
	return func(r *Resolver) {
		r.wellKnown = false
	}
}

// NewResolver constructs a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		runner:        services.NewRunner(),
		logger:        logging.NewNop(),
		verifyTimeout: defaultVerifyTimeout,
		exeDir:        executableDir,
		searchPath:    func() string { return os.Getenv("PATH") },
		suffixes:      config.ExecutableSuffixes(),
		wellKnown:     true,
		cache:         make(map[string]Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a verified binding for spec, consulting the cache first.
// Failure yields a TOOL_NOT_FOUND error listing every path tried.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (Binding, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if binding, ok := r.cache[spec.Name]; ok {
		return binding, nil
	}

	var tried []Attempt
	seen := make(map[string]struct{})
	for _, candidate := range r.candidates(spec) {
		if err := ctx.Err(); err != nil {
			return Binding{}, services.Fail(services.CodeCanceled, spec.Name, "resolve", "resolution canceled", err)
		}
		key := filepath.Clean(candidate.Path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		reason := r.check(ctx, spec, candidate.Path)
		if reason == "" {
			binding := Binding{
				Name:   spec.Name,
				Path:   candidate.Path,
				Method: candidate.Method,
				Tried:  tried,
			}
			r.cache[spec.Name] = binding
			r.logger.Debug("tool resolved",
				logging.String("tool", spec.Name),
				logging.String("path", binding.Path),
				logging.String("method", binding.Method),
				logging.Int("attempts", len(tried)+1),
			)
			return binding, nil
		}
		candidate.Reason = reason
		tried = append(tried, candidate)
	}

	logging.WarnWithContext(r.logger, "tool not found", "tool_not_found",
		logging.String("tool", spec.Name),
		logging.Int("attempts", len(tried)),
		logging.String(logging.FieldErrorHint, spec.Hint),
		logging.String(logging.FieldImpact, "containers needing this tool cannot be processed"),
	)
	return Binding{}, notFound(spec, tried)
}

// Forget drops a cached binding so the next Resolve walks the chain again.
func (r *Resolver) Forget(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
}

func (r *Resolver) candidates(spec Spec) []Attempt {
	var out []Attempt
	add := func(path, method string) {
		if strings.TrimSpace(path) != "" {
			out = append(out, Attempt{Path: path, Method: method})
		}
	}
	inDir := func(dir, method string) {
		if strings.TrimSpace(dir) == "" {
			return
		}
		for _, suffix := range r.suffixes {
			add(filepath.Join(dir, spec.Name+suffix), method)
		}
	}

	add(spec.ConfiguredPath, MethodConfigured)
	inDir(r.exeDir(), MethodBundled)
	if r.projectRoot != "" {
		inDir(r.projectRoot, MethodProjectRoot)
		inDir(filepath.Join(r.projectRoot, "bin"), MethodProjectRoot)
	}
	for _, dir := range filepath.SplitList(r.searchPath()) {
		inDir(dir, MethodSystemSearchPath)
	}
	if r.wellKnown {
		for _, candidate := range spec.Candidates {
			add(candidate, MethodExtraCandidate)
		}
	}
	for _, candidate := range spec.ExtraPaths {
		add(candidate, MethodExtraCandidate)
	}
	return out
}

// check returns an empty string when path is a working executable, or the
// reason it was rejected.
func (r *Resolver) check(ctx context.Context, spec Spec, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "not found"
		}
		return err.Error()
	}
	if !isExecutable(info) {
		if info.IsDir() {
			return "is a directory"
		}
		return "not executable"
	}

	verifyCtx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()

	res, runErr := r.runner.Run(verifyCtx, path, spec.VersionArgs...)
	if verifyCtx.Err() != nil {
		return fmt.Sprintf("verification timed out after %s", r.verifyTimeout)
	}
	if res.ExitCode < 0 {
		if runErr != nil {
			return fmt.Sprintf("failed to start: %v", runErr)
		}
		return "failed to start"
	}
	accept := spec.AcceptExitCodes
	if len(accept) == 0 {
		accept = []int{0}
	}
	if !slices.Contains(accept, res.ExitCode) {
		return fmt.Sprintf("verification exited with status %d", res.ExitCode)
	}
	if expect := strings.TrimSpace(spec.ExpectOutput); expect != "" {
		output := strings.ToLower(res.Stdout + " " + res.Stderr)
		if !strings.Contains(output, strings.ToLower(expect)) {
			return fmt.Sprintf("output did not mention %q", expect)
		}
	}
	return ""
}

func notFound(spec Spec, tried []Attempt) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s binary not found", spec.Name)
	if len(tried) > 0 {
		b.WriteString("; tried:")
		for _, attempt := range tried {
			fmt.Fprintf(&b, "\n  %s (%s): %s", attempt.Path, attempt.Method, attempt.Reason)
		}
	}
	if hint := strings.TrimSpace(spec.Hint); hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	return services.Fail(services.CodeToolNotFound, spec.Name, "resolve", b.String(), nil)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func isExecutable(info fs.FileInfo) bool {
	if info == nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
