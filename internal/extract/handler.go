package extract

import (
	"context"
	"path/filepath"
	"strings"

	"roller/internal/config"
	"roller/internal/deps"
)

// Handler is one container format.
type Handler interface {
	// Name identifies the format in results and logs.
	Name() string
	// Extensions lists the lowercase file extensions the handler accepts.
	Extensions() []string
	// CanHandle checks the extension and the content signature.
	CanHandle(ctx context.Context, source string) bool
	// FindAssetPath returns the slash-separated path of the first directory,
	// breadth-first, whose name matches the configured asset directory. A
	// missing directory is ("", false, nil); a damaged container is an error.
	FindAssetPath(ctx context.Context, source string) (string, bool, error)
	// ExtractAssetDirectory copies everything below assetPath into
	// destination/<output_name>.
	ExtractAssetDirectory(ctx context.Context, source, assetPath, destination string, opts Options) Result
}

// containerExtractor is implemented by handlers whose preparation is
// expensive enough that find and extract must share it.
type containerExtractor interface {
	Extract(ctx context.Context, source, destination string, opts Options) Result
}

// Registry holds handlers in probe order. It is immutable once built.
type Registry struct {
	handlers []Handler
}

// NewRegistry builds a registry probing handlers in the given order.
func NewRegistry(handlers ...Handler) *Registry {
	list := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			list = append(list, h)
		}
	}
	return &Registry{handlers: list}
}

// DefaultHandlers returns the ZIP, ISO, and CUE/BIN handlers, in that order.
func DefaultHandlers(cfg *config.Config, tools *deps.Tools) []Handler {
	iso := NewISOHandler(cfg)
	return []Handler{
		NewZipHandler(cfg),
		iso,
		NewCueBinHandler(cfg, tools, iso),
	}
}

// DefaultRegistry is NewRegistry(DefaultHandlers(cfg, tools)...).
func DefaultRegistry(cfg *config.Config, tools *deps.Tools) *Registry {
	return NewRegistry(DefaultHandlers(cfg, tools)...)
}

// Handlers returns a copy of the registered handlers.
func (r *Registry) Handlers() []Handler {
	return append([]Handler(nil), r.handlers...)
}

// Select returns the first handler that accepts source.
func (r *Registry) Select(ctx context.Context, source string) (Handler, bool) {
	for _, h := range r.handlers {
		if h.CanHandle(ctx, source) {
			return h, true
		}
	}
	return nil, false
}

// Extensions returns every extension the registry recognizes, in
// registration order without duplicates.
func (r *Registry) Extensions() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, h := range r.handlers {
		for _, ext := range h.Extensions() {
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			out = append(out, ext)
		}
	}
	return out
}

func hasExtension(source string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(source))
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}

func outputName(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.Extraction.OutputName); name != "" {
		return name
	}
	return "fatdata"
}

func assetDirName(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.Extraction.AssetDir); name != "" {
		return name
	}
	return "FATDATA"
}
