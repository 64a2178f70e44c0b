package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	perrors "github.com/jmgilman/go/errors"

	"roller/internal/config"
	"roller/internal/fileutil"
	"roller/internal/logging"
	"roller/internal/services"
)

// Coordinator selects a handler for a container and runs it.
type Coordinator struct {
	cfg      *config.Config
	registry *Registry
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator. A nil registry is an empty one; a nil
// logger discards output.
func NewCoordinator(cfg *config.Config, registry *Registry, logger *slog.Logger) *Coordinator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Coordinator{
		cfg:      cfg,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "extract"),
	}
}

// Registry exposes the handlers the coordinator probes.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Extract copies the asset directory found in source into
// destination/<output_name>.
//
// The returned error is reserved for contract violations: a nil context or
// an empty path. Every other failure is reported through Result.Err. When a
// call fails before writing any file, whatever the coordinator created or
// put in destination is removed again.
func (c *Coordinator) Extract(ctx context.Context, source, destination string, opts ...Option) (Result, error) {
	if ctx == nil {
		return Result{}, perrors.New(perrors.CodeInvalidInput, "extract: nil context")
	}
	if strings.TrimSpace(source) == "" {
		return Result{}, perrors.New(perrors.CodeInvalidInput, "extract: source path required")
	}
	if strings.TrimSpace(destination) == "" {
		return Result{}, perrors.New(perrors.CodeInvalidInput, "extract: destination path required")
	}

	started := time.Now()
	id := uuid.NewString()
	o := buildOptions(opts)
	ctx = services.WithExtractionID(ctx, id)
	ctx = services.WithSource(ctx, source)
	base := c.logger
	if o.Logger != nil {
		base = logging.NewComponentLogger(o.Logger, "extract")
	}
	logger := logging.WithContext(ctx, base)

	finish := func(r Result) (Result, error) {
		r.ID = id
		r.Duration = time.Since(started)
		if r.Source == "" {
			r.Source = source
		}
		if r.Destination == "" {
			r.Destination = destination
		}
		c.logResult(logger, r)
		return r, nil
	}

	if err := checkSource(source); err != nil {
		return finish(failedResult("", source, destination, err))
	}
	state, err := fileutil.InspectDir(destination)
	if err != nil {
		return finish(failedResult("", source, destination,
			services.Fail(perrors.CodeInvalidInput, destination, "inspect destination", "", err)))
	}
	if state == fileutil.DirPopulated {
		return finish(failedResult("", source, destination,
			services.Fail(services.CodeDestinationNotEmpty, destination, "inspect destination", "destination directory is not empty", nil)))
	}

	handler, ok := c.registry.Select(ctx, source)
	if !ok {
		return finish(failedResult("", source, destination, c.unsupported(ctx, source)))
	}
	ctx = services.WithFormat(ctx, handler.Name())
	logger = logging.WithContext(ctx, base)
	o.Logger = logger

	created := fileutil.MissingRoot(destination)
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return finish(failedResult(handler.Name(), source, destination,
			services.Fail(perrors.CodeInternal, destination, "create destination", "", err)))
	}
	logger.Info("extraction started",
		logging.String("destination", destination),
		logging.Bool("audio", o.ExtractAudio),
	)

	result := c.run(ctx, handler, source, destination, o)
	if !result.Success && result.FilesExtracted == 0 {
		c.rollback(logger, destination, created)
	}
	return finish(result)
}

func (c *Coordinator) run(ctx context.Context, handler Handler, source, destination string, o Options) Result {
	if ce, ok := handler.(containerExtractor); ok {
		return ce.Extract(ctx, source, destination, o)
	}
	assetPath, ok, err := handler.FindAssetPath(ctx, source)
	if err != nil {
		if services.Code(err) == perrors.CodeUnknown {
			err = services.Fail(services.CodeCorruptContainer, source, "locate asset directory", "", err)
		}
		return failedResult(handler.Name(), source, destination, err)
	}
	if !ok {
		return failedResult(handler.Name(), source, destination, assetMissing(source, assetDirName(c.cfg)))
	}
	o.Logger.Debug("asset directory located", logging.String("asset_path", assetPath))
	return handler.ExtractAssetDirectory(ctx, source, assetPath, destination, o)
}

// rollback undoes the destination side effects of a call that wrote
// nothing. created is the topmost directory the call made on the way to
// destination, removed with everything below it; when it is empty the
// destination already existed (empty) and is emptied again.
func (c *Coordinator) rollback(logger *slog.Logger, destination, created string) {
	var err error
	if created != "" {
		err = os.RemoveAll(created)
	} else {
		err = fileutil.RemoveContents(destination)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to clean destination", "destination_cleanup_failed",
			logging.String("destination", destination),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an empty output directory may remain"),
		)
	}
}

func (c *Coordinator) logResult(logger *slog.Logger, r Result) {
	if r.Success {
		logger.Info("extraction complete",
			logging.String("asset_path", r.AssetPath),
			logging.Int("files", r.FilesExtracted),
			logging.Int64("bytes", r.BytesExtracted),
			logging.Int("warnings", len(r.Warnings)),
			logging.Int("audio_tracks", len(r.AudioTracks)),
			logging.Duration("duration", r.Duration),
		)
		return
	}
	if errors.Is(r.Err, context.Canceled) || Kind(r.Err) == services.CodeCanceled {
		logger.Info("extraction canceled", logging.Int("files", r.FilesExtracted))
		return
	}
	logging.ErrorWithContext(logger, "extraction failed", "extraction_failed",
		logging.String("code", string(Kind(r.Err))),
		logging.Error(r.Err),
		logging.Int("files", r.FilesExtracted),
		logging.String(logging.FieldErrorHint, hintFor(Kind(r.Err))),
	)
}

func hintFor(code perrors.ErrorCode) string {
	switch code {
	case services.CodeUnsupportedFormat:
		return "pass a .zip, .iso, .cue, or .bin file"
	case services.CodeAssetDirectoryNotFound:
		return "check that the container holds the game's FATDATA directory"
	case services.CodeCorruptContainer:
		return "the container is damaged; obtain a fresh copy"
	case services.CodeToolNotFound:
		return "install bchunk or set tools.bchunk.path"
	case services.CodeConversionFailed:
		return "bchunk rejected the image; check the cue sheet against the bin file"
	case services.CodeDestinationNotEmpty:
		return "choose an empty destination directory"
	case services.CodeNoDataTrack:
		return "the disc image has no data track; it may be an audio-only CD"
	default:
		return "check logs for details"
	}
}

func checkSource(source string) error {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Fail(perrors.CodeNotFound, source, "open source", "source does not exist", err)
		}
		return services.Fail(perrors.CodeInternal, source, "open source", "", err)
	}
	if info.IsDir() {
		return services.Fail(perrors.CodeInvalidInput, source, "open source", "source is a directory", nil)
	}
	return nil
}

func (c *Coordinator) unsupported(ctx context.Context, source string) error {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		ext = "(none)"
	}
	message := fmt.Sprintf("extension %s is not one of %s", ext, strings.Join(c.registry.Extensions(), ", "))
	if hint := sniffContent(ctx, source); hint != "" {
		message += "; content looks like " + hint
	}
	return services.Fail(services.CodeUnsupportedFormat, source, "select handler", message, nil)
}

// Location is where a container keeps its asset directory.
type Location struct {
	Format    string
	AssetPath string
}

// Locate reports the asset directory inside source without extracting.
// Failures carry the same codes Extract reports.
func (c *Coordinator) Locate(ctx context.Context, source string) (Location, error) {
	if strings.TrimSpace(source) == "" {
		return Location{}, perrors.New(perrors.CodeInvalidInput, "locate: source path required")
	}
	if err := checkSource(source); err != nil {
		return Location{}, err
	}
	handler, ok := c.registry.Select(ctx, source)
	if !ok {
		return Location{}, c.unsupported(ctx, source)
	}
	assetPath, found, err := handler.FindAssetPath(ctx, source)
	if err != nil {
		if services.Code(err) == perrors.CodeUnknown {
			err = services.Fail(services.CodeCorruptContainer, source, "locate asset directory", "", err)
		}
		return Location{Format: handler.Name()}, err
	}
	if !found {
		return Location{Format: handler.Name()}, assetMissing(source, assetDirName(c.cfg))
	}
	return Location{Format: handler.Name(), AssetPath: assetPath}, nil
}
