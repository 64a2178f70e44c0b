package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"roller/internal/config"
	"roller/internal/cuesheet"
	"roller/internal/deps"
	"roller/internal/fileutil"
	"roller/internal/iso9660"
	"roller/internal/logging"
	"roller/internal/services"
	"roller/internal/services/bchunk"
)

const (
	formatCueBin  = "cue/bin"
	trackBasename = "track"
	workDirPrefix = "roller-cuebin-"
	sheetProbeLen = 4096
)

// CueBinOption configures a CueBinHandler.
type CueBinOption func(*CueBinHandler)

// WithSplitterExecutor runs bchunk through runner instead of a real process.
func WithSplitterExecutor(runner services.Runner) CueBinOption {
	return func(h *CueBinHandler) {
		h.runner = runner
	}
}

// CueBinHandler converts a CUE/BIN pair with bchunk and extracts the asset
// directory from the resulting data track.
type CueBinHandler struct {
	cfg    *config.Config
	tools  *deps.Tools
	iso    *ISOHandler
	runner services.Runner
}

// NewCueBinHandler constructs a CUE/BIN handler. iso reads the converted
// data track; a nil iso gets a handler built from cfg.
func NewCueBinHandler(cfg *config.Config, tools *deps.Tools, iso *ISOHandler, opts ...CueBinOption) *CueBinHandler {
	if iso == nil {
		iso = NewISOHandler(cfg)
	}
	h := &CueBinHandler{cfg: cfg, tools: tools, iso: iso}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *CueBinHandler) Name() string { return formatCueBin }

func (h *CueBinHandler) Extensions() []string { return []string{".cue", ".bin"} }

// CanHandle accepts a .cue file whose head has a FILE directive, or a .bin
// image with a sibling sheet.
func (h *CueBinHandler) CanHandle(_ context.Context, source string) bool {
	switch {
	case hasExtension(source, ".cue"):
		return sheetLooksValid(source)
	case hasExtension(source, ".bin"):
		cue, ok := cuesheet.SiblingSheet(source)
		return ok && sheetLooksValid(cue)
	default:
		return false
	}
}

func sheetLooksValid(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, sheetProbeLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return cuesheet.HasFileDirective(head[:n])
}

// prepared is a converted disc image living in a scratch directory.
type prepared struct {
	work       string
	sheet      *cuesheet.Sheet
	outputs    bchunk.Outputs
	sectorSize int
	logger     *slog.Logger
}

func (p *prepared) dataTrack() bchunk.Track { return p.outputs.Data[0] }

func (p *prepared) cleanup() {
	if p == nil || p.work == "" {
		return
	}
	if err := os.RemoveAll(p.work); err != nil {
		logging.WarnWithContext(p.logger, "failed to remove work directory", "workdir_cleanup_failed",
			logging.String("path", p.work),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scratch files remain until the next stale cleanup"),
		)
	}
}

// Extract runs find and extract over a single conversion.
func (h *CueBinHandler) Extract(ctx context.Context, source, destination string, opts Options) Result {
	result := newResult(h.Name(), source, destination, "")
	prep, err := h.prepare(ctx, source, opts)
	defer prep.cleanup()
	if err != nil {
		return result.fail(err).build()
	}
	assetPath, ok, err := h.iso.find(ctx, prep.dataTrack().Path, source, prep.sectorSize)
	if err != nil {
		return result.fail(err).build()
	}
	if !ok {
		return result.fail(assetMissing(source, assetDirName(h.cfg))).build()
	}
	return h.extractPrepared(ctx, prep, source, assetPath, destination, opts, result)
}

func (h *CueBinHandler) FindAssetPath(ctx context.Context, source string) (string, bool, error) {
	prep, err := h.prepare(ctx, source, Options{})
	defer prep.cleanup()
	if err != nil {
		return "", false, err
	}
	return h.iso.find(ctx, prep.dataTrack().Path, source, prep.sectorSize)
}

func (h *CueBinHandler) ExtractAssetDirectory(ctx context.Context, source, assetPath, destination string, opts Options) Result {
	result := newResult(h.Name(), source, destination, "")
	prep, err := h.prepare(ctx, source, opts)
	defer prep.cleanup()
	if err != nil {
		return result.fail(err).build()
	}
	return h.extractPrepared(ctx, prep, source, assetPath, destination, opts, result)
}

func (h *CueBinHandler) extractPrepared(ctx context.Context, prep *prepared, source, assetPath, destination string, opts Options, result *resultBuilder) Result {
	inner := h.iso.extract(ctx, prep.dataTrack().Path, source, assetPath, destination, prep.sectorSize, opts)
	result.merge(inner)
	if result.failed() || !opts.ExtractAudio {
		return result.build()
	}
	h.copyAudio(ctx, prep, destination, opts, result)
	return result.build()
}

func (h *CueBinHandler) prepare(ctx context.Context, source string, opts Options) (*prepared, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	prep := &prepared{logger: logger}

	cuePath := source
	if hasExtension(source, ".bin") {
		sheet, ok := cuesheet.SiblingSheet(source)
		if !ok {
			return prep, services.Fail(services.CodeCorruptContainer, source, "locate cue sheet", "no .cue file next to the image", nil)
		}
		cuePath = sheet
	}

	if h.tools == nil {
		return prep, services.Fail(services.CodeToolNotFound, source, "resolve splitter", "no tool resolver configured", nil)
	}
	binding, err := h.tools.Splitter(ctx)
	if err != nil {
		return prep, err
	}

	sheet, err := cuesheet.ParseFile(cuePath)
	if err != nil {
		return prep, services.Fail(services.CodeCorruptContainer, cuePath, "parse cue sheet", "", err)
	}
	prep.sheet = sheet
	if !sheet.HasDataTrack() {
		return prep, services.Fail(services.CodeNoDataTrack, cuePath, "parse cue sheet", "sheet lists no MODE track", nil)
	}
	bins, err := cuesheet.ResolveFiles(cuePath, sheet)
	if err != nil {
		return prep, services.Fail(services.CodeCorruptContainer, cuePath, "resolve image files", "", err)
	}

	work, err := h.makeWorkDir()
	if err != nil {
		return prep, services.Fail(services.CodeInternal, source, "create work directory", "", err)
	}
	prep.work = work

	clientOpts := []bchunk.Option{bchunk.WithLogger(logger)}
	if h.runner != nil {
		clientOpts = append(clientOpts, bchunk.WithExecutor(h.runner))
	}
	client, err := bchunk.New(binding.Path, h.cfg.Tools.SplitTimeout, clientOpts...)
	if err != nil {
		return prep, services.Fail(services.CodeToolNotFound, source, "resolve splitter", "", err)
	}

	basename := filepath.Join(work, trackBasename)
	if len(sheet.Files) == 1 {
		if err := client.Split(ctx, bins[0], cuePath, basename); err != nil {
			return prep, err
		}
	} else {
		for i := range sheet.Files {
			if len(sheet.Files[i].Tracks) == 0 {
				continue
			}
			sub, err := sheet.Subset(i)
			if err != nil {
				return prep, services.Fail(services.CodeInternal, cuePath, "split sheet", "", err)
			}
			subPath := filepath.Join(work, fmt.Sprintf("file%02d.cue", i+1))
			if err := sub.WriteFile(subPath); err != nil {
				return prep, services.Fail(services.CodeInternal, cuePath, "write sheet", subPath, err)
			}
			if err := client.Split(ctx, bins[i], subPath, basename); err != nil {
				return prep, err
			}
		}
	}

	outputs, err := bchunk.Collect(work, trackBasename)
	if err != nil {
		return prep, services.Fail(services.CodeConversionFailed, cuePath, "collect tracks", "", err)
	}
	if len(outputs.Data) == 0 {
		return prep, services.Fail(services.CodeNoDataTrack, cuePath, "collect tracks", "bchunk produced no data track", nil)
	}
	prep.outputs = outputs
	prep.sectorSize = trackSectorSize(sheet, outputs.Data[0].Number, h.cfg.ISO.SectorSize)
	logger.Debug("cue/bin converted",
		logging.String("work_dir", work),
		logging.Int("data_tracks", len(outputs.Data)),
		logging.Int("audio_tracks", len(outputs.Audio)),
		logging.Int("sector_size", prep.sectorSize),
	)
	return prep, nil
}

func (h *CueBinHandler) makeWorkDir() (string, error) {
	root := strings.TrimSpace(h.cfg.Paths.WorkDir)
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, workDirPrefix+"*")
}

// trackSectorSize maps a data track's mode to the sector size of the file
// bchunk writes for it: MODE1 tracks come out cooked, MODE2 tracks keep the
// 8-byte subheader.
func trackSectorSize(sheet *cuesheet.Sheet, number, fallback int) int {
	for _, t := range sheet.Tracks() {
		if t.Number != number {
			continue
		}
		mode := strings.ToUpper(t.Mode)
		switch {
		case strings.HasPrefix(mode, "MODE1/"):
			return iso9660.LogicalBlockSize
		case strings.HasPrefix(mode, "MODE2/"):
			return 2336
		}
	}
	if fallback == 0 {
		return iso9660.LogicalBlockSize
	}
	return fallback
}

func (h *CueBinHandler) copyAudio(ctx context.Context, prep *prepared, destination string, opts Options, result *resultBuilder) {
	if len(prep.outputs.Audio) == 0 {
		result.warn("audio requested but the image has no audio tracks")
		return
	}
	dir := strings.TrimSpace(opts.AudioDir)
	if dir == "" {
		name := strings.TrimSpace(h.cfg.Extraction.AudioDirName)
		if name == "" {
			name = "audio"
		}
		dir = filepath.Join(destination, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.warn(fmt.Sprintf("create audio directory %s: %v", dir, err))
		return
	}
	for _, track := range prep.outputs.Audio {
		if err := ctx.Err(); err != nil {
			result.fail(canceled(result.r.Source, err))
			return
		}
		dst := filepath.Join(dir, fmt.Sprintf("track%02d%s", track.Number, strings.ToLower(filepath.Ext(track.Path))))
		n, err := fileutil.CopyFileVerified(track.Path, dst)
		if err != nil {
			result.warn(fmt.Sprintf("copy audio track %d: %v", track.Number, err))
			continue
		}
		prep.logger.Debug("audio track copied",
			logging.Int("track", track.Number),
			logging.Int64("bytes", n),
			logging.String("path", dst),
		)
		result.addAudio(dst)
	}
}

func assetMissing(source, name string) error {
	return services.Fail(services.CodeAssetDirectoryNotFound, source, "locate asset directory", fmt.Sprintf("no %s directory found", name), nil)
}
