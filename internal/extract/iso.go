package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"roller/internal/config"
	"roller/internal/iso9660"
	"roller/internal/logging"
	"roller/internal/services"
)

const formatISO = "iso9660"

// ISOHandler extracts the asset directory from an ISO 9660 image.
type ISOHandler struct {
	cfg *config.Config
}

// NewISOHandler constructs an ISO handler.
func NewISOHandler(cfg *config.Config) *ISOHandler {
	return &ISOHandler{cfg: cfg}
}

func (h *ISOHandler) Name() string { return formatISO }

func (h *ISOHandler) Extensions() []string { return []string{".iso"} }

func (h *ISOHandler) CanHandle(_ context.Context, source string) bool {
	if !hasExtension(source, h.Extensions()...) {
		return false
	}
	return probeISO(source, h.cfg.ISO.SectorSize)
}

func probeISO(source string, sectorSize int) bool {
	f, err := os.Open(source)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return iso9660.IsImage(f, info.Size(), sectorSize)
}

func (h *ISOHandler) FindAssetPath(ctx context.Context, source string) (string, bool, error) {
	return h.find(ctx, source, source, h.cfg.ISO.SectorSize)
}

func (h *ISOHandler) ExtractAssetDirectory(ctx context.Context, source, assetPath, destination string, opts Options) Result {
	return h.extract(ctx, source, source, assetPath, destination, h.cfg.ISO.SectorSize, opts)
}

// openedImage pairs a parsed image with the file backing it.
type openedImage struct {
	*iso9660.Image
	file *os.File
}

func (h *ISOHandler) open(path, label string, sectorSize int) (*openedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Fail(services.CodeNotFound, label, "open image", "", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, services.Fail(services.CodeInternal, label, "stat image", "", err)
	}
	img, err := iso9660.Open(f, info.Size(), iso9660.Options{
		SectorSize:      sectorSize,
		PreferRockRidge: h.cfg.ISO.PreferRockRidge,
		LowercasePlain:  h.cfg.Extraction.LowercasePlainNames,
	})
	if err != nil {
		f.Close()
		return nil, services.Fail(services.CodeCorruptContainer, label, "read volume descriptors", "", err)
	}
	return &openedImage{Image: img, file: f}, nil
}

func (o *openedImage) Close() error { return o.file.Close() }

// find locates the asset directory in the image at path. label names the
// container in errors; it differs from path when the image is a converted
// CUE/BIN data track.
func (h *ISOHandler) find(ctx context.Context, path, label string, sectorSize int) (string, bool, error) {
	img, err := h.open(path, label, sectorSize)
	if err != nil {
		return "", false, err
	}
	defer img.Close()
	entry, ok, err := img.FindDir(ctx, assetDirName(h.cfg))
	if err != nil {
		return "", false, imageError(ctx, label, "search directories", err)
	}
	if !ok {
		return "", false, nil
	}
	return entry.Path, true, nil
}

type isoMember struct {
	entry iso9660.Entry
	rel   string
}

func (h *ISOHandler) extract(ctx context.Context, path, label, assetPath, destination string, sectorSize int, opts Options) Result {
	out := filepath.Join(destination, outputName(h.cfg))
	result := newResult(h.Name(), label, destination, out)
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	img, err := h.open(path, label, sectorSize)
	if err != nil {
		return result.fail(err).build()
	}
	defer img.Close()

	asset, ok, err := img.Lookup(assetPath)
	if err != nil {
		return result.fail(imageError(ctx, label, "resolve asset directory", err)).build()
	}
	if !ok || !asset.Dir {
		return result.fail(services.Fail(services.CodeAssetDirectoryNotFound, label, "resolve asset directory", assetPath+" not found in image", nil)).build()
	}

	var dirs []string
	var files []isoMember
	err = img.Walk(ctx, asset, func(e iso9660.Entry) error {
		rel, _ := relativeTo(asset.Path, e.Path)
		clean, err := cleanMemberPath(label, rel)
		if err != nil {
			result.warn(services.ErrorMessage(err))
			logging.WarnWithContext(logger, "iso entry rejected", "path_traversal_rejected",
				logging.String("entry", e.Path),
			)
			return nil
		}
		if e.Dir {
			dirs = append(dirs, clean)
		} else {
			files = append(files, isoMember{entry: e, rel: clean})
		}
		return nil
	})
	if err != nil {
		return result.fail(imageError(ctx, label, "walk asset directory", err)).build()
	}
	logger.Debug("iso asset directory listed",
		logging.String("names", string(img.NameSource())),
		logging.Int("files", len(files)),
		logging.Int("dirs", len(dirs)),
	)

	sink, err := newSink(out, h.Name(), label, result, opts)
	if err != nil {
		return result.fail(services.Fail(services.CodeInternal, label, "prepare output", "", err)).build()
	}
	sink.expect(len(files))
	for _, dir := range dirs {
		if err := sink.mkdir(dir); err != nil {
			return result.fail(err).build()
		}
	}
	for _, member := range files {
		r, err := img.Open(member.entry)
		if err != nil {
			return result.fail(services.Fail(services.CodeCorruptContainer, label, "open file", member.entry.Path, err)).build()
		}
		if err := sink.write(ctx, member.rel, r); err != nil {
			return result.fail(err).build()
		}
	}
	return result.build()
}

func imageError(ctx context.Context, label, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return canceled(label, ctxErr)
	}
	return services.Fail(services.CodeCorruptContainer, label, operation, "", err)
}
