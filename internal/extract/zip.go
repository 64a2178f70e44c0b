package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/jmgilman/go/errors"
	"github.com/mholt/archives"

	"roller/internal/config"
	"roller/internal/logging"
	"roller/internal/services"
)

const formatZip = "zip"

var zipEmptySignature = []byte("PK\x05\x06")

// ZipHandler extracts the asset directory from a ZIP archive.
type ZipHandler struct {
	cfg *config.Config
}

// NewZipHandler constructs a ZIP handler.
func NewZipHandler(cfg *config.Config) *ZipHandler {
	return &ZipHandler{cfg: cfg}
}

func (h *ZipHandler) Name() string { return formatZip }

func (h *ZipHandler) Extensions() []string { return []string{".zip"} }

func (h *ZipHandler) CanHandle(ctx context.Context, source string) bool {
	if !hasExtension(source, h.Extensions()...) {
		return false
	}
	return looksLikeZip(ctx, source)
}

func looksLikeZip(ctx context.Context, source string) bool {
	f, err := os.Open(source)
	if err != nil {
		return false
	}
	defer f.Close()
	match, err := archives.Zip{}.Match(ctx, "", f)
	if err == nil && match.ByStream {
		return true
	}
	head := make([]byte, len(zipEmptySignature))
	if _, err := f.ReadAt(head, 0); err != nil {
		return false
	}
	return bytes.Equal(head, zipEmptySignature)
}

// FindAssetPath picks the shallowest directory named like the asset
// directory. Directories implied by file names count; ties go to the one
// appearing first in the central directory.
func (h *ZipHandler) FindAssetPath(ctx context.Context, source string) (string, bool, error) {
	target := assetDirName(h.cfg)
	best, bestDepth := "", 0
	err := h.walk(ctx, source, func(info archives.FileInfo) error {
		name, err := cleanMemberPath(source, info.NameInArchive)
		if err != nil || name == "" {
			return nil
		}
		segments := strings.Split(name, "/")
		dirSegments := segments
		if !info.IsDir() {
			dirSegments = segments[:len(segments)-1]
		}
		for i, segment := range dirSegments {
			depth := i + 1
			if bestDepth != 0 && depth >= bestDepth {
				break
			}
			if strings.EqualFold(segment, target) {
				best, bestDepth = strings.Join(segments[:depth], "/"), depth
				break
			}
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return best, bestDepth > 0, nil
}

// ExtractAssetDirectory streams every member below assetPath into
// destination/<output_name>. Unsafe member names anywhere in the archive
// are reported as warnings and skipped.
func (h *ZipHandler) ExtractAssetDirectory(ctx context.Context, source, assetPath, destination string, opts Options) Result {
	out := filepath.Join(destination, outputName(h.cfg))
	result := newResult(h.Name(), source, destination, out)
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	total := 0
	err := h.walk(ctx, source, func(info archives.FileInfo) error {
		name, err := cleanMemberPath(source, info.NameInArchive)
		if err != nil {
			result.warn(services.ErrorMessage(err))
			logging.WarnWithContext(logger, "zip entry rejected", "path_traversal_rejected",
				logging.String("entry", info.NameInArchive),
				logging.String(logging.FieldErrorHint, "the archive contains entries outside its root; they were skipped"),
			)
			return nil
		}
		if rel, ok := relativeTo(assetPath, name); ok && rel != "" && info.Mode().IsRegular() {
			total++
		}
		return nil
	})
	if err != nil {
		return result.fail(err).build()
	}

	sink, err := newSink(out, h.Name(), source, result, opts)
	if err != nil {
		return result.fail(services.Fail(services.CodeInternal, source, "prepare output", "", err)).build()
	}
	sink.expect(total)

	err = h.walk(ctx, source, func(info archives.FileInfo) error {
		name, err := cleanMemberPath(source, info.NameInArchive)
		if err != nil {
			return nil
		}
		rel, ok := relativeTo(assetPath, name)
		if !ok || rel == "" {
			return nil
		}
		switch {
		case info.IsDir():
			return sink.mkdir(rel)
		case !info.Mode().IsRegular():
			result.warn(fmt.Sprintf("skipped non-regular entry %s", info.NameInArchive))
			return nil
		}
		member, err := info.Open()
		if err != nil {
			return services.Fail(services.CodeCorruptContainer, source, "open member", info.NameInArchive, err)
		}
		defer member.Close()
		return sink.write(ctx, rel, member)
	})
	if err != nil {
		result.fail(err)
	}
	return result.build()
}

// walk visits every entry in central-directory order without opening it.
// Coded errors returned by fn pass through untouched; anything else from the
// archive reader is a damaged container.
func (h *ZipHandler) walk(ctx context.Context, source string, fn func(archives.FileInfo) error) error {
	f, err := os.Open(source)
	if err != nil {
		return services.Fail(services.CodeNotFound, source, "open archive", "", err)
	}
	defer f.Close()

	err = archives.Zip{}.Extract(ctx, f, func(_ context.Context, info archives.FileInfo) error {
		return fn(info)
	})
	var coded perrors.PlatformError
	switch {
	case err == nil, errors.Is(err, fs.SkipAll):
		return nil
	case perrors.As(err, &coded):
		return coded
	case ctx.Err() != nil:
		return canceled(source, ctx.Err())
	case errors.Is(err, io.ErrUnexpectedEOF):
		return services.Fail(services.CodeCorruptContainer, source, "read zip archive", "archive is truncated", err)
	default:
		return services.Fail(services.CodeCorruptContainer, source, "read zip archive", "", err)
	}
}
