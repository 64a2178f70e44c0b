package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"roller/internal/logging"
	"roller/internal/services"
)

// sink writes extracted members below a single output root. Paths are
// resolved through a bound filesystem, so nothing lands outside the root
// even if a caller forgets to clean a name.
type sink struct {
	fs      billy.Filesystem
	root    string
	format  string
	source  string
	total   int
	result  *resultBuilder
	opts    Options
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func newSink(root, format, source string, result *resultBuilder, opts Options) (*sink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &sink{
		fs:      osfs.New(root, osfs.WithBoundOS()),
		root:    root,
		format:  format,
		source:  source,
		result:  result,
		opts:    opts,
		logger:  logger,
		sampler: logging.NewProgressSampler(5),
	}, nil
}

// expect records how many files the handler is about to write.
func (s *sink) expect(total int) { s.total = total }

func (s *sink) mkdir(rel string) error {
	if rel == "" {
		return nil
	}
	if err := s.fs.MkdirAll(rel, 0o755); err != nil {
		return services.Fail(services.CodeInternal, s.source, "create directory", rel, err)
	}
	return nil
}

// write streams r into rel. Cancellation is checked before the file is
// opened; a file already in flight is finished.
func (s *sink) write(ctx context.Context, rel string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return canceled(s.source, err)
	}
	if dir := path.Dir(rel); dir != "." {
		if err := s.mkdir(dir); err != nil {
			return err
		}
	}
	f, err := s.fs.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Fail(services.CodeInternal, s.source, "create file", rel, err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return canceled(s.source, ctxErr)
		}
		return services.Fail(services.CodeCorruptContainer, s.source, "read member", rel, err)
	}

	s.result.addFile(n)
	files, bytes := s.result.r.FilesExtracted, s.result.r.BytesExtracted
	if s.sampler.ShouldLogCount(int64(files), int64(s.total), s.format) {
		s.logger.Debug("extraction progress",
			logging.Int("files", files),
			logging.Int("total", s.total),
			logging.Int64("bytes", bytes),
			logging.String("path", rel),
		)
	}
	if s.opts.Progress != nil {
		s.opts.Progress(Progress{
			Format:         s.format,
			Path:           rel,
			FilesExtracted: files,
			BytesExtracted: bytes,
			TotalFiles:     s.total,
		})
	}
	return nil
}

func canceled(source string, err error) error {
	return services.Fail(services.CodeCanceled, source, "extract", "extraction canceled", err)
}
