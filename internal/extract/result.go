package extract

import (
	"fmt"
	"os"
	"time"

	perrors "github.com/jmgilman/go/errors"

	"roller/internal/services"
)

// Result is the outcome of one extraction. Success implies at least one
// file and no error; a failed result always carries Err.
type Result struct {
	Success        bool
	Destination    string
	AssetPath      string
	FilesExtracted int
	BytesExtracted int64
	Warnings       []string
	AudioTracks    []string
	Err            error
	Format         string
	Source         string
	ID             string
	Duration       time.Duration
}

// Kind returns the failure code carried by err, or "" for nil.
func Kind(err error) perrors.ErrorCode {
	return services.Code(err)
}

type resultBuilder struct {
	r   Result
	err error
}

func newResult(format, source, destination, assetPath string) *resultBuilder {
	return &resultBuilder{r: Result{
		Format:      format,
		Source:      source,
		Destination: destination,
		AssetPath:   assetPath,
	}}
}

func failedResult(format, source, destination string, err error) Result {
	return newResult(format, source, destination, "").fail(err).build()
}

func (b *resultBuilder) fail(err error) *resultBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *resultBuilder) failed() bool { return b.err != nil }

func (b *resultBuilder) warn(msg string) {
	b.r.Warnings = append(b.r.Warnings, msg)
}

func (b *resultBuilder) addFile(n int64) {
	b.r.FilesExtracted++
	b.r.BytesExtracted += n
}

func (b *resultBuilder) addAudio(path string) {
	b.r.AudioTracks = append(b.r.AudioTracks, path)
}

// merge folds a nested result (the ISO pass of a CUE/BIN extraction) into b.
func (b *resultBuilder) merge(inner Result) {
	b.r.FilesExtracted += inner.FilesExtracted
	b.r.BytesExtracted += inner.BytesExtracted
	b.r.Warnings = append(b.r.Warnings, inner.Warnings...)
	if inner.AssetPath != "" {
		b.r.AssetPath = inner.AssetPath
	}
	if inner.Err != nil {
		b.fail(inner.Err)
	}
}

func (b *resultBuilder) build() Result {
	audio := b.validAudio()
	r := b.r
	r.Warnings = append([]string(nil), r.Warnings...)
	r.AudioTracks = audio
	r.Err = b.err
	if r.Err == nil && r.FilesExtracted == 0 {
		r.Err = services.Fail(services.CodeAssetDirectoryNotFound, r.Source, "extract asset directory", "asset directory contains no files", nil)
	}
	r.Success = r.Err == nil
	return r
}

// validAudio drops tracks that vanished or are empty, recording a warning
// for each.
func (b *resultBuilder) validAudio() []string {
	if len(b.r.AudioTracks) == 0 {
		return nil
	}
	out := make([]string, 0, len(b.r.AudioTracks))
	for _, track := range b.r.AudioTracks {
		info, err := os.Stat(track)
		switch {
		case err != nil:
			b.r.Warnings = append(b.r.Warnings, fmt.Sprintf("audio track %s missing after extraction", track))
		case info.Size() == 0:
			b.r.Warnings = append(b.r.Warnings, fmt.Sprintf("audio track %s is empty", track))
		default:
			out = append(out, track)
		}
	}
	return out
}
