package extract

import "log/slog"

// Progress describes one completed file.
type Progress struct {
	Format string
	// Path is slash-separated and relative to the asset output directory.
	Path           string
	FilesExtracted int
	BytesExtracted int64
	// TotalFiles is zero when the handler cannot count members up front.
	TotalFiles int
}

// Options are per-call extraction settings.
type Options struct {
	Progress     func(Progress)
	ExtractAudio bool
	// AudioDir overrides <destination>/<audio_dir_name>.
	AudioDir string
	Logger   *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithProgress registers a callback invoked inline after every file.
func WithProgress(fn func(Progress)) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

// WithAudio requests CD audio tracks. An empty dir selects the default
// audio directory under the destination.
func WithAudio(dir string) Option {
	return func(o *Options) {
		o.ExtractAudio = true
		o.AudioDir = dir
	}
}

// WithLogger overrides the coordinator's logger for one call.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
