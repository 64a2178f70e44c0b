package bchunk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	perrors "github.com/jmgilman/go/errors"

	"roller/internal/logging"
	"roller/internal/services"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom runner (primarily for tests).
func WithExecutor(runner services.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps bchunk invocations.
type Client struct {
	binary  string
	timeout time.Duration
	runner  services.Runner
	logger  *slog.Logger
}

// New constructs a bchunk client. A timeout of zero disables the limit.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("bchunk binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		runner:  services.NewRunner(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Split runs `bchunk -w BIN CUE BASENAME`. Outputs land next to basename as
// basenameNN.iso / .wav / .cdr. A non-zero exit yields CONVERSION_FAILED
// with the tool's stderr in the message and the error context.
func (c *Client) Split(ctx context.Context, binPath, cuePath, basename string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"-w", binPath, cuePath, basename}
	c.logger.Debug("running bchunk",
		logging.String("binary", c.binary),
		logging.String("bin", binPath),
		logging.String("cue", cuePath),
	)
	started := time.Now()
	res, err := c.runner.Run(runCtx, c.binary, args...)
	if err == nil {
		c.logger.Debug("bchunk finished", logging.Duration("elapsed", time.Since(started)))
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Fail(services.CodeCanceled, cuePath, "split image", "bchunk interrupted", ctxErr)
	}
	stderr := strings.TrimSpace(res.Stderr)
	message := fmt.Sprintf("bchunk exited with status %d", res.ExitCode)
	if runCtx.Err() != nil {
		message = fmt.Sprintf("bchunk timed out after %s", c.timeout)
	}
	if stderr != "" {
		message += ": " + stderr
	}
	failure := services.Fail(services.CodeConversionFailed, cuePath, "split image", message, err)
	if stderr != "" {
		return perrors.WithContext(failure, "stderr", stderr)
	}
	return failure
}

// Track is one file bchunk produced.
type Track struct {
	Number int
	Path   string
}

// Outputs groups the files produced by one or more Split runs.
type Outputs struct {
	Data  []Track
	Audio []Track
}

// Collect scans dir for files named basenameNN.{iso,wav,cdr}, sorted by
// track number.
func Collect(dir, basename string) (Outputs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Outputs{}, err
	}
	var out Outputs
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, basename) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		number, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, basename), filepath.Ext(name)))
		if err != nil {
			continue
		}
		track := Track{Number: number, Path: filepath.Join(dir, name)}
		switch ext {
		case ".iso":
			out.Data = append(out.Data, track)
		case ".wav", ".cdr":
			out.Audio = append(out.Audio, track)
		}
	}
	byNumber := func(tracks []Track) {
		sort.Slice(tracks, func(i, j int) bool { return tracks[i].Number < tracks[j].Number })
	}
	byNumber(out.Data)
	byNumber(out.Audio)
	return out, nil
}
