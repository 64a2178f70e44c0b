package ubi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"roller/internal/logging"
	"roller/internal/services"
)

// Request describes one release download.
type Request struct {
	// Project is the GitHub owner/name, e.g. FatalDecomp/ROLLER.
	Project string
	// Tag selects a release; empty means the latest.
	Tag string
	// Dir receives the extracted release.
	Dir string
}

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

// Client runs ubi.
type Client struct {
	binary string
	runner services.Runner
	logger *slog.Logger
}

// New constructs a ubi client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ubi binary required")
	}
	client := &Client{binary: binary, runner: services.NewRunner(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Args returns the argument vector for req.
func Args(req Request) []string {
	args := []string{"--project", req.Project}
	if tag := strings.TrimSpace(req.Tag); tag != "" {
		args = append(args, "--tag", tag)
	}
	return append(args, "--in", req.Dir, "--extract-all")
}

// Fetch downloads and unpacks the release into req.Dir, creating it if
// needed.
func (c *Client) Fetch(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Project) == "" {
		return errors.New("ubi project required")
	}
	if strings.TrimSpace(req.Dir) == "" {
		return errors.New("ubi destination directory required")
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", req.Dir, err)
	}

	c.logger.Info("fetching release",
		logging.String("project", req.Project),
		logging.String("tag", req.Tag),
		logging.String("dir", req.Dir),
	)
	res, err := c.runner.Run(ctx, c.binary, Args(req)...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Fail(services.CodeCanceled, req.Project, "fetch release", "ubi interrupted", ctxErr)
	}
	message := fmt.Sprintf("ubi exited with status %d", res.ExitCode)
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		message += ": " + stderr
	}
	return services.Fail(services.CodeConversionFailed, req.Project, "fetch release", message, err)
}
