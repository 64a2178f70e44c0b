package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmgilman/go/exec"
)

// CommandResult captures the outcome of one external command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts external command execution for testability.
//
// Run returns a non-nil error when the command could not start, exited
// non-zero, or was stopped by ctx. The result is populated in every case the
// process actually ran; ExitCode is -1 when it never started.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) (CommandResult, error)
}

// RunnerFunc adapts an ordinary function to the Runner interface.
type RunnerFunc func(ctx context.Context, binary string, args ...string) (CommandResult, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, binary string, args ...string) (CommandResult, error) {
	return f(ctx, binary, args...)
}

// NewRunner returns the default Runner. Output is captured, never passed
// through to the terminal, and the child inherits the parent environment.
func NewRunner() Runner {
	return commandRunner{}
}

// waitGrace bounds how long Run keeps waiting after ctx is done. A killed
// wrapper script can leave a grandchild holding the output pipes open, and
// the underlying command only returns once those close.
var waitGrace = 250 * time.Millisecond

type commandRunner struct{}

type runOutcome struct {
	res *exec.Result
	err error
}

func (commandRunner) Run(ctx context.Context, binary string, args ...string) (CommandResult, error) {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, binary)
	argv = append(argv, args...)

	cmd := exec.New(exec.WithInheritEnv(), exec.WithDisableColors()).WithContext(ctx)
	done := make(chan runOutcome, 1)
	go func() {
		res, err := cmd.Run(argv...)
		done <- runOutcome{res: res, err: err}
	}()

	var outcome runOutcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		timer := time.NewTimer(waitGrace)
		defer timer.Stop()
		select {
		case outcome = <-done:
		case <-timer.C:
			return CommandResult{ExitCode: -1}, fmt.Errorf("run %s: %w", binary, ctx.Err())
		}
	}

	out := CommandResult{ExitCode: -1}
	if outcome.res != nil {
		out = CommandResult{Stdout: outcome.res.Stdout, Stderr: outcome.res.Stderr, ExitCode: outcome.res.ExitCode}
	}
	if outcome.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("run %s: %w", binary, ctxErr)
		}
		return out, outcome.err
	}
	return out, nil
}
