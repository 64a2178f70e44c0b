package main

import (
	"errors"
	"fmt"

	perrors "github.com/jmgilman/go/errors"

	"roller/internal/services"
)

// reportedError marks a failure the command already rendered (for example
// as JSON on stdout). main exits non-zero without printing it again.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func isReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}

// formatError renders coded failures as "[CODE] message". Uncoded errors
// (flag parsing, config loading) are printed as-is.
func formatError(err error) string {
	if err == nil {
		return ""
	}
	code := services.Code(err)
	if code == "" || code == perrors.CodeUnknown {
		return err.Error()
	}
	return fmt.Sprintf("[%s] %s", code, services.ErrorMessage(err))
}
