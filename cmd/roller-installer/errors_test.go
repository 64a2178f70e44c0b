package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	perrors "github.com/jmgilman/go/errors"

	"roller/internal/services"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("parse config: bad"), "parse config: bad"},
		{
			"coded",
			services.Fail(services.CodeCorruptContainer, "disc.iso", "read volume descriptors", "no primary volume descriptor", nil),
			"[CORRUPT_CONTAINER] disc.iso: read volume descriptors: no primary volume descriptor",
		},
		{"generic code", perrors.New(perrors.CodeConflict, "busy"), "[CONFLICT] busy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatError(tc.err); got != tc.want {
				t.Fatalf("formatError() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReportedErrorUnwraps(t *testing.T) {
	inner := services.Fail(services.CodeCanceled, "a.zip", "extract", "extraction canceled", context.Canceled)
	err := fmt.Errorf("wrapped: %w", reportedError{err: inner})
	if !isReported(err) {
		t.Fatal("expected wrapped reported error to be detected")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected cancellation to remain visible through reportedError")
	}
	if isReported(inner) {
		t.Fatal("plain errors are not reported")
	}
}
