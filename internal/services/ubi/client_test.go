package ubi_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roller/internal/services"
	"roller/internal/services/ubi"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		req  ubi.Request
		want string
	}{
		{"latest", ubi.Request{Project: "FatalDecomp/ROLLER", Dir: "/opt/roller"}, "--project FatalDecomp/ROLLER --in /opt/roller --extract-all"},
		{"tagged", ubi.Request{Project: "FatalDecomp/ROLLER", Tag: "v0.2.0", Dir: "/opt/roller"}, "--project FatalDecomp/ROLLER --tag v0.2.0 --in /opt/roller --extract-all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(ubi.Args(tt.req), " "); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestFetchCreatesDirectoryAndRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "install")
	var gotBinary string
	runner := services.RunnerFunc(func(ctx context.Context, binary string, args ...string) (services.CommandResult, error) {
		gotBinary = binary
		return services.CommandResult{}, nil
	})
	client, err := ubi.New("/usr/local/bin/ubi", ubi.WithExecutor(runner))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Fetch(context.Background(), ubi.Request{Project: "FatalDecomp/ROLLER", Dir: dir}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotBinary != "/usr/local/bin/ubi" {
		t.Fatalf("unexpected binary %q", gotBinary)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected install dir to exist: %v", err)
	}
}

func TestFetchFailureCarriesStderr(t *testing.T) {
	runner := services.RunnerFunc(func(ctx context.Context, binary string, args ...string) (services.CommandResult, error) {
		return services.CommandResult{Stderr: "no release matching linux-x64", ExitCode: 1}, errors.New("exit status 1")
	})
	client, _ := ubi.New("ubi", ubi.WithExecutor(runner))
	err := client.Fetch(context.Background(), ubi.Request{Project: "FatalDecomp/ROLLER", Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no release matching") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFetchValidatesRequest(t *testing.T) {
	client, _ := ubi.New("ubi")
	if err := client.Fetch(context.Background(), ubi.Request{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for missing project")
	}
	if err := client.Fetch(context.Background(), ubi.Request{Project: "a/b"}); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
