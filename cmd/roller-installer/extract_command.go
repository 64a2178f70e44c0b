package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	perrors "github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"

	"roller/internal/destlock"
	"roller/internal/extract"
	"roller/internal/logging"
	"roller/internal/preflight"
	"roller/internal/staging"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var audio bool
	var audioDir string
	var jsonOut bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "extract SOURCE DEST",
		Short: "Extract the FATDATA asset directory into DEST",
		Long: "Extract the FATDATA directory from a ZIP archive, ISO image, or CUE/BIN disc\n" +
			"image into DEST/fatdata. DEST must be missing or empty.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			source := args[0]
			destination, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve destination: %w", err)
			}

			checks := append(preflight.RunAll(cfg), preflight.CheckDestination(destination))
			if failed := preflight.Failed(checks); len(failed) > 0 {
				details := make([]string, 0, len(failed))
				for _, check := range failed {
					details = append(details, check.Name+": "+check.Detail)
				}
				return perrors.New(perrors.CodeInvalidInput, "preflight failed: "+strings.Join(details, "; "))
			}

			cleaned := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, staging.DefaultMaxAge, logging.NewComponentLogger(logger, "staging"))
			if len(cleaned.Removed) > 0 {
				logger.Debug("reclaimed stale work directories", logging.Int("count", len(cleaned.Removed)))
			}

			lock, err := destlock.Acquire(cfg.Paths.StateDir, destination)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("destination lock release failed", logging.Error(err))
				}
			}()

			coordinator, err := ctx.coordinator()
			if err != nil {
				return err
			}

			var opts []extract.Option
			if audio || strings.TrimSpace(audioDir) != "" {
				opts = append(opts, extract.WithAudio(strings.TrimSpace(audioDir)))
			}
			var progress *progressReporter
			if !noProgress && !jsonOut && isTerminal(cmd.ErrOrStderr()) {
				progress = newProgressReporter(cmd.ErrOrStderr())
				opts = append(opts, extract.WithProgress(progress.update))
			}

			result, err := coordinator.Extract(cmd.Context(), source, destination, opts...)
			if progress != nil {
				progress.finish()
			}
			if err != nil {
				return err
			}

			if jsonOut {
				if err := writeJSON(cmd, newExtractionJSON(result)); err != nil {
					return err
				}
				if !result.Success {
					return reportedError{err: result.Err}
				}
				return nil
			}

			printExtractionSummary(cmd, result)
			if !result.Success {
				return result.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&audio, "audio", false, "Also copy CD audio tracks (CUE/BIN sources only)")
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Directory for audio tracks (implies --audio; default DEST/audio)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func printExtractionSummary(cmd *cobra.Command, r extract.Result) {
	out := cmd.OutOrStdout()
	status := newStatusPrinter(out)
	for _, warning := range r.Warnings {
		status.line("Warning", statusWarn, warning)
	}
	if !r.Success {
		return
	}

	rows := [][]string{
		{"Format", r.Format},
		{"Output", r.AssetPath},
		{"Destination", r.Destination},
		{"Files", strconv.Itoa(r.FilesExtracted)},
		{"Size", humanize.Bytes(uint64(r.BytesExtracted))},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	if len(r.AudioTracks) > 0 {
		rows = append(rows, []string{"Audio tracks", strconv.Itoa(len(r.AudioTracks))})
	}
	fmt.Fprintln(out, tableSpec{headers: []string{"Extraction", "Value"}, rows: rows}.render())
	fmt.Fprintf(out, "Extracted %s into %s\n", pluralFiles(r.FilesExtracted), r.Destination)
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return humanize.Comma(int64(n)) + " files"
}
