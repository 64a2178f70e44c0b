package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"roller/internal/logging"
	"roller/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories left behind by interrupted CUE/BIN extractions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if dryRun {
				dirs, err := staging.ListDirectories(cfg.Paths.WorkDir)
				if err != nil {
					return fmt.Errorf("list work directories: %w", err)
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No work directories found")
					return nil
				}
				var total int64
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					total += dir.Size
					rows = append(rows, []string{dir.Name, humanize.Time(dir.ModTime), humanize.Bytes(uint64(dir.Size))})
				}
				fmt.Fprintf(out, "Work directory: %s\n", cfg.Paths.WorkDir)
				fmt.Fprintln(out, tableSpec{
					headers:    []string{"Directory", "Modified", "Size"},
					rows:       rows,
					rightAlign: []int{2},
					footer:     []string{"Total", "", humanize.Bytes(uint64(total))},
				}.render())
				return nil
			}

			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logging.NewComponentLogger(logger, "staging"))
			fmt.Fprintf(out, "Removed %d work director%s\n", len(result.Removed), plural(len(result.Removed), "y", "ies"))
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d work directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", staging.DefaultMaxAge, "Only remove directories older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List work directories without removing anything")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
