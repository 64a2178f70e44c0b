package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLocateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "locate SOURCE",
		Short: "Print the asset directory path found inside SOURCE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := ctx.coordinator()
			if err != nil {
				return err
			}
			loc, err := coordinator.Locate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Format: %s\n", loc.Format)
			fmt.Fprintf(out, "Asset directory: %s\n", loc.AssetPath)
			return nil
		},
	}
}
