package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roller/internal/config"
	"roller/internal/logging"
	"roller/internal/services/ubi"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var tag string
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a ROLLER release with ubi",
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
			tools, err := ctx.ensureTools()
			if err != nil {
				return err
			}
			binding, err := tools.Fetcher(cmd.Context())
			if err != nil {
				return err
			}

			target := cfg.Paths.InstallDir
			if strings.TrimSpace(dir) != "" {
				target, err = config.ExpandPath(strings.TrimSpace(dir))
				if err != nil {
					return fmt.Errorf("resolve --dir: %w", err)
				}
			}
			release := cfg.Release.Tag
			if strings.TrimSpace(tag) != "" {
				release = strings.TrimSpace(tag)
			}

			client, err := ubi.New(binding.Path, ubi.WithLogger(logging.NewComponentLogger(logger, "ubi")))
			if err != nil {
				return err
			}
			req := ubi.Request{Project: cfg.Release.Repository, Tag: release, Dir: target}
			if err := client.Fetch(cmd.Context(), req); err != nil {
				return err
			}

			label := release
			if label == "" {
				label = "latest release"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %s (%s) into %s\n", cfg.Release.Repository, label, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Release tag to download (default: release.tag or latest)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to unpack into (default: paths.install_dir)")
	return cmd
}
