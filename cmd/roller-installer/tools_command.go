package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roller/internal/preflight"
)

type toolStatusJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Method      string `json:"method,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func newToolsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show how bchunk and ubi were resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tools, err := ctx.ensureTools()
			if err != nil {
				return err
			}
			statuses := tools.Statuses(cmd.Context())

			if jsonOut {
				payload := make([]toolStatusJSON, 0, len(statuses))
				for _, s := range statuses {
					entry := toolStatusJSON{
						Name:        s.Name,
						Description: s.Description,
						Available:   s.Available,
						Method:      s.Method,
						Detail:      s.Detail,
					}
					if s.Available {
						entry.Path = s.Command
					}
					payload = append(payload, entry)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			status := newStatusPrinter(out)

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				path := "-"
				method := "-"
				if s.Available {
					path = s.Command
					method = s.Method
				}
				rows = append(rows, []string{s.Name, yesNo(s.Available), method, path})
			}
			fmt.Fprintln(out, tableSpec{headers: []string{"Tool", "Available", "Method", "Path"}, rows: rows}.render())
			for _, s := range statuses {
				if !s.Available {
					status.line(s.Name, statusWarn, s.Detail)
				}
			}

			fmt.Fprintln(out)
			status.section("Directories")
			for _, check := range preflight.RunAll(cfg) {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				status.line(check.Name, kind, check.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print tool resolution as JSON")
	return cmd
}
