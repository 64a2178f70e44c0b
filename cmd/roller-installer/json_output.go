package main

import (
	"encoding/json"

	perrors "github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"

	"roller/internal/extract"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type extractionJSON struct {
	ID             string                 `json:"id"`
	Success        bool                   `json:"success"`
	Format         string                 `json:"format,omitempty"`
	Source         string                 `json:"source"`
	Destination    string                 `json:"destination"`
	AssetPath      string                 `json:"asset_path,omitempty"`
	FilesExtracted int                    `json:"files_extracted"`
	BytesExtracted int64                  `json:"bytes_extracted"`
	AudioTracks    []string               `json:"audio_tracks"`
	Warnings       []string               `json:"warnings"`
	DurationMillis int64                  `json:"duration_ms"`
	Error          *perrors.ErrorResponse `json:"error,omitempty"`
}

func newExtractionJSON(r extract.Result) extractionJSON {
	out := extractionJSON{
		ID:             r.ID,
		Success:        r.Success,
		Format:         r.Format,
		Source:         r.Source,
		Destination:    r.Destination,
		AssetPath:      r.AssetPath,
		FilesExtracted: r.FilesExtracted,
		BytesExtracted: r.BytesExtracted,
		AudioTracks:    r.AudioTracks,
		Warnings:       r.Warnings,
		DurationMillis: r.Duration.Milliseconds(),
		Error:          perrors.ToJSON(r.Err),
	}
	if out.AudioTracks == nil {
		out.AudioTracks = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}
