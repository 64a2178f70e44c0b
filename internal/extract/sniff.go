package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mholt/archives"

	"roller/internal/config"
	"roller/internal/iso9660"
)

// sniffContent describes what source looks like by content alone, or ""
// when nothing is recognized.
func sniffContent(ctx context.Context, source string) string {
	if looksLikeZip(ctx, source) {
		return "a ZIP archive"
	}
	for _, size := range config.SectorSizes {
		if !probeISO(source, size) {
			continue
		}
		if size == iso9660.LogicalBlockSize {
			return "an ISO 9660 image"
		}
		return fmt.Sprintf("an ISO 9660 image with %d-byte sectors", size)
	}
	if sheetLooksValid(source) {
		return "a CUE sheet"
	}

	f, err := os.Open(source)
	if err != nil {
		return ""
	}
	defer f.Close()
	format, _, err := archives.Identify(ctx, "", f)
	if err != nil || format == nil {
		return ""
	}
	ext := strings.TrimPrefix(format.Extension(), ".")
	if ext == "" {
		return ""
	}
	return fmt.Sprintf("a %s file", ext)
}
