package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"roller/internal/extract"
)

// progressReporter draws a terminal bar fed by extraction progress
// callbacks. The bar is created on the first callback because the total is
// only known once the handler has listed the container.
type progressReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out}
}

func (p *progressReporter) update(pr extract.Progress) {
	if p.bar == nil {
		total := -1
		if pr.TotalFiles > 0 {
			total = pr.TotalFiles
		}
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Extracting"),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer: "█", SaucerHead: "█", SaucerPadding: "░",
				BarStart: "[", BarEnd: "]",
			}),
		)
	}
	p.bar.Describe(fmt.Sprintf("Extracting %s (%s)", pr.Format, humanize.Bytes(uint64(pr.BytesExtracted))))
	_ = p.bar.Set(pr.FilesExtracted)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
