package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableSpec is a rounded go-pretty table. Short rows are padded with empty
// cells; numeric columns listed in rightAlign are right-aligned.
type tableSpec struct {
	headers    []string
	rows       [][]string
	rightAlign []int
	footer     []string
}

func (s tableSpec) render() string {
	width := len(s.headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(toRow(s.headers, width))
	for _, row := range s.rows {
		tw.AppendRow(toRow(row, width))
	}
	if len(s.footer) > 0 {
		tw.AppendFooter(toRow(s.footer, width))
	}

	configs := make([]table.ColumnConfig, 0, len(s.rightAlign))
	for _, col := range s.rightAlign {
		if col < 0 || col >= width {
			continue
		}
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
