package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
	// alignWrap left-aligns a free-text column and wraps it at wrapWidth.
	alignWrap
)

const wrapWidth = 48

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		cc := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) {
			switch aligns[i] {
			case alignRight:
				cc.Align = text.AlignRight
			case alignWrap:
				cc.WidthMax = wrapWidth
				cc.WidthMaxEnforcer = text.WrapSoft
			}
		}
		configs = append(configs, cc)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
