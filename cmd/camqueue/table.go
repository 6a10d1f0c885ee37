package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"camqueue/internal/queue"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// statusColors is applied to STATUS columns when stdout is a terminal, so a
// glance at the console shows the stuck or failed job.
var statusColors = map[string]text.Colors{
	string(queue.StatusRunning):   {text.FgGreen},
	string(queue.StatusCompleted): {text.FgHiGreen},
	string(queue.StatusFailed):    {text.FgRed},
	string(queue.StatusSkipped):   {text.FgYellow},
	string(queue.StatusHeld):      {text.FgYellow},
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	statusColumn := -1
	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
		if strings.EqualFold(h, "status") {
			statusColumn = i
		}
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	colorize := stdoutIsTerminal()
	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if i < len(aligns) && aligns[i] == alignRight {
			cfg.Align = text.AlignRight
		}
		if i == statusColumn && colorize {
			cfg.Transformer = colorStatusCell
		}
		columnConfigs = append(columnConfigs, cfg)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func colorStatusCell(val interface{}) string {
	status, ok := val.(string)
	if !ok {
		return fmt.Sprint(val)
	}
	if colors, found := statusColors[status]; found {
		return colors.Sprint(status)
	}
	return status
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
