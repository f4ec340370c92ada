package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// renderTable writes header and rows as one table to w.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
