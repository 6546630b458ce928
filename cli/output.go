package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/asaidimu/rowql/core/row"
	"github.com/olekukonko/tablewriter"
)

func writeRows(w io.Writer, rows []row.Row, format string) error {
	switch format {
	case FormatTable:
		return writeTable(w, rows)
	case FormatJSON, "":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

// writeTable renders rows as a table. The columns are every key seen, in the
// order first seen; a row without a key leaves the cell blank.
func writeTable(w io.Writer, rows []row.Row) error {
	var columns []string
	seen := map[string]bool{}
	for _, r := range rows {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(columns)
	for _, r := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := r.Get(col); ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}
