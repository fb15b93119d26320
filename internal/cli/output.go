package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/spektr-org/paylens/engine"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// writeCSV writes a header row followed by rows.
func writeCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// renderTable draws a borderless text table.
func renderTable(w io.Writer, t *engine.TableData) {
	if len(t.Rows) == 0 {
		return
	}
	align := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		align[i] = tablewriter.ALIGN_LEFT
		if c.Align == "right" {
			align[i] = tablewriter.ALIGN_RIGHT
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Headers())
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnAlignment(align)
	table.AppendBulk(t.Rows)
	table.Render()
}

// simpleTable builds a TableData from string rows. Columns at the indices in
// right are right-aligned.
func simpleTable(headers []string, rows [][]string, right ...int) *engine.TableData {
	t := &engine.TableData{Rows: rows}
	for _, h := range headers {
		t.Columns = append(t.Columns, engine.Column{Key: h, Label: h, Align: "left"})
	}
	for _, i := range right {
		t.Columns[i].Align = "right"
	}
	return t
}
