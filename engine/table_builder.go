package engine

import "strings"

// ============================================================================
// TABLE BUILDER — Produces TableData from a QueryResult
// ============================================================================
// Renders result rows as display strings for text and CSV consumers.
// Numeric columns are right-aligned and grouped ("60,000"); salary-like
// columns carry the unit when one is given.
// ============================================================================

// Column describes one display column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Align string `json:"align"` // left | right
}

// TableData is a rendered result table.
type TableData struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary string     `json:"summary,omitempty"`
}

// Headers returns the column labels.
func (t *TableData) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

// BuildTable renders res. Raw reports unformatted cell values, used for
// machine-readable output such as CSV.
func BuildTable(res QueryResult, unit string, raw bool) *TableData {
	t := &TableData{
		Columns: make([]Column, 0, len(res.Columns)),
		Rows:    make([][]string, 0, len(res.Rows)),
	}
	if len(res.Rows) == 0 {
		return t
	}

	numeric := numericColumns(res)
	for _, key := range res.Columns {
		align := "left"
		if numeric[key] {
			align = "right"
		}
		t.Columns = append(t.Columns, Column{Key: key, Label: LabelForColumn(key), Align: align})
	}

	for _, row := range res.Rows {
		cells := make([]string, 0, len(res.Columns))
		for _, key := range res.Columns {
			cells = append(cells, formatCell(key, row[key], unit, raw))
		}
		t.Rows = append(t.Rows, cells)
	}

	if len(res.Rows) > 1 {
		t.Summary = FormatInt(len(res.Rows)) + " rows"
	}
	return t
}

// numericColumns marks columns whose every non-empty cell is a number.
func numericColumns(res QueryResult) map[string]bool {
	out := make(map[string]bool, len(res.Columns))
	for _, key := range res.Columns {
		seen, numeric := false, true
		for _, row := range res.Rows {
			v, ok := row[key]
			if !ok {
				continue
			}
			seen = true
			if !v.Numeric {
				numeric = false
				break
			}
		}
		out[key] = seen && numeric
	}
	return out
}

func formatCell(key string, v Value, unit string, raw bool) string {
	if !v.Numeric || raw {
		return v.String()
	}
	if isCountColumn(key) {
		return FormatNumber(v.Number)
	}
	return FormatAmount(v.Number, unit)
}

// isCountColumn reports whether key names a count rather than an amount.
func isCountColumn(key string) bool {
	return key == string(AggCount) || key == "employees" || strings.HasPrefix(key, "count_")
}
