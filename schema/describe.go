package schema

import (
	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// DESCRIBE — Dataset metadata for the capability prompt
// ============================================================================
// What the language-generation service sees: column names and types, the
// department and role vocabularies, the row count and a handful of sample
// rows. Never the full dataset.
// ============================================================================

// ColumnMeta describes one canonical column.
type ColumnMeta struct {
	Key         string            `json:"key"`
	DisplayName string            `json:"displayName"`
	Type        engine.ColumnType `json:"type"`
	Required    bool              `json:"required"`
}

// Description is the row-light metadata of a Dataset.
type Description struct {
	RowCount    int          `json:"rowCount"`
	Columns     []ColumnMeta `json:"columns"`
	Departments []string     `json:"departments"`
	Roles       []string     `json:"roles"`
	Locations   []string     `json:"locations,omitempty"`
	Levels      []string     `json:"levels,omitempty"`
	SampleRows  []engine.Row `json:"sampleRows"`
}

// DescribeOptions controls sampling.
type DescribeOptions struct {
	SampleRows  int  // rows to include; 0 = none
	RedactNames bool // replace names with "Employee N"
}

// DefaultDescribeOptions returns the defaults used by the capability interpreter.
func DefaultDescribeOptions() DescribeOptions {
	return DescribeOptions{SampleRows: 3, RedactNames: true}
}

// Describe builds a Description of ds. Sample rows are spread across the
// dataset (first, middle, last ...) so one department does not dominate.
func Describe(ds *engine.Dataset, opts ...DescribeOptions) Description {
	opt := DefaultDescribeOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	required := make(map[string]bool, len(engine.RequiredColumns))
	for _, c := range engine.RequiredColumns {
		required[c] = true
	}

	columns := ds.Columns()
	d := Description{
		RowCount:    ds.Len(),
		Departments: ds.Departments(),
		Roles:       ds.Roles(),
		SampleRows:  []engine.Row{},
	}
	for _, c := range columns {
		d.Columns = append(d.Columns, ColumnMeta{
			Key:         c,
			DisplayName: engine.LabelForColumn(c),
			Type:        engine.TypeOf(c),
			Required:    required[c],
		})
	}
	if ds.HasColumn(engine.ColLocation) {
		d.Locations = engine.UniqueValues(ds, engine.ColLocation)
	}
	if ds.HasColumn(engine.ColLevel) {
		d.Levels = engine.UniqueValues(ds, engine.ColLevel)
	}

	for n, i := range sampleIndices(ds.Len(), opt.SampleRows) {
		row := engine.RecordRow(ds.Record(i), columns)
		if opt.RedactNames {
			row[engine.ColName] = engine.Text(redactedName(n + 1))
		}
		d.SampleRows = append(d.SampleRows, row)
	}
	return d
}

// sampleIndices picks k evenly spaced indices out of n, in ascending order.
func sampleIndices(n, k int) []int {
	if k <= 0 || n == 0 {
		return nil
	}
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if k == 1 {
		return []int{0}
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = i * (n - 1) / (k - 1)
	}
	return out
}

func redactedName(n int) string {
	return "Employee " + engine.FormatInt(n)
}
