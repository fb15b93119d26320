package engine

// ============================================================================
// RECORD VIEW — Copy-on-read data access
// ============================================================================
// Interpreters never own or mutate the dataset. They read through views.
//
// Implementations:
//   Dataset:  the validated, immutable snapshot
//   SubView:  filtered or reordered subset (indices into parent)
//
// A SubView built by a filter keeps parent order, so "first in original
// order" is always position 0 of the filtered view.
// ============================================================================

// RecordView provides indexed access to records.
type RecordView interface {
	Len() int
	Record(index int) Record
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string
	MeasureKeys() []string
}

// ============================================================================
// DATASET
// ============================================================================

// Dataset is an ordered, immutable collection of Records.
// Optional columns not present in the source are omitted from Columns.
type Dataset struct {
	records  []Record
	optional []string
}

// NewDataset copies records into a new Dataset. optional lists the optional
// columns the source provided; unknown names are ignored.
func NewDataset(records []Record, optional []string) *Dataset {
	d := &Dataset{records: make([]Record, len(records))}
	copy(d.records, records)
	for _, col := range OptionalColumns {
		for _, o := range optional {
			if o == col {
				d.optional = append(d.optional, col)
				break
			}
		}
	}
	return d
}

func (d *Dataset) Len() int { return len(d.records) }

func (d *Dataset) Record(i int) Record {
	if i < 0 || i >= len(d.records) {
		return Record{}
	}
	return d.records[i]
}

func (d *Dataset) Dimension(i int, key string) string { return d.Record(i).Dimension(key) }
func (d *Dataset) Measure(i int, key string) float64  { return d.Record(i).Measure(key) }

// Records returns a copy of the underlying rows.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Columns returns required columns followed by the optional columns present.
func (d *Dataset) Columns() []string {
	cols := make([]string, 0, len(RequiredColumns)+len(d.optional))
	cols = append(cols, RequiredColumns...)
	return append(cols, d.optional...)
}

// HasColumn reports whether column is part of this dataset's schema.
func (d *Dataset) HasColumn(column string) bool {
	for _, c := range d.Columns() {
		if c == column {
			return true
		}
	}
	return false
}

func (d *Dataset) DimensionKeys() []string {
	var keys []string
	for _, c := range d.Columns() {
		if TypeOf(c) != TypeNumber {
			keys = append(keys, c)
		}
	}
	return keys
}

func (d *Dataset) MeasureKeys() []string { return []string{ColSalary} }

// Departments returns distinct departments in first-seen order.
func (d *Dataset) Departments() []string { return UniqueValues(d, ColDepartment) }

// Roles returns distinct roles in first-seen order.
func (d *Dataset) Roles() []string { return UniqueValues(d, ColRole) }

// Where returns a new Dataset holding the records that satisfy keep.
func (d *Dataset) Where(keep func(Record) bool) *Dataset {
	out := &Dataset{optional: d.optional}
	for _, r := range d.records {
		if keep(r) {
			out.records = append(out.records, r)
		}
	}
	return out
}

// ============================================================================
// SUB VIEW — filtered subset (index list, no data copy)
// ============================================================================

// SubView is a subset of a parent RecordView.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Record(i int) Record {
	if i < 0 || i >= len(v.indices) {
		return Record{}
	}
	return v.parent.Record(v.indices[i])
}

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
