package engine

import (
	"strings"
)

// ============================================================================
// FILTERS — Dimension and measure filtering via RecordView
// ============================================================================
// Single-pass filters. Each returns a SubView in parent order.
// ============================================================================

// Filters restrict records by dimension values.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ApplyFilters returns a view of records matching all dimension filters.
// Matching is case-insensitive. Empty filter returns the original view.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	return FilterFunc(view, func(i int) bool {
		for dim, set := range sets {
			if !set[strings.ToLower(view.Dimension(i, dim))] {
				return false
			}
		}
		return true
	})
}

// FilterFunc returns a view of the records for which keep returns true.
func FilterFunc(view RecordView, keep func(i int) bool) RecordView {
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// ============================================================================
// MEASURE COMPARISONS
// ============================================================================

// Comparison is a binary comparison operator.
type Comparison string

const (
	CmpEQ Comparison = "=="
	CmpNE Comparison = "!="
	CmpGT Comparison = ">"
	CmpGE Comparison = ">="
	CmpLT Comparison = "<"
	CmpLE Comparison = "<="
)

// Valid reports whether c is a known operator.
// Holds evaluates a <c> b.
func (c Comparison) Holds(a, b float64) bool {
	switch c {
	case CmpEQ:
		return a == b
	case CmpNE:
		return a != b
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b
	}
	return false
}

// HoldsText evaluates a <c> b lexically, case-insensitive.
func (c Comparison) HoldsText(a, b string) bool {
	cmp := strings.Compare(strings.ToLower(a), strings.ToLower(b))
	switch c {
	case CmpEQ:
		return cmp == 0
	case CmpNE:
		return cmp != 0
	case CmpGT:
		return cmp > 0
	case CmpGE:
		return cmp >= 0
	case CmpLT:
		return cmp < 0
	case CmpLE:
		return cmp <= 0
	}
	return false
}

// Phrase returns the English wording of c for answer texts.
func (c Comparison) Phrase() string {
	switch c {
	case CmpGT:
		return "more than"
	case CmpGE:
		return "at least"
	case CmpLT:
		return "less than"
	case CmpLE:
		return "at most"
	case CmpEQ:
		return "exactly"
	case CmpNE:
		return "other than"
	}
	return string(c)
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
