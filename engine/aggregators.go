package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, aggregation, ranking via RecordView
// ============================================================================
// Every sort here is stable: equal values keep original row order, which is
// the tie-break rule for rankings.
// ============================================================================

// AggFunc names an aggregate function.
type AggFunc string

const (
	AggMean   AggFunc = "mean"
	AggMedian AggFunc = "median"
	AggSum    AggFunc = "sum"
	AggCount  AggFunc = "count"
	AggMin    AggFunc = "min"
	AggMax    AggFunc = "max"
)

// AggFuncs lists every supported aggregate in display order.
var AggFuncs = []AggFunc{AggMean, AggMedian, AggSum, AggCount, AggMin, AggMax}

// ParseAggFunc accepts canonical names and common aliases.
func ParseAggFunc(s string) (AggFunc, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "avg", "average":
		return AggMean, nil
	case "median":
		return AggMedian, nil
	case "sum", "total":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "min", "minimum":
		return AggMin, nil
	case "max", "maximum":
		return AggMax, nil
	}
	return "", fmt.Errorf("unknown aggregate %q", s)
}

// Aggregate applies fn to a measure across a view.
func Aggregate(view RecordView, measure string, fn AggFunc) float64 {
	switch fn {
	case AggMean:
		return AvgMeasure(view, measure)
	case AggMedian:
		return MedianMeasure(view, measure)
	case AggSum:
		return SumMeasure(view, measure)
	case AggCount:
		return float64(view.Len())
	case AggMin:
		return MinMeasure(view, measure)
	case AggMax:
		return MaxMeasure(view, measure)
	}
	return 0
}

// AggregateValues applies fn to a plain slice of numbers.
func AggregateValues(values []float64, fn AggFunc) float64 {
	if fn == AggCount {
		return float64(len(values))
	}
	if len(values) == 0 {
		return 0
	}
	switch fn {
	case AggMean:
		return sum(values) / float64(len(values))
	case AggMedian:
		return median(values)
	case AggSum:
		return sum(values)
	case AggMin:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m
	case AggMax:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m
	}
	return 0
}

// ============================================================================
// GROUPING
// ============================================================================

// Group is an aggregated slice of a view.
type Group struct {
	Key   string     `json:"key"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
	View  RecordView `json:"-"`
}

// GroupAndAggregate groups by one dimension (empty = single group), applies
// fn to measure, then sorts and limits.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(view RecordView, groupBy string, measure string, fn AggFunc, sortBy string, limit int) []Group {
	if view.Len() == 0 {
		return nil
	}

	var groups []Group
	if groupBy == "" {
		groups = []Group{{Key: "all", View: view}}
	} else {
		groups = GroupBy(view, groupBy)
	}

	for i := range groups {
		groups[i].Count = groups[i].View.Len()
		groups[i].Value = Aggregate(groups[i].View, measure, fn)
	}

	SortGroups(groups, sortBy)

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// GroupBy splits a view by dimension value, in first-seen order.
func GroupBy(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:  key,
			View: newSubView(view, grouped[key]),
		})
	}
	return groups
}

// ============================================================================
// MEASURES
// ============================================================================

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// AvgMeasure computes the mean of a named measure.
func AvgMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	return SumMeasure(view, measure) / float64(n)
}

// MedianMeasure computes the median of a named measure.
func MedianMeasure(view RecordView, measure string) float64 {
	return median(measureValues(view, measure))
}

// MaxMeasure returns the largest value of a named measure.
func MaxMeasure(view RecordView, measure string) float64 {
	if view.Len() == 0 {
		return 0
	}
	m := math.Inf(-1)
	for i := 0; i < view.Len(); i++ {
		m = math.Max(m, view.Measure(i, measure))
	}
	return m
}

// MinMeasure returns the smallest value of a named measure.
func MinMeasure(view RecordView, measure string) float64 {
	if view.Len() == 0 {
		return 0
	}
	m := math.Inf(1)
	for i := 0; i < view.Len(); i++ {
		m = math.Min(m, view.Measure(i, measure))
	}
	return m
}

// StdDevMeasure returns the sample standard deviation (n-1), 0 below 2 rows.
func StdDevMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n < 2 {
		return 0
	}
	mean := AvgMeasure(view, measure)
	var ss float64
	for i := 0; i < n; i++ {
		d := view.Measure(i, measure) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func measureValues(view RecordView, measure string) []float64 {
	vals := make([]float64, view.Len())
	for i := range vals {
		vals[i] = view.Measure(i, measure)
	}
	return vals
}

func sum(values []float64) float64 {
	var t float64
	for _, v := range values {
		t += v
	}
	return t
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ============================================================================
// RANKING + SORTING
// ============================================================================

// TopN returns the n records with the highest measure (lowest when lowest is
// set). Ties keep original order. n <= 0 returns every record ranked.
func TopN(view RecordView, measure string, n int, lowest bool) RecordView {
	indices := make([]int, view.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		va, vb := view.Measure(indices[a], measure), view.Measure(indices[b], measure)
		if lowest {
			return va < vb
		}
		return va > vb
	})
	if n > 0 && len(indices) > n {
		indices = indices[:n]
	}
	return newSubView(view, indices)
}

// SortGroups sorts groups by the given mode. Unknown modes keep group order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "label_asc", "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) > strings.ToLower(groups[j].Key) })
	}
}

// UniqueValues returns distinct non-empty values for a dimension, first-seen order.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats with comma thousands separators, dropping decimals
// for whole values and keeping two otherwise.
func FormatNumber(v float64) string {
	v = RoundTo2(v)
	negative := v < 0
	if negative {
		v = -v
	}

	var s string
	if v == math.Trunc(v) {
		s = groupThousands(strconv.FormatFloat(v, 'f', 0, 64))
	} else {
		whole := math.Trunc(v)
		frac := strconv.FormatFloat(v-whole, 'f', 2, 64) // "0.xx"
		s = groupThousands(strconv.FormatFloat(whole, 'f', 0, 64)) + frac[1:]
	}
	if negative {
		s = "-" + s
	}
	return s
}

// FormatAmount formats a salary amount with an optional unit suffix.
func FormatAmount(v float64, unit string) string {
	if unit == "" {
		return FormatNumber(v)
	}
	return FormatNumber(v) + " " + unit
}

// FormatPercent formats a percentage with one decimal.
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	return groupThousands(strconv.Itoa(n))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForAggregation returns a human-readable label for an aggregate.
func LabelForAggregation(fn AggFunc) string {
	switch fn {
	case AggMean:
		return "Average"
	case AggMedian:
		return "Median"
	case AggSum:
		return "Total"
	case AggCount:
		return "Count"
	case AggMin:
		return "Minimum"
	case AggMax:
		return "Maximum"
	}
	return "Value"
}

// LabelForColumn returns a display label: "employment_date" → "Employment date".
func LabelForColumn(column string) string {
	if column == "" {
		return ""
	}
	s := strings.ReplaceAll(column, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
