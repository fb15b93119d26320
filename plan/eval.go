package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// EVALUATOR — Runs a validated plan over a RecordView
// ============================================================================
// Pipeline mirrors the step list:
//   load view → filter → group_by + aggregate run → sort → limit
//
// The evaluator reads the view into result rows (copy-on-read) and never
// writes back. The context is checked between steps and every checkEvery
// rows; a panic inside a step becomes an ExecutionError.
// ============================================================================

// checkEvery is how many rows a loop processes between context checks.
const checkEvery = 1024

// Table is the evaluated output of a plan.
type Table struct {
	Columns []string
	Rows    []engine.Row
}

// Eval validates doc against columns and runs it over view. An invalid plan
// returns a *RejectedError without touching the view.
func Eval(ctx context.Context, doc *Document, view engine.RecordView, columns []string) (tbl *Table, err error) {
	if err := Validate(doc, columns); err != nil {
		return nil, err
	}

	step := 0
	defer func() {
		if r := recover(); r != nil {
			tbl = nil
			err = &ExecutionError{Step: step, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	e := &evaluator{ctx: ctx, cols: append([]string(nil), columns...)}
	rows, err := e.load(view)
	if err != nil {
		return nil, &ExecutionError{Cause: err}
	}

	steps := doc.Steps
	for i := 0; i < len(steps); {
		step = i + 1
		if err := ctx.Err(); err != nil {
			return nil, &ExecutionError{Step: step, Cause: err}
		}

		next := i + 1
		st := steps[i]
		switch st.Op {
		case OpFilter:
			rows, err = e.filter(rows, st)
		case OpGroupBy, OpAggregate:
			var group []string
			j := i
			if st.Op == OpGroupBy {
				group = st.Columns
				j++
			}
			var aggs []Step
			for j < len(steps) && steps[j].Op == OpAggregate {
				aggs = append(aggs, steps[j])
				j++
			}
			rows, err = e.aggregate(rows, group, aggs)
			next = j
		case OpSort:
			e.sort(rows, st)
		case OpLimit:
			if len(rows) > st.N {
				rows = rows[:st.N]
			}
		default:
			err = fmt.Errorf("unknown op %q", st.Op)
		}
		if err != nil {
			return nil, &ExecutionError{Step: step, Cause: err}
		}
		i = next
	}

	return &Table{Columns: e.cols, Rows: rows}, nil
}

type evaluator struct {
	ctx  context.Context
	cols []string
}

// tick returns the context error every checkEvery iterations.
func (e *evaluator) tick(i int) error {
	if i%checkEvery == 0 {
		return e.ctx.Err()
	}
	return nil
}

func (e *evaluator) load(view engine.RecordView) ([]engine.Row, error) {
	rows := make([]engine.Row, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if err := e.tick(i); err != nil {
			return nil, err
		}
		rows = append(rows, engine.RecordRow(view.Record(i), e.cols))
	}
	return rows, nil
}

// ============================================================================
// FILTER
// ============================================================================

func (e *evaluator) filter(rows []engine.Row, st Step) ([]engine.Row, error) {
	out := make([]engine.Row, 0, len(rows))
	for i, row := range rows {
		if err := e.tick(i); err != nil {
			return nil, err
		}
		if cellMatches(row[st.Column], st.Cmp, st.Value) {
			out = append(out, row)
		}
	}
	return out, nil
}

func cellMatches(cell engine.Value, cmp string, want any) bool {
	switch cmp {
	case "in":
		list, _ := want.([]any)
		for _, v := range list {
			if cellMatches(cell, "==", v) {
				return true
			}
		}
		return false
	case "contains":
		s, _ := want.(string)
		return strings.Contains(strings.ToLower(cell.String()), strings.ToLower(s))
	}

	c := engine.Comparison(cmp)
	if cell.Numeric {
		f, ok := want.(float64)
		return ok && c.Holds(cell.Number, f)
	}
	s, ok := want.(string)
	if !ok {
		return false
	}
	// A missing date is neither before nor after any date.
	if cell.Text == "" && c != engine.CmpEQ && c != engine.CmpNE {
		return false
	}
	return c.HoldsText(cell.Text, s)
}

// ============================================================================
// GROUP + AGGREGATE
// ============================================================================

// aggregate runs one group_by (possibly empty) and the aggregates after it.
// Groups keep first-seen order.
func (e *evaluator) aggregate(rows []engine.Row, group []string, aggs []Step) ([]engine.Row, error) {
	type bucket struct {
		first engine.Row
		rows  []engine.Row
	}
	var order []string
	buckets := make(map[string]*bucket)
	for i, row := range rows {
		if err := e.tick(i); err != nil {
			return nil, err
		}
		key := groupKey(row, group)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: row}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, row)
	}

	// An ungrouped count over nothing is still one row: count 0.
	if len(rows) == 0 && len(group) == 0 && onlyCounts(aggs) {
		order = []string{""}
		buckets[""] = &bucket{first: engine.Row{}}
	}

	cols := append([]string(nil), group...)
	for _, a := range aggs {
		cols = append(cols, a.OutputName())
	}

	out := make([]engine.Row, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := make(engine.Row, len(cols))
		for _, c := range group {
			row[c] = b.first[c]
		}
		for _, a := range aggs {
			fn, err := engine.ParseAggFunc(a.Func)
			if err != nil {
				return nil, err
			}
			if fn == engine.AggCount {
				row[a.OutputName()] = engine.Number(float64(len(b.rows)))
				continue
			}
			values := make([]float64, 0, len(b.rows))
			for _, r := range b.rows {
				values = append(values, r[a.Column].Number)
			}
			row[a.OutputName()] = engine.Number(engine.RoundTo2(engine.AggregateValues(values, fn)))
		}
		out = append(out, row)
	}

	e.cols = cols
	return out, nil
}

func groupKey(row engine.Row, group []string) string {
	if len(group) == 0 {
		return ""
	}
	parts := make([]string, len(group))
	for i, c := range group {
		parts[i] = row[c].String()
	}
	return strings.Join(parts, "\x1f")
}

func onlyCounts(aggs []Step) bool {
	for _, a := range aggs {
		if a.Func != string(engine.AggCount) {
			return false
		}
	}
	return true
}

// ============================================================================
// SORT
// ============================================================================

// sort orders rows by one column, stably. Numbers compare numerically, text
// case-insensitively.
func (e *evaluator) sort(rows []engine.Row, st Step) {
	desc := st.SortOrder() == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][st.Column], rows[j][st.Column]
		if desc {
			a, b = b, a
		}
		if a.Numeric && b.Numeric {
			return a.Number < b.Number
		}
		return strings.ToLower(a.String()) < strings.ToLower(b.String())
	})
}
