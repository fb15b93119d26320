package plan

import (
	"time"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// VALIDATION — Column allow-list and step ordering
// ============================================================================
// Runs after the CUE shape check. Tracks which columns exist at each step:
//
//   start            dataset columns (typed via engine.TypeOf)
//   group_by         pending grouping; the next steps must be aggregates
//   aggregate run    group columns + every aggregate output
//
// A plan that references anything else is rejected before evaluation.
// ============================================================================

var aggFuncs = map[string]bool{}

func init() {
	for _, fn := range engine.AggFuncs {
		aggFuncs[string(fn)] = true
	}
}

// Validate checks doc against the columns of the dataset it will run on.
func Validate(doc *Document, columns []string) error {
	if doc == nil || len(doc.Steps) == 0 {
		return rejectf(StageShape, 0, "plan has no steps")
	}
	if len(doc.Steps) > MaxSteps {
		return rejectf(StageShape, 0, "plan has %d steps, at most %d allowed", len(doc.Steps), MaxSteps)
	}

	s := &scope{types: make(map[string]engine.ColumnType, len(columns))}
	for _, c := range columns {
		s.types[c] = engine.TypeOf(c)
	}
	for i, st := range doc.Steps {
		if err := s.check(i+1, st); err != nil {
			return err
		}
	}
	if s.inAggregate {
		s.finishAggregate()
	}
	if s.pending != nil {
		return rejectf(StageColumns, len(doc.Steps), "group_by must be followed by aggregate")
	}
	return nil
}

type scope struct {
	types       map[string]engine.ColumnType
	pending     []string // group_by columns awaiting their aggregates
	inAggregate bool
	outputs     map[string]engine.ColumnType
}

func (s *scope) finishAggregate() {
	s.types = s.outputs
	s.outputs = nil
	s.pending = nil
	s.inAggregate = false
}

func (s *scope) check(n int, st Step) error {
	if s.inAggregate && st.Op != OpAggregate {
		s.finishAggregate()
	}
	if s.pending != nil && !s.inAggregate && st.Op != OpAggregate {
		return rejectf(StageColumns, n, "%s between group_by and aggregate", st.Op)
	}

	switch st.Op {
	case OpFilter:
		return s.checkFilter(n, st)

	case OpGroupBy:
		if len(st.Columns) == 0 {
			return rejectf(StageColumns, n, "group_by needs at least one column")
		}
		seen := make(map[string]bool, len(st.Columns))
		for _, c := range st.Columns {
			typ, ok := s.types[c]
			if !ok {
				return rejectf(StageColumns, n, "unknown column %q", c)
			}
			if typ == engine.TypeNumber {
				return rejectf(StageColumns, n, "cannot group by numeric column %q", c)
			}
			if seen[c] {
				return rejectf(StageColumns, n, "duplicate group_by column %q", c)
			}
			seen[c] = true
		}
		s.pending = st.Columns
		return nil

	case OpAggregate:
		if !aggFuncs[st.Func] {
			return rejectf(StageColumns, n, "unknown aggregate %q", st.Func)
		}
		typ, ok := s.types[st.Column]
		if !ok {
			return rejectf(StageColumns, n, "unknown column %q", st.Column)
		}
		if st.Func != string(engine.AggCount) && typ != engine.TypeNumber {
			return rejectf(StageColumns, n, "%s needs a numeric column, %q is %s", st.Func, st.Column, typ)
		}
		if !s.inAggregate {
			s.inAggregate = true
			s.outputs = make(map[string]engine.ColumnType)
			for _, c := range s.pending {
				s.outputs[c] = s.types[c]
			}
		}
		name := st.OutputName()
		if _, dup := s.outputs[name]; dup {
			return rejectf(StageColumns, n, "aggregate output %q collides with another column", name)
		}
		s.outputs[name] = engine.TypeNumber
		return nil

	case OpSort:
		if _, ok := s.types[st.Column]; !ok {
			return rejectf(StageColumns, n, "unknown column %q", st.Column)
		}
		if st.Order != "" && st.Order != "asc" && st.Order != "desc" {
			return rejectf(StageColumns, n, "sort order must be asc or desc")
		}
		return nil

	case OpLimit:
		if st.N < 1 {
			return rejectf(StageColumns, n, "limit must be at least 1")
		}
		return nil
	}
	return rejectf(StageShape, n, "unknown op %q", st.Op)
}

func (s *scope) checkFilter(n int, st Step) error {
	typ, ok := s.types[st.Column]
	if !ok {
		return rejectf(StageColumns, n, "unknown column %q", st.Column)
	}

	switch st.Cmp {
	case "in":
		list, ok := st.Value.([]any)
		if !ok || len(list) == 0 {
			return rejectf(StageColumns, n, "in needs a non-empty list")
		}
		for _, v := range list {
			if !valueFits(typ, v) {
				return rejectf(StageColumns, n, "value %s does not fit %s column %q", formatValue(v), typ, st.Column)
			}
		}
		return nil
	case "contains":
		if typ != engine.TypeText {
			return rejectf(StageColumns, n, "contains needs a text column, %q is %s", st.Column, typ)
		}
		if _, ok := st.Value.(string); !ok {
			return rejectf(StageColumns, n, "contains needs a string value")
		}
		return nil
	case ">", ">=", "<", "<=":
		if typ == engine.TypeText {
			return rejectf(StageColumns, n, "%s is not defined on text column %q", st.Cmp, st.Column)
		}
	case "==", "!=":
	default:
		return rejectf(StageShape, n, "unknown comparator %q", st.Cmp)
	}

	if !valueFits(typ, st.Value) {
		return rejectf(StageColumns, n, "value %s does not fit %s column %q", formatValue(st.Value), typ, st.Column)
	}
	return nil
}

// valueFits: numbers for numeric columns, strings for text, and
// YYYY-MM-DD strings for dates so ordering compares chronologically.
func valueFits(typ engine.ColumnType, v any) bool {
	switch val := v.(type) {
	case float64:
		return typ == engine.TypeNumber
	case string:
		if typ == engine.TypeDate {
			_, err := time.Parse(engine.DateLayout, val)
			return err == nil
		}
		return typ != engine.TypeNumber
	}
	return false
}
