// Package plan holds the restricted query language the capability
// interpreter asks the language-generation service to produce.
//
// A plan is data, not code: a JSON document of filter, group_by, aggregate,
// sort and limit steps. It is checked twice before it may run (the embedded
// CUE schema for shape, then Validate for columns and step order) and is
// evaluated by a small Go interpreter that touches nothing but the
// dataset view it is given.
package plan

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed plan.cue
var planSchema string

// MaxSteps caps the length of a plan.
const MaxSteps = 20

// Op names a step kind.
type Op string

const (
	OpFilter    Op = "filter"
	OpGroupBy   Op = "group_by"
	OpAggregate Op = "aggregate"
	OpSort      Op = "sort"
	OpLimit     Op = "limit"
)

// Step is one plan step. Which fields apply depends on Op:
//
//	filter     column, cmp, value
//	group_by   columns
//	aggregate  func, column, as (optional)
//	sort       column, order (asc when empty)
//	limit      n
type Step struct {
	Op      Op       `json:"op"`
	Column  string   `json:"column,omitempty"`
	Cmp     string   `json:"cmp,omitempty"`
	Value   any      `json:"value,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Func    string   `json:"func,omitempty"`
	As      string   `json:"as,omitempty"`
	Order   string   `json:"order,omitempty"`
	N       int      `json:"n,omitempty"`
}

// Document is a complete plan as returned by the service.
type Document struct {
	Summary string `json:"summary,omitempty"`
	Steps   []Step `json:"steps"`
}

// Parse decodes a plan and checks its shape against the embedded schema.
// Non-JSON input wraps ErrInvalidJSON; a well-formed document of the wrong
// shape is a *RejectedError.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, snippet(data))
	}
	if err := checkShape(data); err != nil {
		return nil, err
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, rejectf(StageShape, 0, "%v", err)
	}
	return &doc, nil
}

// checkShape unifies data with #Plan. A fresh cue.Context per call keeps
// Parse safe for concurrent use.
func checkShape(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(planSchema, cue.Filename("plan.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile plan schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename("plan.json"))
	if err := doc.Err(); err != nil {
		return rejectf(StageShape, 0, "%s", cueMessage(err))
	}

	v := schema.LookupPath(cue.ParsePath("#Plan")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return rejectf(StageShape, 0, "%s", cueMessage(err))
	}
	return nil
}

// cueMessage returns the first CUE error, which carries the failing path.
func cueMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}

func snippet(data []byte) string {
	const limit = 80
	s := string(data)
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return strconv.Quote(s)
}

// ============================================================================
// TRACE RENDERING
// ============================================================================

// String renders the plan as a one-line trace:
// filter(salary >= 50000) | group_by(department) | aggregate(mean(salary) as mean_salary)
func (d *Document) String() string {
	if d == nil {
		return ""
	}
	parts := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}

func (s Step) String() string {
	switch s.Op {
	case OpFilter:
		return fmt.Sprintf("filter(%s %s %s)", s.Column, s.Cmp, formatValue(s.Value))
	case OpGroupBy:
		return "group_by(" + strings.Join(s.Columns, ", ") + ")"
	case OpAggregate:
		return fmt.Sprintf("aggregate(%s(%s) as %s)", s.Func, s.Column, s.OutputName())
	case OpSort:
		return fmt.Sprintf("sort(%s %s)", s.Column, s.SortOrder())
	case OpLimit:
		return fmt.Sprintf("limit(%d)", s.N)
	}
	return string(s.Op) + "(?)"
}

// OutputName is the column an aggregate step writes: As, or func_column.
func (s Step) OutputName() string {
	if s.As != "" {
		return s.As
	}
	return s.Func + "_" + s.Column
}

// SortOrder is "asc" or "desc".
func (s Step) SortOrder() string {
	if s.Order == "desc" {
		return "desc"
	}
	return "asc"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strconv.Quote(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return "null"
	}
	return fmt.Sprint(v)
}
