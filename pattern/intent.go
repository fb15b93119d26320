package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// INTENTS — What a recognized question asks for
// ============================================================================
// One concrete type per kind. Each renders itself as trace text
// ("TOP_N(n=1, department=IT)") and executes against a Dataset without
// mutating it. Answers name the unit given by the interpreter.
// ============================================================================

// Kind tags an Intent.
type Kind string

const (
	KindTopN                      Kind = "TOP_N"
	KindThresholdFilter           Kind = "THRESHOLD_FILTER"
	KindCrossDepartmentComparison Kind = "CROSS_DEPARTMENT_COMPARISON"
	KindAggregateByGroup          Kind = "AGGREGATE_BY_GROUP"
	KindCount                     Kind = "COUNT"
	KindPercentage                Kind = "PERCENTAGE"
	KindListAll                   Kind = "LIST_ALL"
)

// Intent is a recognized question.
type Intent interface {
	Kind() Kind
	String() string
	execute(ds *engine.Dataset, unit string) engine.QueryResult
}

// maxNamesInAnswer caps how many names an answer text lists.
const maxNamesInAnswer = 10

// ============================================================================
// TOP_N
// ============================================================================

// TopN ranks employees by salary. Ties keep original row order.
type TopN struct {
	N      int
	Lowest bool
	Scope  Scope
}

func (t TopN) Kind() Kind { return KindTopN }

func (t TopN) String() string {
	args := []string{"n=" + strconv.Itoa(t.N)}
	if t.Lowest {
		args = append(args, "order=lowest")
	}
	return trace(KindTopN, append(args, t.Scope.args()...)...)
}

func (t TopN) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	cols := ds.Columns()
	view := t.Scope.apply(ds)
	if view.Len() == 0 {
		return emptyResult(cols, noEmployees(t.Scope, unit))
	}

	ranked := engine.TopN(view, engine.ColSalary, t.N, t.Lowest)
	res := recordResult(ranked, cols)

	if t.N <= 1 {
		word := "Highest"
		if t.Lowest {
			word = "Lowest"
		}
		r := ranked.Record(0)
		text := fmt.Sprintf("%s salary%s%s: %s - %s", word, t.Scope.place(), t.Scope.salaryPhrase(unit),
			describePerson(r, t.Scope), engine.FormatAmount(r.Salary, unit))
		if ties := tiedWith(view, r.Salary); len(ties) > 0 {
			text += fmt.Sprintf(" (tied with %s, listed first in the data)", strings.Join(ties, ", "))
		}
		res.AnswerText = text
		res.Value = engine.Scalar(r.Salary)
		return res
	}

	word := "Top"
	if t.Lowest {
		word = "Bottom"
	}
	parts := make([]string, ranked.Len())
	for i := range parts {
		r := ranked.Record(i)
		parts[i] = fmt.Sprintf("%s (%s)", r.Name, engine.FormatAmount(r.Salary, unit))
	}
	res.AnswerText = fmt.Sprintf("%s %d salaries%s%s: %s", word, ranked.Len(), t.Scope.place(),
		t.Scope.salaryPhrase(unit), strings.Join(parts, ", "))
	return res
}

// tiedWith returns the names of every record sharing salary, except the
// first one in view order.
func tiedWith(view engine.RecordView, salary float64) []string {
	var names []string
	first := true
	for i := 0; i < view.Len(); i++ {
		if view.Measure(i, engine.ColSalary) != salary {
			continue
		}
		if first {
			first = false
			continue
		}
		names = append(names, view.Record(i).Name)
	}
	return names
}

func describePerson(r engine.Record, s Scope) string {
	if len(s.Departments) == 1 {
		return fmt.Sprintf("%s (%s)", r.Name, r.Role)
	}
	return fmt.Sprintf("%s (%s, %s)", r.Name, r.Department, r.Role)
}

// ============================================================================
// THRESHOLD_FILTER
// ============================================================================

// ThresholdFilter lists employees whose salary satisfies every bound.
type ThresholdFilter struct {
	Scope Scope
}

func (t ThresholdFilter) Kind() Kind { return KindThresholdFilter }

func (t ThresholdFilter) String() string {
	var args []string
	for _, b := range t.Scope.Bounds {
		args = append(args, b.String())
	}
	return trace(KindThresholdFilter, append(args, t.Scope.withoutBounds().args()...)...)
}

func (t ThresholdFilter) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	cols := ds.Columns()
	view := t.Scope.apply(ds)
	if view.Len() == 0 {
		return emptyResult(cols, noEmployees(t.Scope, unit))
	}
	res := recordResult(view, cols)
	res.AnswerText = fmt.Sprintf("%s%s%s: %s", employees(view.Len()), t.Scope.place(),
		t.Scope.salaryPhrase(unit), nameList(view))
	return res
}

// ============================================================================
// COUNT
// ============================================================================

// Count counts employees in scope.
type Count struct {
	Scope Scope
}

func (c Count) Kind() Kind { return KindCount }

func (c Count) String() string { return trace(KindCount, c.Scope.args()...) }

func (c Count) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	cols := ds.Columns()
	view := c.Scope.apply(ds)
	res := recordResult(view, cols)
	res.Value = engine.Scalar(float64(view.Len()))
	where := c.Scope.place() + c.Scope.salaryPhrase(unit)
	switch {
	case view.Len() == 0:
		res.AnswerText = "There are no employees" + where + "."
	case where == "":
		res.AnswerText = fmt.Sprintf("The dataset has %s.", employees(view.Len()))
	default:
		res.AnswerText = fmt.Sprintf("There %s %s%s.", isAre(view.Len()), employees(view.Len()), where)
	}
	return res
}

// ============================================================================
// PERCENTAGE
// ============================================================================

// Percentage is the share of employees matching the scope. With salary
// bounds the base is the scope without bounds ("what share of IT earns over
// 50k"); otherwise the base is the whole dataset ("what share works in IT").
type Percentage struct {
	Scope Scope
}

func (p Percentage) Kind() Kind { return KindPercentage }

func (p Percentage) String() string { return trace(KindPercentage, p.Scope.args()...) }

func (p Percentage) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	cols := ds.Columns()
	base := Scope{}
	if len(p.Scope.Bounds) > 0 {
		base = p.Scope.withoutBounds()
	}
	baseView := base.apply(ds)
	if baseView.Len() == 0 {
		return emptyResult(cols, noEmployees(base, unit))
	}
	part := p.Scope.apply(ds)
	pct := float64(part.Len()) / float64(baseView.Len()) * 100

	res := recordResult(part, cols)
	res.Value = engine.Scalar(pct)

	ratio := fmt.Sprintf("(%s of %s)", engine.FormatInt(part.Len()), engine.FormatInt(baseView.Len()))
	if len(p.Scope.Bounds) > 0 {
		res.AnswerText = fmt.Sprintf("%s of employees%s %s have salary %s.", engine.FormatPercent(pct),
			base.place(), ratio, strings.TrimPrefix(p.Scope.salaryPhrase(unit), " with salary "))
		return res
	}
	where := p.Scope.place()
	if where == "" {
		where = " in the dataset"
	}
	res.AnswerText = fmt.Sprintf("%s of employees %s are%s.", engine.FormatPercent(pct), ratio, where)
	return res
}

// ============================================================================
// CROSS_DEPARTMENT_COMPARISON
// ============================================================================

// CrossDepartmentComparison aggregates salary per named department.
// Scope.Departments is ignored; role, location and bounds still apply.
type CrossDepartmentComparison struct {
	Departments []string
	Agg         engine.AggFunc
	Scope       Scope
}

func (c CrossDepartmentComparison) Kind() Kind { return KindCrossDepartmentComparison }

func (c CrossDepartmentComparison) String() string {
	args := []string{string(c.Agg), "departments=" + strings.Join(c.Departments, "|")}
	return trace(KindCrossDepartmentComparison, append(args, c.Scope.args()...)...)
}

func (c CrossDepartmentComparison) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	scope := c.Scope
	scope.Departments = nil
	view := scope.apply(ds)

	valueCol := aggColumn(c.Agg)
	cols := []string{engine.ColDepartment, valueCol, colEmployees}

	groups := make([]engine.Group, 0, len(c.Departments))
	var missing []string
	for _, dept := range c.Departments {
		sub := engine.ApplyFilters(view, engine.Filters{Dimensions: map[string][]string{engine.ColDepartment: {dept}}})
		if sub.Len() == 0 {
			missing = append(missing, dept)
			continue
		}
		groups = append(groups, engine.Group{Key: dept, Count: sub.Len(), Value: engine.Aggregate(sub, engine.ColSalary, c.Agg), View: sub})
	}
	engine.SortGroups(groups, "value_desc")

	res := engine.QueryResult{Columns: cols, Rows: groupRows(groups, engine.ColDepartment, valueCol)}
	if len(groups) == 0 {
		res.AnswerText = noEmployees(scope, unit)
		return res
	}

	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%s %s (%s)", g.Key, formatAgg(c.Agg, g.Value, unit), employees(g.Count))
	}
	text := fmt.Sprintf("%s salary%s: %s.", engine.LabelForAggregation(c.Agg), scope.place(), strings.Join(parts, ", "))

	switch hi, lo := groups[0], groups[len(groups)-1]; {
	case len(groups) == 2 && hi.Value == lo.Value:
		text += fmt.Sprintf(" %s and %s are equal.", hi.Key, lo.Key)
	case len(groups) == 2:
		diff := hi.Value - lo.Value
		text += fmt.Sprintf(" %s is %s higher than %s", hi.Key, formatAgg(c.Agg, diff, unit), lo.Key)
		if lo.Value > 0 {
			text += fmt.Sprintf(" (%s)", engine.FormatPercent(diff/lo.Value*100))
		}
		text += "."
	case len(groups) > 2:
		text += fmt.Sprintf(" Highest: %s. Lowest: %s.", hi.Key, lo.Key)
	}
	if len(missing) > 0 {
		text += fmt.Sprintf(" No matching employees in %s.", strings.Join(missing, ", "))
	}
	res.AnswerText = text
	return res
}

// ============================================================================
// AGGREGATE_BY_GROUP
// ============================================================================

// AggregateByGroup aggregates salary over the scope, or per value of GroupBy.
// Groups are ordered by value, highest first unless Lowest. Ranked answers
// name only the leading group.
type AggregateByGroup struct {
	Agg     engine.AggFunc
	GroupBy string // "" = one group: the scope itself
	Lowest  bool
	Ranked  bool
	Scope   Scope
}

func (a AggregateByGroup) Kind() Kind { return KindAggregateByGroup }

func (a AggregateByGroup) String() string {
	args := []string{string(a.Agg)}
	if a.GroupBy != "" {
		args = append(args, "by="+a.GroupBy)
		if a.Lowest {
			args = append(args, "order=asc")
		}
	}
	return trace(KindAggregateByGroup, append(args, a.Scope.args()...)...)
}

func (a AggregateByGroup) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	valueCol := aggColumn(a.Agg)
	view := a.Scope.apply(ds)

	if a.GroupBy == "" {
		return a.executeScope(view, valueCol, unit)
	}

	cols := []string{a.GroupBy, valueCol}
	if valueCol != colEmployees {
		cols = append(cols, colEmployees)
	}
	if !ds.HasColumn(a.GroupBy) {
		return emptyResult(cols, fmt.Sprintf("This dataset has no %s column.", engine.LabelForColumn(a.GroupBy)))
	}
	if view.Len() == 0 {
		return emptyResult(cols, noEmployees(a.Scope, unit))
	}

	order := "value_desc"
	if a.Lowest {
		order = "value_asc"
	}
	groups := engine.GroupAndAggregate(view, a.GroupBy, engine.ColSalary, a.Agg, order, 0)
	res := engine.QueryResult{Columns: cols, Rows: groupRows(groups, a.GroupBy, valueCol)}

	label := aggLabel(a.Agg) + " by " + strings.ToLower(engine.LabelForColumn(a.GroupBy)) +
		a.Scope.place() + a.Scope.salaryPhrase(unit)
	if a.Ranked {
		word := "Highest"
		if a.Lowest {
			word = "Lowest"
		}
		top := groups[0]
		res.AnswerText = fmt.Sprintf("%s %s: %s (%s)", word, strings.ToLower(label[:1])+label[1:], top.Key, formatAgg(a.Agg, top.Value, unit))
		res.Value = engine.Scalar(top.Value)
		return res
	}

	parts := make([]string, len(groups))
	for i, g := range groups {
		if a.Agg == engine.AggCount {
			parts[i] = fmt.Sprintf("%s %s", g.Key, engine.FormatNumber(g.Value))
			continue
		}
		parts[i] = fmt.Sprintf("%s %s (%s)", g.Key, formatAgg(a.Agg, g.Value, unit), employees(g.Count))
	}
	res.AnswerText = fmt.Sprintf("%s: %s.", label, strings.Join(parts, ", "))
	return res
}

// executeScope aggregates the whole scope into one row carrying the scope's
// own dimension values.
func (a AggregateByGroup) executeScope(view engine.RecordView, valueCol, unit string) engine.QueryResult {
	var cols []string
	row := engine.Row{}
	for _, dim := range []struct{ col, val string }{
		{engine.ColDepartment, strings.Join(a.Scope.Departments, ", ")},
		{engine.ColRole, a.Scope.Role},
		{engine.ColLocation, a.Scope.Location},
	} {
		if dim.val != "" {
			cols = append(cols, dim.col)
			row[dim.col] = engine.Text(dim.val)
		}
	}
	cols = append(cols, valueCol)
	if valueCol != colEmployees {
		cols = append(cols, colEmployees)
	}

	if view.Len() == 0 {
		return emptyResult(cols, noEmployees(a.Scope, unit))
	}

	v := engine.Aggregate(view, engine.ColSalary, a.Agg)
	row[valueCol] = engine.Number(engine.RoundTo2(v))
	row[colEmployees] = engine.Number(float64(view.Len()))

	text := fmt.Sprintf("%s%s%s: %s", aggLabel(a.Agg), a.Scope.place(), a.Scope.salaryPhrase(unit), formatAgg(a.Agg, v, unit))
	if a.Agg != engine.AggCount {
		text += fmt.Sprintf(" (%s)", employees(view.Len()))
	}
	return engine.QueryResult{
		AnswerText: text,
		Columns:    cols,
		Rows:       []engine.Row{row},
		Value:      engine.Scalar(v),
	}
}

// ============================================================================
// LIST_ALL
// ============================================================================

// ListAll returns every employee in scope, in original order.
type ListAll struct {
	Scope Scope
}

func (l ListAll) Kind() Kind { return KindListAll }

func (l ListAll) String() string { return trace(KindListAll, l.Scope.args()...) }

func (l ListAll) execute(ds *engine.Dataset, unit string) engine.QueryResult {
	cols := ds.Columns()
	view := l.Scope.apply(ds)
	if view.Len() == 0 {
		return emptyResult(cols, noEmployees(l.Scope, unit))
	}
	res := recordResult(view, cols)
	res.AnswerText = fmt.Sprintf("Showing all %s%s%s.", employees(view.Len()), l.Scope.place(), l.Scope.salaryPhrase(unit))
	return res
}

// ============================================================================
// HELPERS
// ============================================================================

// colEmployees is the headcount column of aggregated rows.
const colEmployees = "employees"

func trace(kind Kind, args ...string) string {
	return string(kind) + "(" + strings.Join(args, ", ") + ")"
}

func formatArg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// aggColumn names the output column of an aggregate: "mean_salary".
func aggColumn(fn engine.AggFunc) string {
	if fn == engine.AggCount {
		return colEmployees
	}
	return string(fn) + "_" + engine.ColSalary
}

func aggLabel(fn engine.AggFunc) string {
	if fn == engine.AggCount {
		return "Headcount"
	}
	return engine.LabelForAggregation(fn) + " salary"
}

func formatAgg(fn engine.AggFunc, v float64, unit string) string {
	if fn == engine.AggCount {
		return engine.FormatNumber(v)
	}
	return engine.FormatAmount(v, unit)
}

func groupRows(groups []engine.Group, keyCol, valueCol string) []engine.Row {
	rows := make([]engine.Row, 0, len(groups))
	for _, g := range groups {
		row := engine.Row{
			keyCol:   engine.Text(g.Key),
			valueCol: engine.Number(engine.RoundTo2(g.Value)),
		}
		row[colEmployees] = engine.Number(float64(g.Count))
		rows = append(rows, row)
	}
	return rows
}

func recordResult(view engine.RecordView, cols []string) engine.QueryResult {
	return engine.QueryResult{Columns: cols, Rows: engine.ViewRows(view, cols)}
}

func emptyResult(cols []string, text string) engine.QueryResult {
	return engine.QueryResult{AnswerText: text, Columns: cols, Rows: []engine.Row{}}
}

func noEmployees(s Scope, unit string) string {
	return "No employees" + s.place() + s.salaryPhrase(unit) + " match."
}

func employees(n int) string {
	if n == 1 {
		return "1 employee"
	}
	return engine.FormatInt(n) + " employees"
}

func isAre(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}

// nameList renders up to maxNamesInAnswer names: "A, B and 3 more".
func nameList(view engine.RecordView) string {
	n := view.Len()
	shown := n
	if shown > maxNamesInAnswer {
		shown = maxNamesInAnswer
	}
	names := make([]string, shown)
	for i := range names {
		names[i] = view.Record(i).Name
	}
	out := strings.Join(names, ", ")
	if n > shown {
		out += fmt.Sprintf(" and %d more", n-shown)
	}
	return out
}
