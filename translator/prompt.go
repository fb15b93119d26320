package translator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/plan"
	"github.com/spektr-org/paylens/schema"
)

// ============================================================================
// PROMPT BUILDER — Dataset-driven plan prompt
// ============================================================================
// The prompt is generated from schema.Description:
//   - Columns → listed with type and display name
//   - Vocabularies → departments, roles, locations, levels
//   - Sample rows → a handful, names redacted by default
//   - Plan format → the step allow-list the plan package accepts
//
// Total data sent per question: column metadata plus a few rows. Never the
// dataset.
// ============================================================================

// BuildPrompt generates the complete prompt for one question.
func BuildPrompt(question string, desc schema.Description, now time.Time) string {
	var b strings.Builder

	// ── Header ────────────────────────────────────────────────────────────
	fmt.Fprintf(&b, `You are a query planner for PayLens, an employee salary analytics tool.

CURRENT DATE: %s

YOUR ROLE:
Translate the user's question into a JSON plan of data steps that a local engine will run.
You are a PLANNER ONLY. Do NOT compute any values and do NOT write code.

`, now.Format(engine.DateLayout))

	// ── Data Model ────────────────────────────────────────────────────────
	fmt.Fprintf(&b, "DATASET: %d employees, one row each. Salaries are monthly.\n\n", desc.RowCount)
	b.WriteString(buildColumnDescription(desc))
	b.WriteString(buildVocabulary(desc))

	// ── Sample Rows ───────────────────────────────────────────────────────
	if len(desc.SampleRows) > 0 {
		sample, _ := json.Marshal(desc.SampleRows)
		fmt.Fprintf(&b, "SAMPLE ROWS (names may be redacted):\n%s\n\n", sample)
	}

	// ── Plan Format + Rules ───────────────────────────────────────────────
	b.WriteString(planFormat)
	b.WriteString(buildExamples(desc))

	// ── Question ──────────────────────────────────────────────────────────
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", strings.TrimSpace(question))
	b.WriteString("Respond with the JSON plan only, no markdown and no explanation.\n")

	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func buildColumnDescription(desc schema.Description) string {
	var b strings.Builder
	b.WriteString("COLUMNS (use these keys exactly):\n")
	for _, c := range desc.Columns {
		fmt.Fprintf(&b, "- %q (%s): %s", c.Key, c.DisplayName, c.Type)
		if c.Type == engine.TypeDate {
			fmt.Fprintf(&b, ", text in %s form, compare with == != < <= > >= (rows without a date never match < <= > >=)", engine.DateLayout)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func buildVocabulary(desc schema.Description) string {
	var b strings.Builder
	lists := []struct {
		label  string
		values []string
	}{
		{"DEPARTMENTS", desc.Departments},
		{"ROLES", desc.Roles},
		{"LOCATIONS", desc.Locations},
		{"LEVELS", desc.Levels},
	}
	for _, l := range lists {
		if len(l.values) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: [%s]\n", l.label, strings.Join(quotedValues(l.values), ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

var planFormat = fmt.Sprintf(`PLAN FORMAT (ALWAYS valid JSON):
{
  "summary": "One sentence describing what the plan computes",
  "steps": [
    {"op": "filter", "column": "<column>", "cmp": "==|!=|>|>=|<|<=|in|contains", "value": <number, string or list>},
    {"op": "group_by", "columns": ["<column>", ...]},
    {"op": "aggregate", "func": "mean|median|sum|count|min|max", "column": "<column>", "as": "<output_name>"},
    {"op": "sort", "column": "<column>", "order": "asc|desc"},
    {"op": "limit", "n": <integer >= 1>}
  ]
}

RULES:
- Only the five ops above exist. Any other op or field rejects the whole plan.
- At most %d steps.
- Steps run in order. "in" takes a list, "contains" matches text case-insensitively.
- Ordering comparisons (>, >=, <, <=) only apply to numeric columns.
- mean, median, sum, min and max need a numeric column. count works on any column.
- group_by must be followed directly by one or more aggregate steps.
- After aggregation only the group_by columns and the aggregate outputs exist.
- "as" is lower_snake_case. Without it the output is named func_column, e.g. mean_salary.
- Match department, role and location values exactly as listed.

`, plan.MaxSteps)

func buildExamples(desc schema.Description) string {
	dept := "IT"
	if len(desc.Departments) > 0 {
		dept = desc.Departments[0]
	}

	var b strings.Builder
	b.WriteString("EXAMPLE PLANS:\n")
	fmt.Fprintf(&b, `- "who earns the most in %s?" → {"summary":"Highest paid employee in %s","steps":[{"op":"filter","column":"department","cmp":"==","value":%q},{"op":"sort","column":"salary","order":"desc"},{"op":"limit","n":1}]}`+"\n", dept, dept, dept)
	b.WriteString(`- "average salary per department" → {"summary":"Average salary by department","steps":[{"op":"group_by","columns":["department"]},{"op":"aggregate","func":"mean","column":"salary","as":"mean_salary"},{"op":"sort","column":"mean_salary","order":"desc"}]}` + "\n")
	b.WriteString(`- "how many earn over 50000?" → {"summary":"Employees earning at least 50000","steps":[{"op":"filter","column":"salary","cmp":">=","value":50000},{"op":"aggregate","func":"count","column":"name","as":"employees"}]}` + "\n")
	b.WriteString("\n")
	return b.String()
}

// ============================================================================
// HELPERS
// ============================================================================

func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}
