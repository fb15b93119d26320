package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// PAYLENS ENGINE TYPES — Compensation records and the shared result contract
// ============================================================================
// Record is the canonical employee row produced by the schema validator.
// QueryResult is the one shape both interpreters reduce to; the rendering
// layer and the history store only ever see QueryResult.
//
// Dependency: engine imports nothing outside the standard library.
// ============================================================================

// Canonical column keys.
const (
	ColName           = "name"
	ColDepartment     = "department"
	ColRole           = "role"
	ColSalary         = "salary"
	ColEmploymentDate = "employment_date"
	ColLocation       = "location"
	ColLevel          = "level"
)

// RequiredColumns must be present in every dataset.
var RequiredColumns = []string{ColName, ColDepartment, ColRole, ColSalary}

// OptionalColumns are carried when the source provides them.
var OptionalColumns = []string{ColEmploymentDate, ColLocation, ColLevel}

// DateLayout is the canonical text form of employment_date.
const DateLayout = "2006-01-02"

// ColumnType classifies a column for validation and prompt building.
type ColumnType string

const (
	TypeText   ColumnType = "text"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
)

// TypeOf returns the type of a canonical column. Unknown keys are text.
func TypeOf(column string) ColumnType {
	switch column {
	case ColSalary:
		return TypeNumber
	case ColEmploymentDate:
		return TypeDate
	default:
		return TypeText
	}
}

// ============================================================================
// RECORD
// ============================================================================

// Record is one employee. Salary is monthly and always > 0.
// EmploymentDate is the zero time when the source did not provide one.
type Record struct {
	Name           string    `json:"name"`
	Department     string    `json:"department"`
	Role           string    `json:"role"`
	Salary         float64   `json:"salary"`
	EmploymentDate time.Time `json:"employmentDate,omitempty"`
	Location       string    `json:"location,omitempty"`
	Level          string    `json:"level,omitempty"`
}

// Dimension returns the text form of a column.
func (r Record) Dimension(key string) string {
	switch key {
	case ColName:
		return r.Name
	case ColDepartment:
		return r.Department
	case ColRole:
		return r.Role
	case ColSalary:
		return strconv.FormatFloat(r.Salary, 'f', -1, 64)
	case ColEmploymentDate:
		if r.EmploymentDate.IsZero() {
			return ""
		}
		return r.EmploymentDate.Format(DateLayout)
	case ColLocation:
		return r.Location
	case ColLevel:
		return r.Level
	}
	return ""
}

// Measure returns the numeric value of a column, 0 for non-numeric columns.
func (r Record) Measure(key string) float64 {
	if key == ColSalary {
		return r.Salary
	}
	return 0
}

// Value returns the cell for a column, typed by TypeOf.
func (r Record) Value(key string) Value {
	if TypeOf(key) == TypeNumber {
		return Number(r.Measure(key))
	}
	return Text(r.Dimension(key))
}

// ============================================================================
// MODE
// ============================================================================

// Mode names the interpreter that produced a result.
type Mode string

const (
	ModePattern    Mode = "PATTERN"
	ModeCapability Mode = "CAPABILITY"
)

// ParseMode accepts the user-facing spellings of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pattern", "regex", "fast":
		return ModePattern, nil
	case "capability", "ai", "smart", "llm":
		return ModeCapability, nil
	}
	return "", fmt.Errorf("unknown mode %q (want pattern or capability)", s)
}

// ============================================================================
// VALUE + ROW
// ============================================================================

// Value is a single result cell: text or a number.
type Value struct {
	Text    string
	Number  float64
	Numeric bool
}

// Text builds a text cell.
func Text(s string) Value { return Value{Text: s} }

// Number builds a numeric cell.
func Number(f float64) Value { return Value{Number: f, Numeric: true} }

// String returns the plain text form (numbers without grouping).
func (v Value) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value must be a number or string: %w", err)
	}
	*v = Text(s)
	return nil
}

// Row is one result row keyed by column.
type Row map[string]Value

// RecordRow projects a record onto the given columns.
func RecordRow(r Record, columns []string) Row {
	row := make(Row, len(columns))
	for _, c := range columns {
		row[c] = r.Value(c)
	}
	return row
}

// ============================================================================
// QUERY RESULT — Contract between interpreters and consumers
// ============================================================================

// QueryResult is built once per question and never mutated afterwards.
type QueryResult struct {
	AnswerText string   `json:"answerText"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	Trace      string   `json:"trace"`
	ModeUsed   Mode     `json:"modeUsed"`
	Value      *float64 `json:"value,omitempty"` // set when the answer is a single number
}

// Scalar returns a pointer to v for QueryResult.Value.
func Scalar(v float64) *float64 { return &v }

// ViewRows projects every record of a view onto columns, preserving order.
func ViewRows(view RecordView, columns []string) []Row {
	rows := make([]Row, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		rows = append(rows, RecordRow(view.Record(i), columns))
	}
	return rows
}
