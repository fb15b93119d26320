package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Raw input tables and the canonical employee schema
// ============================================================================
// Loaders (helpers package) produce a Table of raw strings. Validate turns a
// Table into an engine.Dataset or fails with a SchemaError. Nothing
// downstream of Validate ever sees raw strings again.
// ============================================================================

// Table is a raw tabular input: one header row plus data rows.
type Table struct {
	Source  string     `json:"source,omitempty"` // file name or description, for messages
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ErrSchema is the sentinel for every SchemaError.
var ErrSchema = errors.New("schema error")

// SchemaError reports a dataset that cannot be analyzed at all.
type SchemaError struct {
	Missing []string // required columns entirely absent
	Msg     string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required columns: %s", ErrSchema, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrSchema, e.Msg)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// WarningKind classifies a validation warning.
type WarningKind string

const (
	WarnInvalidSalary  WarningKind = "invalid_salary"
	WarnMissingField   WarningKind = "missing_field"
	WarnInvalidDate    WarningKind = "invalid_date"
	WarnUnknownColumns WarningKind = "unknown_columns"
	WarnDuplicateCol   WarningKind = "duplicate_column"
	WarnShortRow       WarningKind = "short_row"
)

// Warning is a non-fatal validation finding.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Rows    []int       `json:"rows,omitempty"` // 1-based data row numbers, truncated
	Count   int         `json:"count"`
}

func (w Warning) String() string { return w.Message }

// CanonicalColumn folds a header to its canonical key:
// "  Employment Date " → "employment_date".
func CanonicalColumn(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.Join(strings.Fields(s), "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
