package schema

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// VALIDATOR — Raw Table → canonical engine.Dataset
// ============================================================================
// Pipeline:
//   1. Map headers to canonical columns (case/space-insensitive, aliases)
//   2. Fail with SchemaError if a required column is entirely absent
//   3. Coerce each row; drop rows whose salary is not a positive number or
//      whose name/department/role is blank
//   4. Aggregate per-kind warnings (count + first offending rows)
//
// The input Table is only read, never modified.
// ============================================================================

// maxWarningRows caps the row numbers listed in one warning.
const maxWarningRows = 5

// headerAliases maps folded header spellings to canonical columns.
var headerAliases = map[string]string{
	"employee":          engine.ColName,
	"employee_name":     engine.ColName,
	"full_name":         engine.ColName,
	"namn":              engine.ColName,
	"dept":              engine.ColDepartment,
	"avdelning":         engine.ColDepartment,
	"title":             engine.ColRole,
	"job_title":         engine.ColRole,
	"position":          engine.ColRole,
	"roll":              engine.ColRole,
	"befattning":        engine.ColRole,
	"monthly_salary":    engine.ColSalary,
	"lön":               engine.ColSalary,
	"lon":               engine.ColSalary,
	"månadslön":         engine.ColSalary,
	"hire_date":         engine.ColEmploymentDate,
	"start_date":        engine.ColEmploymentDate,
	"anställningsdatum": engine.ColEmploymentDate,
	"city":              engine.ColLocation,
	"office":            engine.ColLocation,
	"ort":               engine.ColLocation,
	"grade":             engine.ColLevel,
	"nivå":              engine.ColLevel,
}

// Option configures Validate.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for dropped-row reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Validate checks a Table against the employee schema and returns the
// canonical Dataset plus warnings. A missing required column yields a
// *SchemaError and no Dataset.
func Validate(t Table, opts ...Option) (*engine.Dataset, []Warning, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	index, unknown, dupes := mapHeaders(t.Headers)

	var missing []string
	for _, col := range engine.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	var optional []string
	for _, col := range engine.OptionalColumns {
		if _, ok := index[col]; ok {
			optional = append(optional, col)
		}
	}

	w := newWarnings()
	if len(unknown) > 0 {
		w.add(WarnUnknownColumns, 0, "ignored unknown columns: "+strings.Join(unknown, ", "))
	}
	for _, d := range dupes {
		w.add(WarnDuplicateCol, 0, fmt.Sprintf("duplicate column %q: using the first occurrence", d))
	}

	records := make([]engine.Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		rowNum := i + 1
		if isBlankRow(row) {
			continue
		}
		cell := func(col string) string {
			pos, ok := index[col]
			if !ok || pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}
		if len(row) < len(t.Headers) {
			w.add(WarnShortRow, rowNum, "")
		}

		rec := engine.Record{
			Name:       cell(engine.ColName),
			Department: cell(engine.ColDepartment),
			Role:       cell(engine.ColRole),
			Location:   cell(engine.ColLocation),
			Level:      cell(engine.ColLevel),
		}
		if rec.Name == "" || rec.Department == "" || rec.Role == "" {
			w.add(WarnMissingField, rowNum, "")
			continue
		}

		salary, err := ParseSalary(cell(engine.ColSalary))
		if err != nil {
			w.add(WarnInvalidSalary, rowNum, "")
			continue
		}
		rec.Salary = salary

		if raw := cell(engine.ColEmploymentDate); raw != "" {
			d, err := ParseDate(raw)
			if err != nil {
				w.add(WarnInvalidDate, rowNum, "")
			} else {
				rec.EmploymentDate = d
			}
		}

		records = append(records, rec)
	}

	warnings := w.list()
	if dropped := len(t.Rows) - len(records); dropped > 0 {
		cfg.logger.Info("dataset validated with dropped rows",
			"source", t.Source, "kept", len(records), "dropped", dropped)
	}

	return engine.NewDataset(records, optional), warnings, nil
}

// mapHeaders returns canonical column → position, unknown headers and
// duplicate canonical columns.
func mapHeaders(headers []string) (map[string]int, []string, []string) {
	known := make(map[string]bool)
	for _, c := range engine.RequiredColumns {
		known[c] = true
	}
	for _, c := range engine.OptionalColumns {
		known[c] = true
	}

	index := make(map[string]int)
	var unknown, dupes []string
	for i, h := range headers {
		key := CanonicalColumn(h)
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		if !known[key] {
			if strings.TrimSpace(h) != "" {
				unknown = append(unknown, strings.TrimSpace(h))
			}
			continue
		}
		if _, seen := index[key]; seen {
			dupes = append(dupes, key)
			continue
		}
		index[key] = i
	}
	return index, unknown, dupes
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ============================================================================
// COERCION
// ============================================================================

var (
	currencyTokens = []string{"sek", "kr", "usd", "eur", "gbp", "nok", "dkk", "$", "€", "£", ":-"}
	plainNumber    = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	commaGrouped   = regexp.MustCompile(`^[0-9]{1,3}(,[0-9]{3})+$`)
	dotGrouped     = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{3})+$`)
	spaceLike      = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "", "\t", "")
)

// ParseSalary coerces a salary cell to a finite positive number.
// Accepts "45000", "45 000", "45,000", "45.000", "45000.50", "45 000,50",
// "45000 kr", "SEK 45000", "$45,000". Dots followed by exactly three digits
// group thousands: no monthly salary is written with three decimals.
func ParseSalary(raw string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("salary is empty")
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = spaceLike.Replace(s)

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if commaGrouped.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case hasDot:
		if dotGrouped.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if !plainNumber.MatchString(s) {
		return 0, fmt.Errorf("salary %q is not a positive number", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("salary %q: %w", raw, err)
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("salary %q must be greater than zero", raw)
	}
	return v, nil
}

var dateLayouts = []string{
	engine.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
}

// ParseDate parses an employment date in one of the accepted layouts.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ============================================================================
// WARNING AGGREGATION
// ============================================================================

type warningSet struct {
	all   []*Warning
	byRow map[WarningKind]*Warning
}

func newWarnings() *warningSet {
	return &warningSet{byRow: make(map[WarningKind]*Warning)}
}

// add records one occurrence. Row 0 means a table-level warning carrying
// its own message; row-level warnings of one kind are merged.
func (s *warningSet) add(kind WarningKind, row int, message string) {
	if row == 0 {
		s.all = append(s.all, &Warning{Kind: kind, Message: message, Count: 1})
		return
	}
	w, ok := s.byRow[kind]
	if !ok {
		w = &Warning{Kind: kind}
		s.byRow[kind] = w
		s.all = append(s.all, w)
	}
	w.Count++
	if len(w.Rows) < maxWarningRows {
		w.Rows = append(w.Rows, row)
	}
}

func (s *warningSet) list() []Warning {
	out := make([]Warning, 0, len(s.all))
	for _, w := range s.all {
		if w.Message == "" {
			w.Message = rowMessage(w.Kind, w.Count, w.Rows)
		}
		out = append(out, *w)
	}
	return out
}

func rowMessage(kind WarningKind, count int, rows []int) string {
	var what string
	switch kind {
	case WarnInvalidSalary:
		what = "dropped %d row(s) with a missing or non-positive salary"
	case WarnMissingField:
		what = "dropped %d row(s) with a blank name, department or role"
	case WarnInvalidDate:
		what = "blanked %d unrecognized employment date(s)"
	case WarnShortRow:
		what = "%d row(s) had fewer cells than headers"
	default:
		what = "%d row(s) affected"
	}
	nums := make([]string, len(rows))
	for i, r := range rows {
		nums[i] = strconv.Itoa(r)
	}
	msg := fmt.Sprintf(what, count)
	if len(nums) > 0 {
		msg += " (rows " + strings.Join(nums, ", ")
		if count > len(rows) {
			msg += ", ..."
		}
		msg += ")"
	}
	return msg
}
