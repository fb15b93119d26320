package schema

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/paylens/engine"
)

// ── Test Data ─────────────────────────────────────────────────────────────────

var hrCSV = []byte(`Employee ID,Full Name,Department,Job Title,Level,Location,Hire Date,Monthly Salary
EMP-001,Alice Johnson,Engineering,Senior Engineer,L5,Stockholm,2019-03-15,"65 000"
EMP-002,Bob Smith,Engineering,Engineering Manager,L6,Stockholm,2017-06-01,72000 kr
EMP-003,Carol Davis,Product,Product Manager,L5,Göteborg,2020/07/20,"58,500"
EMP-004,Diana Chen,Product,,L4,Göteborg,2021-04-12,51000
EMP-005,Edward Park,Sales,Account Executive,L4,Malmö,someday,"47000,50"
EMP-006,Frank White,Sales,Sales Rep,L3,Malmö,2023-01-09,-100
,,,,,,,
EMP-007,Grace Kim,Sales,Sales Rep,L3,Malmö,2023-08-01
`)

func readTable(t *testing.T, data []byte) Table {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	require.NoError(t, err)
	return Table{Source: "hr.csv", Headers: all[0], Rows: all[1:]}
}

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func warningKinds(ws []Warning) []WarningKind {
	out := make([]WarningKind, len(ws))
	for i, w := range ws {
		out[i] = w.Kind
	}
	return out
}

// ============================================================================
// VALIDATE
// ============================================================================

func TestValidateHRExport(t *testing.T) {
	ds, warnings, err := Validate(readTable(t, hrCSV), quietLogger())
	require.NoError(t, err)

	require.Equal(t, 4, ds.Len())
	assert.Equal(t, []string{"name", "department", "role", "salary", "employment_date", "location", "level"}, ds.Columns())

	alice := ds.Record(0)
	assert.Equal(t, "Alice Johnson", alice.Name)
	assert.Equal(t, "Senior Engineer", alice.Role)
	assert.Equal(t, 65000.0, alice.Salary)
	assert.Equal(t, "L5", alice.Level)
	assert.Equal(t, time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), alice.EmploymentDate)

	assert.Equal(t, 72000.0, ds.Record(1).Salary)
	assert.Equal(t, 58500.0, ds.Record(2).Salary)
	assert.Equal(t, 2020, ds.Record(2).EmploymentDate.Year())

	edward := ds.Record(3)
	assert.Equal(t, 47000.5, edward.Salary)
	assert.True(t, edward.EmploymentDate.IsZero())

	assert.Equal(t, []WarningKind{
		WarnUnknownColumns, WarnMissingField, WarnInvalidDate, WarnInvalidSalary, WarnShortRow,
	}, warningKinds(warnings))
	assert.Equal(t, "ignored unknown columns: Employee ID", warnings[0].Message)
	assert.Equal(t, []int{4}, warnings[1].Rows)
	assert.Equal(t, "dropped 2 row(s) with a missing or non-positive salary (rows 6, 8)", warnings[3].Message)
	assert.Equal(t, 2, warnings[3].Count)
}

func TestValidateMissingRequiredColumns(t *testing.T) {
	_, _, err := Validate(Table{
		Headers: []string{"Name", "Team", "Title"},
		Rows:    [][]string{{"A", "IT", "Developer"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"department", "salary"}, se.Missing)
	assert.Equal(t, "schema error: missing required columns: department, salary", se.Error())
}

func TestValidateDuplicateColumns(t *testing.T) {
	ds, warnings, err := Validate(Table{
		Headers: []string{"name", "department", "role", "salary", "Lön"},
		Rows:    [][]string{{"A", "IT", "Developer", "60000", "1"}},
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 60000.0, ds.Record(0).Salary)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDuplicateCol, warnings[0].Kind)
}

func TestValidateWarningRowsTruncated(t *testing.T) {
	tbl := Table{Headers: []string{"name", "department", "role", "salary"}}
	for i := 0; i < 8; i++ {
		tbl.Rows = append(tbl.Rows, []string{"X", "IT", "Dev", "n/a"})
	}
	ds, warnings, err := Validate(tbl, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
	require.Len(t, warnings, 1)
	assert.Equal(t, 8, warnings[0].Count)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, warnings[0].Rows)
	assert.Contains(t, warnings[0].Message, "(rows 1, 2, 3, 4, 5, ...)")
}

func TestValidateDoesNotModifyTable(t *testing.T) {
	tbl := readTable(t, hrCSV)
	before := readTable(t, hrCSV)
	_, _, err := Validate(tbl, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, before, tbl)
}

func TestCanonicalColumn(t *testing.T) {
	cases := map[string]string{
		"  Employment Date ": "employment_date",
		"\ufeffName":         "name",
		"monthly-salary":     "monthly_salary",
		"AVDELNING":          "avdelning",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalColumn(in), in)
	}
}

// ============================================================================
// COERCION
// ============================================================================

func TestParseSalary(t *testing.T) {
	valid := map[string]float64{
		"45000":       45000,
		"45 000":      45000,
		"45,000":      45000,
		"45000.50":    45000.5,
		"45 000,50":   45000.5,
		"45.000,50":   45000.5,
		"1.250.000":   1250000,
		"45000 kr":    45000,
		"SEK 45000":   45000,
		"$45,000":     45000,
		"45\u00a0000": 45000,
		"45 000:-":    45000,
		"50.000":      50000,
		"50.000 kr":   50000,
		"SEK 1.500":   1500,
		"45000.5":     45000.5,
		"45.50":       45.5,
	}
	for in, want := range valid {
		got, err := ParseSalary(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, in := range []string{"", "  ", "abc", "-100", "0", "12a", "1e9", "NaN"} {
		_, err := ParseSalary(in)
		assert.Error(t, err, in)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2021-04-12", "2021/04/12", "12/04/2021", "12.04.2021", "2021-04-12T08:00:00Z", "2021-04-12 08:00:00"} {
		d, err := ParseDate(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, 2021, d.Year(), in)
			assert.Equal(t, time.April, d.Month(), in)
			assert.Equal(t, 12, d.Day(), in)
		}
	}
	_, err := ParseDate("someday")
	assert.Error(t, err)
}

// ============================================================================
// DESCRIBE
// ============================================================================

func TestDescribe(t *testing.T) {
	ds, _, err := Validate(readTable(t, hrCSV), quietLogger())
	require.NoError(t, err)

	d := Describe(ds)
	assert.Equal(t, 4, d.RowCount)
	assert.Equal(t, []string{"Engineering", "Product", "Sales"}, d.Departments)
	assert.Equal(t, []string{"Stockholm", "Göteborg", "Malmö"}, d.Locations)
	assert.Equal(t, []string{"L5", "L6", "L4"}, d.Levels)

	require.Len(t, d.Columns, 7)
	assert.Equal(t, ColumnMeta{Key: "salary", DisplayName: "Salary", Type: engine.TypeNumber, Required: true}, d.Columns[3])
	assert.Equal(t, ColumnMeta{Key: "employment_date", DisplayName: "Employment date", Type: engine.TypeDate}, d.Columns[4])

	require.Len(t, d.SampleRows, 3)
	assert.Equal(t, "Employee 1", d.SampleRows[0]["name"].String())
	assert.Equal(t, "Employee 3", d.SampleRows[2]["name"].String())
	assert.Equal(t, "Sales", d.SampleRows[2]["department"].String())
	for _, row := range d.SampleRows {
		assert.NotContains(t, []string{"Alice Johnson", "Bob Smith", "Carol Davis", "Edward Park"}, row["name"].String())
	}
}

func TestDescribeOptions(t *testing.T) {
	ds, _, err := Validate(readTable(t, hrCSV), quietLogger())
	require.NoError(t, err)

	d := Describe(ds, DescribeOptions{SampleRows: 10})
	require.Len(t, d.SampleRows, 4)
	assert.Equal(t, "Alice Johnson", d.SampleRows[0]["name"].String())

	d = Describe(ds, DescribeOptions{})
	assert.NotNil(t, d.SampleRows)
	assert.Empty(t, d.SampleRows)
}

func TestSampleIndices(t *testing.T) {
	assert.Nil(t, sampleIndices(0, 3))
	assert.Nil(t, sampleIndices(10, 0))
	assert.Equal(t, []int{0}, sampleIndices(10, 1))
	assert.Equal(t, []int{0, 1}, sampleIndices(2, 5))
	assert.Equal(t, []int{0, 4, 9}, sampleIndices(10, 3))
}
