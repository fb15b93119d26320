package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/paylens/schema"
)

func TestParseDelimited(t *testing.T) {
	cases := map[string]string{
		"comma":     "Name,Department,Role,Salary\nA,IT,Developer,60000\nB,Finance,Analyst,50000\n",
		"semicolon": "Namn;Avdelning;Roll;Lön\nA;IT;Developer;\"60 000\"\nB;Finance;Analyst;50000,00\n",
		"tab":       "name\tdepartment\trole\tsalary\nA\tIT\tDeveloper\t60000\nB\tFinance\tAnalyst\t50000\n",
		"bom":       "\xEF\xBB\xBFname,department,role,salary\r\nA,IT,Developer,60000\r\nB,Finance,Analyst,50000\r\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			tbl, err := ParseDelimited([]byte(src), "test.csv")
			require.NoError(t, err)
			require.Len(t, tbl.Headers, 4)
			require.Len(t, tbl.Rows, 2)
			assert.Equal(t, "test.csv", tbl.Source)

			ds, warnings, err := schema.Validate(tbl)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			require.Equal(t, 2, ds.Len())
			assert.Equal(t, 60000.0, ds.Record(0).Salary)
			assert.Equal(t, 50000.0, ds.Record(1).Salary)
		})
	}
}

func TestParseDelimitedRaggedRows(t *testing.T) {
	tbl, err := ParseDelimited([]byte("name,department,role,salary\nA,IT\n"), "ragged.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "IT"}}, tbl.Rows)
}

func TestParseDelimitedEmpty(t *testing.T) {
	_, err := ParseDelimited([]byte("  \n"), "empty.csv")
	assert.Error(t, err)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', SniffDelimiter([]byte("a;b;c\n1,5;2;3")))
	assert.Equal(t, '\t', SniffDelimiter([]byte("\n\na\tb\tc")))
	assert.Equal(t, ',', SniffDelimiter([]byte(`"last; first",dept,role`)))
	assert.Equal(t, ',', SniffDelimiter(nil))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Name", "Department", "Role", "Salary", "Location"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"A", "IT", "Developer", 60000, "Stockholm"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"B", "Finance", "Analyst", 50000}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := ParseXLSX(bytes.NewReader(buf.Bytes()), "people.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Department", "Role", "Salary", "Location"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)

	ds, _, err := schema.Validate(tbl)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Stockholm", ds.Record(0).Location)
	assert.Equal(t, 50000.0, ds.Record(1).Salary)
}

type employeeRow struct {
	Name       string  `parquet:"name"`
	Department string  `parquet:"department"`
	Role       string  `parquet:"role"`
	Salary     float64 `parquet:"salary"`
}

func TestParseParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, parquet.Write(&buf, []employeeRow{
		{"A", "IT", "Developer", 60000},
		{"B", "Finance", "Analyst", 50000.5},
	}))

	tbl, err := ParseParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "people.parquet")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "department", "role", "salary"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)

	ds, warnings, err := schema.Validate(tbl)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "A", ds.Record(0).Name)
	assert.Equal(t, 50000.5, ds.Record(1).Salary)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,department,role,salary\nA,IT,Developer,60000\n"), 0o600))
	tbl, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "people.csv", tbl.Source)
	assert.Len(t, tbl.Rows, 1)

	pqPath := filepath.Join(dir, "people.parquet")
	var buf bytes.Buffer
	require.NoError(t, parquet.Write(&buf, []employeeRow{{"A", "IT", "Developer", 60000}}))
	require.NoError(t, os.WriteFile(pqPath, buf.Bytes(), 0o600))
	tbl, err = LoadFile(pqPath)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 1)

	_, err = LoadFile(filepath.Join(dir, "people.json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
