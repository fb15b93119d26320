package helpers

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/paylens/schema"
)

// ParseXLSX reads the first sheet of a workbook into a Table. The first
// non-empty row is the header.
func ParseXLSX(r io.Reader, source string) (schema.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return schema.Table{}, fmt.Errorf("%s: failed to open workbook: %w", source, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return schema.Table{}, fmt.Errorf("%s: workbook has no sheets", source)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return schema.Table{}, fmt.Errorf("%s: failed to read sheet %q: %w", source, sheets[0], err)
	}

	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return schema.Table{}, fmt.Errorf("%s: sheet %q is empty", source, sheets[0])
	}

	headers := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		headers[i] = strings.TrimSpace(h)
	}
	return schema.Table{Source: source, Headers: headers, Rows: append([][]string{}, rows[start+1:]...)}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
