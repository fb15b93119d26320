package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/paylens/schema"
)

// ============================================================================
// CSV HELPER — Parses delimited text into a schema.Table
// ============================================================================
// Accepts the files spreadsheet exports actually produce:
//   - comma, semicolon (Swedish Excel) or tab separated, sniffed
//   - optional UTF-8 byte order mark
//   - ragged rows (validation reports them as short rows)
// ============================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters in tie-break order.
var candidateDelimiters = []rune{',', ';', '\t'}

// ParseDelimited parses CSV/TSV bytes into a Table. The delimiter is sniffed
// from the header line.
func ParseDelimited(data []byte, source string) (schema.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return schema.Table{}, fmt.Errorf("%s: file is empty", source)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = SniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return schema.Table{}, fmt.Errorf("%s: failed to read headers: %w", source, err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	// Read rows
	t := schema.Table{Source: source, Headers: headers, Rows: [][]string{}}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return schema.Table{}, fmt.Errorf("%s: %w", source, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// SniffDelimiter picks the candidate that occurs most often in the first
// non-blank line, outside quotes. Comma wins ties and empty input.
func SniffDelimiter(data []byte) rune {
	var header string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			header = line
			break
		}
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range header {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := candidateDelimiters[0]
	for _, d := range candidateDelimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
