package helpers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/schema"
)

// ParseParquet reads every row of a parquet file into a Table. Headers follow
// the file schema's top-level field order; values are rendered as text so
// the validator coerces them like any other input.
func ParseParquet(r io.ReaderAt, size int64, source string) (schema.Table, error) {
	pqFile, err := parquet.OpenFile(r, size)
	if err != nil {
		return schema.Table{}, fmt.Errorf("%s: failed to open parquet file: %w", source, err)
	}

	var headers []string
	for _, f := range pqFile.Schema().Fields() {
		headers = append(headers, f.Name())
	}

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	t := schema.Table{Source: source, Headers: headers, Rows: [][]string{}}
	for {
		row := make(map[string]interface{})
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return schema.Table{}, fmt.Errorf("%s: failed to read row %d: %w", source, len(t.Rows)+1, err)
		}
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = cellText(row[h])
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// cellText renders a parquet value the way a CSV export would.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(engine.DateLayout)
	}
	return fmt.Sprint(v)
}
