// Package helpers loads raw employee tables from files. Loaders only split
// cells; every interpretation of a cell (salary formats, dates, header
// aliases) belongs to schema.Validate.
package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/paylens/schema"
)

// ErrUnsupportedFormat is returned for file extensions no loader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extensions lists the accepted input extensions.
var Extensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".parquet"}

// LoadFile reads path into a Table, choosing the loader by extension.
func LoadFile(path string) (schema.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)

	switch ext {
	case ".csv", ".tsv", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return ParseDelimited(data, name)

	case ".xlsx":
		data, err := os.ReadFile(path)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return ParseXLSX(bytes.NewReader(data), name)

	case ".parquet":
		f, err := os.Open(path)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer func() { _ = f.Close() }()
		stat, err := f.Stat()
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		return ParseParquet(f, stat.Size(), name)
	}
	return schema.Table{}, fmt.Errorf("%w %q (want one of %s)", ErrUnsupportedFormat, ext, strings.Join(Extensions, ", "))
}
