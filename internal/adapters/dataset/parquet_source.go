package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/repositories"
)

const parquetBatchSize = 1024

// ParquetSource loads the facility snapshot from a Parquet export
type ParquetSource struct {
	path string
}

// NewParquetSource creates a Parquet-backed facility source
func NewParquetSource(path string) repositories.FacilitySource {
	return &ParquetSource{path: path}
}

// NewFileSource picks the file reader from the extension: .parquet files are
// read column-typed, everything else as CSV.
func NewFileSource(path string) repositories.FacilitySource {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return NewParquetSource(path)
	}
	return NewCSVSource(path)
}

// Name identifies the source
func (s *ParquetSource) Name() string {
	return "parquet:" + s.path
}

// LoadSnapshot reads the whole file
func (s *ParquetSource) LoadSnapshot(ctx context.Context) (*entities.Snapshot, error) {
	facilities, columns, err := ReadParquetFile(ctx, s.path)
	if err != nil {
		return nil, err
	}
	return entities.NewSnapshot(s.Name(), facilities, columns), nil
}

// ReadParquetFile reads facilities from a flat Parquet file. Cells go through
// the same column mapping as CSV input, so typed and text exports behave
// alike; nulls are missing values.
func ReadParquetFile(ctx context.Context, path string) ([]entities.Facility, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat dataset: %w", err)
	}
	file, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read parquet metadata %s: %w", path, err)
	}

	leaves := file.Schema().Columns()
	header := make([]string, len(leaves))
	for i, leaf := range leaves {
		header[i] = strings.Join(leaf, ".")
	}
	mapper := newRowMapper(header)
	if len(mapper.indexes) == 0 {
		return nil, nil, fmt.Errorf("parquet schema has no recognized columns")
	}

	reader := parquet.NewReader(f)
	defer reader.Close()

	rows := make([]parquet.Row, parquetBatchSize)
	record := make([]string, len(header))
	facilities := make([]entities.Facility, 0, file.NumRows())
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			clear(record)
			for _, v := range row {
				if col := v.Column(); col >= 0 && col < len(record) {
					record[col] = parquetCell(v)
				}
			}
			facilities = append(facilities, mapper.facility(record))
		}
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read parquet rows %s: %w", path, err)
		}
	}

	return facilities, mapper.columns(), nil
}

// parquetCell renders a value in the text form the column setters parse
func parquetCell(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
