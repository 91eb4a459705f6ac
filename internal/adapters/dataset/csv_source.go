package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/repositories"
)

// CSVSource loads the facility snapshot from a CSV export
type CSVSource struct {
	path string
}

// NewCSVSource creates a file-backed facility source
func NewCSVSource(path string) repositories.FacilitySource {
	return &CSVSource{path: path}
}

// Name identifies the source
func (s *CSVSource) Name() string {
	return "file:" + s.path
}

// LoadSnapshot reads and parses the whole file
func (s *CSVSource) LoadSnapshot(ctx context.Context) (*entities.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	facilities, columns, err := ReadFacilities(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.path, err)
	}
	return entities.NewSnapshot(s.Name(), facilities, columns), nil
}

// ReadFacilities parses CSV records into facilities. It returns the
// whitelisted columns found in the header. Repeated header rows are
// skipped, and cells that do not parse are left missing.
func ReadFacilities(ctx context.Context, r io.Reader) ([]entities.Facility, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	mapper := newRowMapper(header)
	if len(mapper.indexes) == 0 {
		return nil, nil, fmt.Errorf("header has no recognized columns")
	}

	var facilities []entities.Facility
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// skip malformed lines
				continue
			}
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if mapper.isHeader(record) {
			continue
		}
		facilities = append(facilities, mapper.facility(record))
	}

	return facilities, mapper.columns(), nil
}
