package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/hospitrack/backend/internal/domain/entities"
)

// APIColumns is the whitelist of dataset columns kept by the importer and
// read by the sources. Anything else in the input is ignored.
var APIColumns = []string{
	entities.ColumnName,
	entities.ColumnAddress,
	entities.ColumnCity,
	entities.ColumnState,
	entities.ColumnZip,
	entities.ColumnLatitude,
	entities.ColumnLongitude,
	string(entities.ColumnTotalQuality),
	entities.ColumnEDTime,
	entities.ColumnRating,
	entities.ColumnMortalityText,
	string(entities.ColumnHeartAttackQuality),
	string(entities.ColumnStrokeQuality),
	string(entities.ColumnPneumoniaQuality),
	entities.ColumnProcedures,
}

// columnAliases maps alternative header spellings seen in source files to
// the canonical column name.
var columnAliases = map[string]string{
	"latitude":  entities.ColumnLatitude,
	"longitude": entities.ColumnLongitude,
	"lng":       entities.ColumnLongitude,
	"name":      entities.ColumnName,
	"facility":  entities.ColumnName,
	"state":     entities.ColumnState,
	"zip":       entities.ColumnZip,
	"zip_code":  entities.ColumnZip,
}

// canonicalColumn normalizes a header cell. Unknown columns are returned
// trimmed so that the whitelist check can reject them.
func canonicalColumn(header string) string {
	h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	if alias, ok := columnAliases[strings.ToLower(h)]; ok {
		return alias
	}
	return h
}

// parseNumber converts a raw cell to a float. Empty, non-numeric and
// non-finite cells are treated as missing.
func parseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// cleanText trims a text cell and maps the usual null markers to "".
func cleanText(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "nan", "null", "none", "n/a":
		return ""
	}
	return s
}

// rowSetter assigns one column value to a facility
type rowSetter func(f *entities.Facility, raw string)

var setters = map[string]rowSetter{
	entities.ColumnName:    func(f *entities.Facility, raw string) { f.Name = cleanText(raw) },
	entities.ColumnAddress: func(f *entities.Facility, raw string) { f.Address.Street = cleanText(raw) },
	entities.ColumnCity:    func(f *entities.Facility, raw string) { f.Address.City = cleanText(raw) },
	entities.ColumnState: func(f *entities.Facility, raw string) {
		f.Address.State = strings.ToUpper(cleanText(raw))
	},
	entities.ColumnZip:       func(f *entities.Facility, raw string) { f.Address.ZipCode = normalizeZip(raw) },
	entities.ColumnLatitude:  func(f *entities.Facility, raw string) { f.Latitude = parseCoordinate(raw, 90) },
	entities.ColumnLongitude: func(f *entities.Facility, raw string) { f.Longitude = parseCoordinate(raw, 180) },
	string(entities.ColumnTotalQuality): func(f *entities.Facility, raw string) {
		f.TotalQualityPoints = parseNumber(raw)
	},
	string(entities.ColumnHeartAttackQuality): func(f *entities.Facility, raw string) {
		f.HeartAttackQualityPoints = parseNumber(raw)
	},
	string(entities.ColumnStrokeQuality): func(f *entities.Facility, raw string) {
		f.StrokeQualityPoints = parseNumber(raw)
	},
	string(entities.ColumnPneumoniaQuality): func(f *entities.Facility, raw string) {
		f.PneumoniaQualityPoints = parseNumber(raw)
	},
	entities.ColumnEDTime:        func(f *entities.Facility, raw string) { f.AvgTimeInEDMinutes = parseNumber(raw) },
	entities.ColumnRating:        func(f *entities.Facility, raw string) { f.PatientRating = parseNumber(raw) },
	entities.ColumnMortalityText: func(f *entities.Facility, raw string) { f.MortalityText = cleanText(raw) },
	entities.ColumnProcedures:    func(f *entities.Facility, raw string) { f.TopProcedures = cleanText(raw) },
}

func parseCoordinate(raw string, limit float64) *float64 {
	v := parseNumber(raw)
	if v == nil || *v < -limit || *v > limit {
		return nil
	}
	return v
}

// normalizeZip keeps the 5-digit US ZIP, restoring leading zeros lost by
// spreadsheet exports ("2134.0" → "02134").
func normalizeZip(raw string) string {
	s := cleanText(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, ".0")
	if i := strings.IndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	if _, err := strconv.Atoi(s); err == nil && len(s) < 5 {
		s = strings.Repeat("0", 5-len(s)) + s
	}
	return s
}

// rowMapper converts records into facilities using a header layout
type rowMapper struct {
	header  []string
	indexes map[string]int
}

func newRowMapper(header []string) *rowMapper {
	m := &rowMapper{
		header:  make([]string, len(header)),
		indexes: make(map[string]int, len(header)),
	}
	for i, h := range header {
		col := canonicalColumn(h)
		m.header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, known := setters[col]; !known {
			continue
		}
		if _, dup := m.indexes[col]; !dup {
			m.indexes[col] = i
		}
	}
	return m
}

// columns returns the whitelisted columns present in the header
func (m *rowMapper) columns() []string {
	out := make([]string, 0, len(m.indexes))
	for _, c := range APIColumns {
		if _, ok := m.indexes[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// isHeader reports whether record repeats the header row, as happens when
// several CSV exports are concatenated.
func (m *rowMapper) isHeader(record []string) bool {
	if len(record) != len(m.header) {
		return false
	}
	for i := range record {
		if strings.TrimSpace(record[i]) != m.header[i] {
			return false
		}
	}
	return true
}

func (m *rowMapper) facility(record []string) entities.Facility {
	var f entities.Facility
	for col, idx := range m.indexes {
		if idx < len(record) {
			setters[col](&f, record[idx])
		}
	}
	return f
}
