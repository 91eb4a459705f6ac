package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/repositories"
	apperrors "github.com/hospitrack/backend/pkg/errors"
)

const insertBatchSize = 500

// textColumns and numberColumns list the table columns in scan order
var (
	textColumns = []string{
		entities.ColumnName,
		entities.ColumnAddress,
		entities.ColumnCity,
		entities.ColumnState,
		entities.ColumnZip,
		entities.ColumnMortalityText,
		"top_procedures",
	}
	numberColumns = []string{
		entities.ColumnLatitude,
		entities.ColumnLongitude,
		string(entities.ColumnTotalQuality),
		string(entities.ColumnHeartAttackQuality),
		string(entities.ColumnStrokeQuality),
		string(entities.ColumnPneumoniaQuality),
		entities.ColumnEDTime,
		entities.ColumnRating,
	}
)

// PostgresSource loads the facility snapshot from a Postgres table and
// replaces its contents on import.
type PostgresSource struct {
	db    *sql.DB
	goqu  *goqu.Database
	table string
}

// NewPostgresSource creates a Postgres-backed facility source
func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	return &PostgresSource{
		db:    db,
		goqu:  goqu.New("postgres", db),
		table: table,
	}
}

var (
	_ repositories.FacilitySource = (*PostgresSource)(nil)
	_ repositories.FacilityWriter = (*PostgresSource)(nil)
)

// Name identifies the source
func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// EnsureSchema creates the facility table when it does not exist
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	defs := []string{"id BIGSERIAL PRIMARY KEY"}
	for _, c := range textColumns {
		defs = append(defs, pq.QuoteIdentifier(c)+" TEXT")
	}
	for _, c := range numberColumns {
		defs = append(defs, pq.QuoteIdentifier(c)+" DOUBLE PRECISION")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(s.table), strings.Join(defs, ", "))

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.NewInternalError("failed to create facility table", err)
	}
	return nil
}

// LoadSnapshot reads every row of the facility table. A quality column
// counts as provided only if at least one row has a value for it.
func (s *PostgresSource) LoadSnapshot(ctx context.Context) (*entities.Snapshot, error) {
	cols := make([]interface{}, 0, len(textColumns)+len(numberColumns))
	for _, c := range textColumns {
		cols = append(cols, c)
	}
	for _, c := range numberColumns {
		cols = append(cols, c)
	}

	query, args, err := s.goqu.From(s.table).Select(cols...).Order(goqu.I("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query facilities", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var facilities []entities.Facility
	for rows.Next() {
		var text [7]sql.NullString
		var nums [8]sql.NullFloat64

		dest := make([]interface{}, 0, len(text)+len(nums))
		for i := range text {
			dest = append(dest, &text[i])
		}
		for i := range nums {
			dest = append(dest, &nums[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan facility", err)
		}

		f := entities.Facility{
			Name: text[0].String,
			Address: entities.Address{
				Street:  text[1].String,
				City:    text[2].String,
				State:   strings.ToUpper(strings.TrimSpace(text[3].String)),
				ZipCode: text[4].String,
			},
			MortalityText:            text[5].String,
			TopProcedures:            text[6].String,
			Latitude:                 nullFloat(nums[0]),
			Longitude:                nullFloat(nums[1]),
			TotalQualityPoints:       nullFloat(nums[2]),
			HeartAttackQualityPoints: nullFloat(nums[3]),
			StrokeQualityPoints:      nullFloat(nums[4]),
			PneumoniaQualityPoints:   nullFloat(nums[5]),
			AvgTimeInEDMinutes:       nullFloat(nums[6]),
			PatientRating:            nullFloat(nums[7]),
		}
		for i := 2; i <= 5; i++ {
			if nums[i].Valid {
				seen[numberColumns[i]] = true
			}
		}
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate facilities", err)
	}

	columns := []string{
		entities.ColumnName, entities.ColumnAddress, entities.ColumnCity, entities.ColumnState,
		entities.ColumnZip, entities.ColumnLatitude, entities.ColumnLongitude,
		entities.ColumnEDTime, entities.ColumnRating, entities.ColumnMortalityText, entities.ColumnProcedures,
	}
	for c := range seen {
		columns = append(columns, c)
	}

	return entities.NewSnapshot(s.Name(), facilities, columns), nil
}

// ReplaceAll swaps the table contents for facilities in one transaction
func (s *PostgresSource) ReplaceAll(ctx context.Context, facilities []entities.Facility) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query, args, err := s.goqu.Delete(s.table).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, apperrors.NewInternalError("failed to clear facility table", err)
	}

	inserted := 0
	for start := 0; start < len(facilities); start += insertBatchSize {
		end := min(start+insertBatchSize, len(facilities))

		rows := make([]interface{}, 0, end-start)
		for i := range facilities[start:end] {
			rows = append(rows, facilityRecord(&facilities[start+i]))
		}

		query, args, err := s.goqu.Insert(s.table).Rows(rows...).ToSQL()
		if err != nil {
			return 0, apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, apperrors.NewInternalError("failed to insert facilities", err)
		}
		inserted += end - start
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewInternalError("failed to commit facilities", err)
	}
	return inserted, nil
}

func facilityRecord(f *entities.Facility) goqu.Record {
	return goqu.Record{
		entities.ColumnName:                       f.Name,
		entities.ColumnAddress:                    nullString(f.Address.Street),
		entities.ColumnCity:                       nullString(f.Address.City),
		entities.ColumnState:                      nullString(f.Address.State),
		entities.ColumnZip:                        nullString(f.Address.ZipCode),
		entities.ColumnMortalityText:              nullString(f.MortalityText),
		"top_procedures":                          nullString(f.TopProcedures),
		entities.ColumnLatitude:                   f.Latitude,
		entities.ColumnLongitude:                  f.Longitude,
		string(entities.ColumnTotalQuality):       f.TotalQualityPoints,
		string(entities.ColumnHeartAttackQuality): f.HeartAttackQualityPoints,
		string(entities.ColumnStrokeQuality):      f.StrokeQualityPoints,
		string(entities.ColumnPneumoniaQuality):   f.PneumoniaQualityPoints,
		entities.ColumnEDTime:                     f.AvgTimeInEDMinutes,
		entities.ColumnRating:                     f.PatientRating,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
