package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/domain/entities"
	apperrors "github.com/hospitrack/backend/pkg/errors"
)

func setupMockDB(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresSource(db, "er_facilities"), mock
}

func facilityRows() *sqlmock.Rows {
	cols := append(append([]string{}, textColumns...), numberColumns...)
	return sqlmock.NewRows(cols).
		AddRow("Mercy Hospital", "2525 S Michigan Ave", "Chicago", "il", "60616", "10% better", nil,
			41.846, -87.6229, 88.0, nil, 72.0, nil, 145.0, 4.0).
		AddRow("Rural Clinic", nil, nil, "IA", nil, nil, nil,
			nil, nil, nil, nil, nil, nil, nil, nil)
}

func TestPostgresSource_LoadSnapshot(t *testing.T) {
	source, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "er_facilities" ORDER BY "id" ASC`).WillReturnRows(facilityRows())

	snap, err := source.LoadSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Facilities, 2)
	mercy := snap.Facilities[0]
	assert.Equal(t, "Mercy Hospital", mercy.Name)
	assert.Equal(t, "IL", mercy.Address.State)
	assert.Equal(t, 88.0, *mercy.TotalQualityPoints)
	assert.Nil(t, mercy.HeartAttackQualityPoints)
	assert.True(t, mercy.Located())
	assert.False(t, snap.Facilities[1].Located())

	assert.True(t, snap.HasColumn(string(entities.ColumnTotalQuality)))
	assert.True(t, snap.HasColumn(string(entities.ColumnStrokeQuality)))
	assert.False(t, snap.HasColumn(string(entities.ColumnHeartAttackQuality)), "all-null quality column is not provided")
	assert.Equal(t, "postgres:er_facilities", snap.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_LoadSnapshotError(t *testing.T) {
	source, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "er_facilities"`).WillReturnError(errors.New("connection refused"))

	_, err := source.LoadSnapshot(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ReplaceAll(t *testing.T) {
	source, mock := setupMockDB(t)
	facilities := []entities.Facility{
		{Name: "A", Latitude: entities.Float(41.0), Longitude: entities.Float(-87.0)},
		{Name: "B", Address: entities.Address{State: "IL"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "er_facilities"`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`INSERT INTO "er_facilities"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := source.ReplaceAll(context.Background(), facilities)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ReplaceAllRollsBack(t *testing.T) {
	source, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "er_facilities"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "er_facilities"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := source.ReplaceAll(context.Background(), []entities.Facility{{Name: "A"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_EnsureSchema(t *testing.T) {
	source, mock := setupMockDB(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "er_facilities"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, source.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
