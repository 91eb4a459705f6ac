package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/domain/entities"
)

const sampleCSV = "\ufeffhospital_name,detail_address,detail_city,detail_state,detail_zip,lat,lon,total_quality_points,adj_total_stroke,detail_avg_time_in_ed_minutes,detail_overall_patient_rating,detail_mortality_overall_text,unused\n" +
	"Mercy Hospital,2525 S Michigan Ave,Chicago,il,60616.0,41.8460,-87.6229,88,72,145,4,10% better than national,x\n" +
	"hospital_name,detail_address,detail_city,detail_state,detail_zip,lat,lon,total_quality_points,adj_total_stroke,detail_avg_time_in_ed_minutes,detail_overall_patient_rating,detail_mortality_overall_text,unused\n" +
	"Rural Clinic,1 Main St,Smalltown,IA,501,,,Not Available,,0,nan,Not used,y\n"

func TestReadFacilities(t *testing.T) {
	facilities, columns, err := ReadFacilities(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, facilities, 2, "repeated header row is dropped")

	mercy := facilities[0]
	assert.Equal(t, "Mercy Hospital", mercy.Name)
	assert.Equal(t, "IL", mercy.Address.State)
	assert.Equal(t, "60616", mercy.Address.ZipCode)
	require.True(t, mercy.Located())
	assert.Equal(t, 41.8460, *mercy.Latitude)
	assert.Equal(t, 88.0, *mercy.TotalQualityPoints)
	assert.Equal(t, 72.0, *mercy.StrokeQualityPoints)
	assert.Nil(t, mercy.HeartAttackQualityPoints)
	assert.Equal(t, "10% better than national", mercy.MortalityText)

	rural := facilities[1]
	assert.False(t, rural.Located())
	assert.Nil(t, rural.TotalQualityPoints, "non-numeric cell is missing")
	assert.Nil(t, rural.PatientRating)
	assert.Equal(t, "00501", rural.Address.ZipCode)
	_, known := rural.KnownEDTime()
	assert.False(t, known)

	assert.Contains(t, columns, entities.ColumnName)
	assert.Contains(t, columns, string(entities.ColumnStrokeQuality))
	assert.NotContains(t, columns, string(entities.ColumnHeartAttackQuality))
	assert.NotContains(t, columns, "unused")
}

func TestReadFacilities_Aliases(t *testing.T) {
	input := "Name,State,Latitude,Longitude\nA,wi,43.0,-88.0\n"

	facilities, columns, err := ReadFacilities(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, facilities, 1)
	assert.True(t, facilities[0].Located())
	assert.Equal(t, "WI", facilities[0].Address.State)
	assert.ElementsMatch(t, []string{entities.ColumnName, entities.ColumnState, entities.ColumnLatitude, entities.ColumnLongitude}, columns)
}

func TestReadFacilities_OutOfRangeCoordinates(t *testing.T) {
	input := "hospital_name,lat,lon\nA,123,-88\n"

	facilities, _, err := ReadFacilities(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Nil(t, facilities[0].Latitude)
	assert.False(t, facilities[0].Located())
}

func TestReadFacilities_Errors(t *testing.T) {
	_, _, err := ReadFacilities(context.Background(), strings.NewReader(""))
	assert.Error(t, err)

	_, _, err = ReadFacilities(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	assert.Error(t, err)
}

func TestCSVSource_LoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "us_er.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	snap, err := NewCSVSource(path).LoadSnapshot(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Facilities, 2)
	assert.Equal(t, 1, snap.LocatedCount())
	assert.True(t, snap.HasColumn(string(entities.ColumnTotalQuality)))
	assert.NotEmpty(t, snap.ID)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).LoadSnapshot(context.Background())
	assert.Error(t, err)
}
