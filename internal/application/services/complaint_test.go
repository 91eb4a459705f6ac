package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/domain/entities"
)

type columnSet map[string]bool

func (c columnSet) HasColumn(name string) bool {
	return c[name]
}

func complaintFixture() []entities.RankedFacility {
	return entities.NewRankedFacilities([]entities.Facility{
		{
			Name:                     "A",
			TotalQualityPoints:       entities.Float(80),
			HeartAttackQualityPoints: entities.Float(60),
			StrokeQualityPoints:      entities.Float(75),
		},
		{
			Name:               "B",
			TotalQualityPoints: entities.Float(50),
		},
	})
}

func TestApplyComplaintAdjustment(t *testing.T) {
	t.Run("uses condition column when present", func(t *testing.T) {
		cols := columnSet{"total_quality_points": true, "adj_total_heartattack": true}
		out, adj := ApplyComplaintAdjustment(complaintFixture(), entities.ComplaintChestPain, cols)

		assert.True(t, adj.Available)
		assert.Equal(t, entities.ColumnHeartAttackQuality, adj.Column)
		assert.Equal(t, "Quality Points (adjusted for Chest Pain)", adj.Label)
		require.NotNil(t, out[0].AdjustedQualityPoints)
		assert.Equal(t, 60.0, *out[0].AdjustedQualityPoints)
		// present column, missing cell stays missing
		assert.Nil(t, out[1].AdjustedQualityPoints)
	})

	t.Run("falls back to overall quality", func(t *testing.T) {
		cols := columnSet{"total_quality_points": true}
		out, adj := ApplyComplaintAdjustment(complaintFixture(), entities.ComplaintStroke, cols)

		assert.Equal(t, entities.ColumnTotalQuality, adj.Column)
		assert.Equal(t, "Overall Quality Points", adj.Label)
		assert.Equal(t, 80.0, *out[0].AdjustedQualityPoints)
		assert.Equal(t, 50.0, *out[1].AdjustedQualityPoints)
	})

	t.Run("no quality columns at all", func(t *testing.T) {
		out, adj := ApplyComplaintAdjustment(complaintFixture(), entities.ComplaintFever, columnSet{})

		assert.False(t, adj.Available)
		assert.Equal(t, "Quality Points", adj.Label)
		for _, f := range out {
			assert.Nil(t, f.AdjustedQualityPoints)
		}
	})

	t.Run("overall complaint", func(t *testing.T) {
		cols := columnSet{"total_quality_points": true}
		_, adj := ApplyComplaintAdjustment(complaintFixture(), entities.ComplaintOverall, cols)

		assert.Equal(t, entities.ColumnTotalQuality, adj.Column)
		assert.Equal(t, "Quality Points (adjusted for Overall)", adj.Label)
	})
}

func TestComplaintColumn(t *testing.T) {
	assert.Equal(t, entities.ColumnPneumoniaQuality, ComplaintColumn(entities.ComplaintCough))
	assert.Equal(t, entities.ColumnStrokeQuality, ComplaintColumn(entities.ComplaintFacialDroop))
	assert.Equal(t, entities.ColumnTotalQuality, ComplaintColumn(entities.Complaint("Broken Arm")))
}
