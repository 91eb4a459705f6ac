package services

import (
	"fmt"

	"github.com/hospitrack/backend/internal/domain/entities"
)

var complaintColumns = map[entities.Complaint]entities.QualityColumn{
	entities.ComplaintOverall:           entities.ColumnTotalQuality,
	entities.ComplaintChestPain:         entities.ColumnHeartAttackQuality,
	entities.ComplaintHeartAttack:       entities.ColumnHeartAttackQuality,
	entities.ComplaintSlurredSpeech:     entities.ColumnStrokeQuality,
	entities.ComplaintFacialDroop:       entities.ColumnStrokeQuality,
	entities.ComplaintStroke:            entities.ColumnStrokeQuality,
	entities.ComplaintShortnessOfBreath: entities.ColumnPneumoniaQuality,
	entities.ComplaintTroubleBreathing:  entities.ColumnPneumoniaQuality,
	entities.ComplaintCough:             entities.ColumnPneumoniaQuality,
	entities.ComplaintFever:             entities.ColumnPneumoniaQuality,
}

// ColumnChecker reports which dataset columns are present. *entities.Snapshot
// satisfies it.
type ColumnChecker interface {
	HasColumn(name string) bool
}

// ComplaintAdjustment describes which quality column was applied.
type ComplaintAdjustment struct {
	Complaint entities.Complaint     `json:"complaint"`
	Column    entities.QualityColumn `json:"column,omitempty"`
	Label     string                 `json:"label"`
	Available bool                   `json:"available"`
}

// ComplaintColumn returns the quality column a complaint maps to. Unknown
// complaints map to the overall column.
func ComplaintColumn(complaint entities.Complaint) entities.QualityColumn {
	if col, ok := complaintColumns[complaint]; ok {
		return col
	}
	return entities.ColumnTotalQuality
}

// ApplyComplaintAdjustment returns a copy of facilities with
// AdjustedQualityPoints taken from the column relevant to complaint. A
// missing column falls back to overall quality; if that is missing too every
// row is left without a value and the adjustment is marked unavailable.
func ApplyComplaintAdjustment(facilities []entities.RankedFacility, complaint entities.Complaint, columns ColumnChecker) ([]entities.RankedFacility, ComplaintAdjustment) {
	adj := ComplaintAdjustment{Complaint: complaint}

	col := ComplaintColumn(complaint)
	switch {
	case columns.HasColumn(string(col)):
		adj.Column = col
		adj.Label = fmt.Sprintf("Quality Points (adjusted for %s)", complaint)
		adj.Available = true
	case columns.HasColumn(string(entities.ColumnTotalQuality)):
		adj.Column = entities.ColumnTotalQuality
		adj.Label = "Overall Quality Points"
		adj.Available = true
	default:
		adj.Label = "Quality Points"
	}

	out := entities.CloneRanked(facilities)
	for i := range out {
		if adj.Available {
			out[i].AdjustedQualityPoints = out[i].QualityPoints(adj.Column)
		} else {
			out[i].AdjustedQualityPoints = nil
		}
	}
	return out, adj
}
