package entities

import (
	"encoding/json"
	"math"
)

// Distance is a distance in kilometers. UnknownDistance marks facilities
// whose distance cannot be computed; it compares greater than any real
// distance and encodes as JSON null.
type Distance float64

// UnknownDistance is the "cannot be computed" sentinel.
var UnknownDistance = Distance(math.Inf(1))

// Known reports whether d is a real, finite distance.
func (d Distance) Known() bool {
	f := float64(d)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// MarshalJSON implements json.Marshaler.
func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// MortalityCategory is the normalized outcome tier of a facility.
type MortalityCategory string

const (
	MortalityBetter  MortalityCategory = "better"
	MortalityWorse   MortalityCategory = "worse"
	MortalityNotUsed MortalityCategory = "not_used"
)

// Order returns the tier priority: better=0, worse=1, not_used=2.
func (c MortalityCategory) Order() int {
	switch c {
	case MortalityBetter:
		return 0
	case MortalityWorse:
		return 1
	default:
		return 2
	}
}

// RankedFacility is a facility plus the fields derived for a single query.
// It is built per request and never written back to the snapshot.
type RankedFacility struct {
	Facility
	DistanceKm            Distance          `json:"distance_km"`
	AdjustedQualityPoints *float64          `json:"adjusted_quality_points"`
	MortalityCategory     MortalityCategory `json:"mortality_category"`
	MortalityMagnitude    *int              `json:"mortality_magnitude"`
	MortalityOrder        int               `json:"mortality_order"`
	CompositeScore        *float64          `json:"composite_score,omitempty"`
}

// NewRankedFacilities copies facilities into a fresh candidate set with all
// derived fields at their "unknown" values.
func NewRankedFacilities(facilities []Facility) []RankedFacility {
	out := make([]RankedFacility, len(facilities))
	for i := range facilities {
		out[i] = RankedFacility{
			Facility:          facilities[i],
			DistanceKm:        UnknownDistance,
			MortalityCategory: MortalityNotUsed,
			MortalityOrder:    MortalityNotUsed.Order(),
		}
	}
	return out
}

// CloneRanked returns a shallow copy of the candidate slice so that a
// transform can write derived fields without touching its input.
func CloneRanked(in []RankedFacility) []RankedFacility {
	out := make([]RankedFacility, len(in))
	copy(out, in)
	return out
}
