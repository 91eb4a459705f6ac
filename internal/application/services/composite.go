package services

import (
	"math"

	"github.com/hospitrack/backend/internal/domain/entities"
)

const neutralScore = 0.5

type compositeComponent struct {
	weight  float64
	value   func(f *entities.RankedFacility) (float64, bool)
	inverse bool
}

// ComputeCompositeScore returns a copy of facilities with CompositeScore set
// to a weighted blend of quality, ED wait, patient rating and mortality.
//
// Each component is min-max normalized over the given candidates. Wait is
// inverted after normalization. Missing values get the least favorable
// normalized value (0); a component with no values at all, or with no
// variance, contributes 0.5 to every row. The blend is divided by the weight
// total so the score always lies in [0,1]. MortalityMagnitude must already be
// populated (see PrepareMortalitySort).
func ComputeCompositeScore(facilities []entities.RankedFacility, weights entities.CompositeWeights) []entities.RankedFacility {
	out := entities.CloneRanked(facilities)
	if len(out) == 0 {
		return out
	}

	components := []compositeComponent{
		{weight: weights.Quality, value: func(f *entities.RankedFacility) (float64, bool) { return deref(f.AdjustedQualityPoints) }},
		{weight: weights.Wait, value: func(f *entities.RankedFacility) (float64, bool) { return f.KnownEDTime() }, inverse: true},
		{weight: weights.Rating, value: func(f *entities.RankedFacility) (float64, bool) { return deref(f.PatientRating) }},
		{weight: weights.Mortality, value: func(f *entities.RankedFacility) (float64, bool) {
			if f.MortalityMagnitude == nil {
				return 0, false
			}
			return float64(*f.MortalityMagnitude), true
		}},
	}

	totals := make([]float64, len(out))
	weightSum := 0.0
	for _, c := range components {
		w := math.Max(c.weight, 0)
		if w == 0 || math.IsNaN(w) {
			continue
		}
		weightSum += w
		for i, n := range normalizeComponent(out, c) {
			totals[i] += w * n
		}
	}

	for i := range out {
		score := 0.0
		if weightSum > 0 {
			score = clamp01(totals[i] / weightSum)
		}
		s := score
		out[i].CompositeScore = &s
	}
	return out
}

func normalizeComponent(facilities []entities.RankedFacility, c compositeComponent) []float64 {
	values := make([]float64, len(facilities))
	present := make([]bool, len(facilities))
	lo, hi := math.Inf(1), math.Inf(-1)
	seen := false

	for i := range facilities {
		v, ok := c.value(&facilities[i])
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[i], present[i], seen = v, true, true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	norm := make([]float64, len(facilities))
	if !seen || hi == lo {
		for i := range norm {
			norm[i] = neutralScore
		}
		return norm
	}

	for i := range facilities {
		if !present[i] {
			norm[i] = 0
			continue
		}
		n := (values[i] - lo) / (hi - lo)
		if c.inverse {
			n = 1 - n
		}
		norm[i] = n
	}
	return norm
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
