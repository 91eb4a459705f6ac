package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
	apperrors "github.com/hospitrack/backend/pkg/errors"
)

// DefaultFallbackLimit is how many nearest facilities are returned when the
// radius filter matches nothing.
const DefaultFallbackLimit = 2000

// RankRequest holds the request-scoped ranking parameters.
type RankRequest struct {
	Origin    entities.Location
	Complaint entities.Complaint
	SortKey   entities.SortKey
	RadiusKm  float64
	TopK      int
	// State optionally restricts candidates to one state before the radius filter.
	State string
	// Weights overrides the service's composite weights for this request.
	Weights *entities.CompositeWeights
}

// RankResult is the ordered, capped output of the pipeline.
type RankResult struct {
	Facilities []entities.RankedFacility `json:"results"`
	Adjustment ComplaintAdjustment       `json:"adjustment"`
	SortKey    entities.SortKey          `json:"sort"`
	// Fallback is true when the radius matched nothing and the nearest
	// facilities were returned instead.
	Fallback bool `json:"fallback"`
	// Candidates counts the facilities that survived geofiltering, before the cap.
	Candidates int    `json:"candidates"`
	SnapshotID string `json:"snapshot_id"`
}

// RankingService runs the complaint → geofilter → sort → cap pipeline. It
// holds no per-request state and is safe for concurrent use.
type RankingService struct {
	fallbackLimit int
	weights       entities.CompositeWeights
}

// NewRankingService creates a ranking service. A non-positive fallbackLimit
// uses DefaultFallbackLimit.
func NewRankingService(fallbackLimit int, weights entities.CompositeWeights) *RankingService {
	if fallbackLimit <= 0 {
		fallbackLimit = DefaultFallbackLimit
	}
	return &RankingService{
		fallbackLimit: fallbackLimit,
		weights:       weights,
	}
}

// Rank orders the snapshot's facilities for req. A snapshot with no located
// facilities yields an empty result rather than an error.
func (s *RankingService) Rank(ctx context.Context, snap *entities.Snapshot, req RankRequest) (*RankResult, error) {
	if snap == nil {
		return nil, apperrors.NewUnavailableError("facility dataset is not loaded")
	}
	if !validCoordinate(req.Origin) {
		return nil, apperrors.NewValidationError("origin coordinates are out of range")
	}

	ctx, span := observability.StartSpan(ctx, "RankingService.Rank")
	defer span.End()

	sortKey := req.SortKey
	if _, ok := entities.ParseSortKey(string(sortKey)); !ok {
		sortKey = entities.DefaultSortKey
	}
	topK := req.TopK
	if topK < 1 {
		topK = 1
	}

	candidates := entities.NewRankedFacilities(snap.Facilities)
	candidates, adj := ApplyComplaintAdjustment(candidates, req.Complaint, snap)

	located := ComputeDistances(dropUnlocated(candidates), req.Origin)
	if state := strings.TrimSpace(req.State); state != "" {
		located = filterState(located, state)
	}

	nearby := withinRadius(located, req.RadiusKm)
	fallback := false
	if len(nearby) == 0 && len(located) > 0 {
		nearby = nearest(located, s.fallbackLimit)
		fallback = true
		observability.LoggerFromContext(ctx).Debug().
			Float64("radius_km", req.RadiusKm).
			Int("fallback_count", len(nearby)).
			Msg("radius matched no facilities, using nearest")
	}

	nearby = PrepareMortalitySort(nearby)
	if sortKey == entities.SortComposite || req.Weights != nil {
		weights := s.weights
		if req.Weights != nil {
			weights = *req.Weights
		}
		nearby = ComputeCompositeScore(nearby, weights)
	}

	SortFacilities(nearby, sortKey)

	candidateCount := len(nearby)
	if len(nearby) > topK {
		nearby = nearby[:topK]
	}

	observability.SetSpanAttributes(span,
		attribute.String("ranking.sort", string(sortKey)),
		attribute.String("ranking.complaint", string(req.Complaint)),
		attribute.Float64("ranking.radius_km", req.RadiusKm),
		attribute.Int("ranking.candidates", candidateCount),
		attribute.Bool("ranking.fallback", fallback),
	)

	return &RankResult{
		Facilities: nearby,
		Adjustment: adj,
		SortKey:    sortKey,
		Fallback:   fallback,
		Candidates: candidateCount,
		SnapshotID: snap.ID,
	}, nil
}

func dropUnlocated(in []entities.RankedFacility) []entities.RankedFacility {
	out := make([]entities.RankedFacility, 0, len(in))
	for i := range in {
		if in[i].Located() {
			out = append(out, in[i])
		}
	}
	return out
}

func filterState(in []entities.RankedFacility, state string) []entities.RankedFacility {
	out := make([]entities.RankedFacility, 0, len(in))
	for i := range in {
		if strings.EqualFold(strings.TrimSpace(in[i].Address.State), state) {
			out = append(out, in[i])
		}
	}
	return out
}

func withinRadius(in []entities.RankedFacility, radiusKm float64) []entities.RankedFacility {
	out := make([]entities.RankedFacility, 0, len(in))
	for i := range in {
		d := in[i].DistanceKm
		if d.Known() && float64(d) <= radiusKm {
			out = append(out, in[i])
		}
	}
	return out
}

// nearest returns up to n facilities with known distances, closest first.
func nearest(in []entities.RankedFacility, n int) []entities.RankedFacility {
	out := make([]entities.RankedFacility, 0, len(in))
	for i := range in {
		if in[i].DistanceKm.Known() {
			out = append(out, in[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type tieBreaker func(a, b *entities.RankedFacility) (less, decided bool)

// SortFacilities orders facilities in place for key. Missing values sort
// last regardless of direction; ties fall through to the key's secondary
// criteria, then distance, then name.
func SortFacilities(facilities []entities.RankedFacility, key entities.SortKey) {
	chain := comparatorChain(key)
	sort.SliceStable(facilities, func(i, j int) bool {
		a, b := &facilities[i], &facilities[j]
		for _, cmp := range chain {
			if less, decided := cmp(a, b); decided {
				return less
			}
		}
		return false
	})
}

func comparatorChain(key entities.SortKey) []tieBreaker {
	var chain []tieBreaker
	switch key {
	case entities.SortEDTime:
		chain = []tieBreaker{byEDTime, byRating}
	case entities.SortMortality:
		chain = []tieBreaker{mortalityLess}
	case entities.SortRating:
		chain = []tieBreaker{byRating, byEDTime}
	case entities.SortComposite:
		chain = []tieBreaker{byComposite}
	default:
		chain = []tieBreaker{byQuality}
	}
	return append(chain, byDistance, byName)
}

func byQuality(a, b *entities.RankedFacility) (bool, bool) {
	return descending(a.AdjustedQualityPoints, b.AdjustedQualityPoints)
}

func byRating(a, b *entities.RankedFacility) (bool, bool) {
	return descending(a.PatientRating, b.PatientRating)
}

func byComposite(a, b *entities.RankedFacility) (bool, bool) {
	return descending(a.CompositeScore, b.CompositeScore)
}

func byEDTime(a, b *entities.RankedFacility) (bool, bool) {
	av, aok := a.KnownEDTime()
	bv, bok := b.KnownEDTime()
	return ascending(av, aok, bv, bok)
}

func byDistance(a, b *entities.RankedFacility) (bool, bool) {
	ad, bd := a.DistanceKm, b.DistanceKm
	return ascending(float64(ad), ad.Known(), float64(bd), bd.Known())
}

func byName(a, b *entities.RankedFacility) (bool, bool) {
	if a.Name == b.Name {
		return false, false
	}
	return a.Name < b.Name, true
}

func descending(a, b *float64) (bool, bool) {
	av, aok := present(a)
	bv, bok := present(b)
	switch {
	case !aok && !bok:
		return false, false
	case !aok:
		return false, true
	case !bok:
		return true, true
	case av != bv:
		return av > bv, true
	}
	return false, false
}

func ascending(av float64, aok bool, bv float64, bok bool) (bool, bool) {
	aok = aok && !math.IsNaN(av)
	bok = bok && !math.IsNaN(bv)
	switch {
	case !aok && !bok:
		return false, false
	case !aok:
		return false, true
	case !bok:
		return true, true
	case av != bv:
		return av < bv, true
	}
	return false, false
}

func present(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) {
		return 0, false
	}
	return *v, true
}
