package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hospitrack/backend/internal/application/services"
	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
	apperrors "github.com/hospitrack/backend/pkg/errors"
)

// SnapshotReader returns the currently published dataset snapshot
type SnapshotReader interface {
	Current() (*entities.Snapshot, error)
}

// LocationResolver turns request parameters into a ranking origin
type LocationResolver interface {
	Resolve(ctx context.Context, address string, lat, lon *float64) (*services.ResolvedLocation, error)
}

// Ranker runs the ranking pipeline over a snapshot
type Ranker interface {
	Rank(ctx context.Context, snap *entities.Snapshot, req services.RankRequest) (*services.RankResult, error)
}

// HospitalLimits bounds the numeric query parameters of /api/hospitals
type HospitalLimits struct {
	DefaultTopK     int
	MaxTopK         int
	DefaultRadiusKm float64
	MinRadiusKm     float64
	MaxRadiusKm     float64
}

// DefaultHospitalLimits returns top_k 50 (1..2000) and within_km 200 (1..10000).
func DefaultHospitalLimits() HospitalLimits {
	return HospitalLimits{
		DefaultTopK:     50,
		MaxTopK:         2000,
		DefaultRadiusKm: 200,
		MinRadiusKm:     1,
		MaxRadiusKm:     10000,
	}
}

// fallbackStates is served by /api/states while no snapshot is available
var fallbackStates = []string{
	"IL", "IN", "IA", "MI", "MN", "MO", "OH", "WI", "PA", "NY",
	"CA", "TX", "FL", "GA", "NC", "VA", "WA", "CO", "AZ", "MA",
}

// HospitalResponse is the body of GET /api/hospitals
type HospitalResponse struct {
	Count        int                        `json:"count"`
	Results      []entities.RankedFacility  `json:"results"`
	QualityLabel string                     `json:"quality_label"`
	Complaint    entities.Complaint         `json:"complaint"`
	Sort         entities.SortKey           `json:"sort"`
	Fallback     bool                       `json:"fallback"`
	Location     *services.ResolvedLocation `json:"location"`
	SnapshotID   string                     `json:"snapshot_id"`
}

// HospitalHandler serves the ranking endpoints
type HospitalHandler struct {
	snapshots SnapshotReader
	resolver  LocationResolver
	ranker    Ranker
	limits    HospitalLimits
	metrics   *observability.Metrics
}

// NewHospitalHandler creates a new hospital handler
func NewHospitalHandler(snapshots SnapshotReader, resolver LocationResolver, ranker Ranker, limits HospitalLimits, metrics *observability.Metrics) *HospitalHandler {
	return &HospitalHandler{
		snapshots: snapshots,
		resolver:  resolver,
		ranker:    ranker,
		limits:    limits,
		metrics:   metrics,
	}
}

// ListHospitals handles GET /api/hospitals
func (h *HospitalHandler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	snap, err := h.snapshots.Current()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	lat, err := parseOptionalFloat(query.Get("lat"), "lat")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	lon, err := parseOptionalFloat(query.Get("lon"), "lon")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	topK, err := h.parseTopK(query.Get("top_k"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	radius, err := h.parseRadius(query.Get("within_km"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	sortKey, ok := entities.ParseSortKey(query.Get("sort"))
	if !ok && strings.TrimSpace(query.Get("sort")) != "" {
		observability.LoggerFromContext(ctx).Debug().Str("sort", query.Get("sort")).Msg("unknown sort key, using default")
	}
	complaint, _ := entities.ParseComplaint(query.Get("complaint"))

	location, err := h.resolver.Resolve(ctx, query.Get("address"), lat, lon)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if location.Degraded {
		preventStore(w)
	}

	start := time.Now()
	result, err := h.ranker.Rank(ctx, snap, services.RankRequest{
		Origin:    location.Location,
		Complaint: complaint,
		SortKey:   sortKey,
		RadiusKm:  radius,
		TopK:      topK,
		State:     query.Get("state"),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	observability.RecordRanking(ctx, h.metrics, string(result.SortKey), result.Fallback, time.Since(start))

	respondWithJSON(w, http.StatusOK, HospitalResponse{
		Count:        len(result.Facilities),
		Results:      result.Facilities,
		QualityLabel: result.Adjustment.Label,
		Complaint:    complaint,
		Sort:         result.SortKey,
		Fallback:     result.Fallback,
		Location:     location,
		SnapshotID:   result.SnapshotID,
	})
}

// ListStates handles GET /api/states
func (h *HospitalHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Current()
	if err != nil || !snap.HasColumn(entities.ColumnState) {
		respondWithJSON(w, http.StatusOK, map[string][]string{"states": fallbackStates})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"states": distinctStates(snap.Facilities)})
}

// ListComplaints handles GET /api/complaints
func (h *HospitalHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"complaints": entities.Complaints,
		"default":    entities.ComplaintOverall,
	})
}

// ListSortOptions handles GET /api/sort-options
func (h *HospitalHandler) ListSortOptions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"sort_options": entities.SortKeys,
		"default":      entities.DefaultSortKey,
	})
}

func distinctStates(facilities []entities.Facility) []string {
	seen := make(map[string]struct{})
	for i := range facilities {
		s := strings.ToUpper(strings.TrimSpace(facilities[i].Address.State))
		if len(s) >= 1 && len(s) <= 3 {
			seen[s] = struct{}{}
		}
	}
	states := make([]string, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

func (h *HospitalHandler) parseTopK(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.limits.DefaultTopK, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("top_k must be an integer")
	}
	if v < 1 || v > h.limits.MaxTopK {
		return 0, apperrors.NewValidationError(fmt.Sprintf("top_k must be between 1 and %d", h.limits.MaxTopK))
	}
	return v, nil
}

func (h *HospitalHandler) parseRadius(raw string) (float64, error) {
	v, err := parseOptionalFloat(raw, "within_km")
	if err != nil {
		return 0, err
	}
	if v == nil {
		return h.limits.DefaultRadiusKm, nil
	}
	if *v < h.limits.MinRadiusKm || *v > h.limits.MaxRadiusKm {
		return 0, apperrors.NewValidationError(fmt.Sprintf("within_km must be between %g and %g", h.limits.MinRadiusKm, h.limits.MaxRadiusKm))
	}
	return *v, nil
}

// parseOptionalFloat returns nil for an empty value
func parseOptionalFloat(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid %s parameter", name))
	}
	return &v, nil
}
