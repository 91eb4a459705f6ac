package routes

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/adapters/cache"
	"github.com/hospitrack/backend/internal/api/handlers"
	"github.com/hospitrack/backend/internal/api/middleware"
	"github.com/hospitrack/backend/internal/application/services"
	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/providers"
)

type staticSource struct {
	snap *entities.Snapshot
}

func (s staticSource) LoadSnapshot(ctx context.Context) (*entities.Snapshot, error) {
	return s.snap, nil
}

func (s staticSource) Name() string { return "static" }

// recoveringGeocoder fails its first lookup and succeeds afterwards
type recoveringGeocoder struct {
	calls int
}

func (g *recoveringGeocoder) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	g.calls++
	if g.calls == 1 {
		return nil, errors.New("upstream timeout")
	}
	return &providers.GeocodedAddress{
		FormattedAddress: "Milwaukee, WI, USA",
		State:            "WI",
		Coordinates:      providers.Coordinates{Latitude: 43.0389, Longitude: -87.9065},
	}, nil
}

func newTestServer(t *testing.T, origins []string) http.Handler {
	t.Helper()
	return newTestServerWithGeocoder(t, origins, nil)
}

func newTestServerWithGeocoder(t *testing.T, origins []string, geocoder providers.GeolocationProvider) http.Handler {
	t.Helper()

	snap := entities.NewSnapshot("static", []entities.Facility{
		{
			Name:               "Lakeshore Medical",
			Address:            entities.Address{State: "IL"},
			Latitude:           entities.Float(41.8781),
			Longitude:          entities.Float(-87.6298),
			TotalQualityPoints: entities.Float(80),
		},
	}, []string{entities.ColumnName, entities.ColumnState, entities.ColumnLatitude, entities.ColumnLongitude, string(entities.ColumnTotalQuality)})

	store := services.NewSnapshotStore(staticSource{snap: snap}, nil, 0, nil)
	require.NoError(t, store.Load(context.Background()))

	defaultLoc := entities.Location{Latitude: 41.8781, Longitude: -87.6298}
	resolver := services.NewLocationResolver(geocoder, services.LocationResolverConfig{Default: defaultLoc}, nil)
	ranker := services.NewRankingService(0, entities.DefaultCompositeWeights())

	router := NewRouter(
		handlers.NewHospitalHandler(store, resolver, ranker, handlers.DefaultHospitalLimits(), nil),
		handlers.NewGeolocationHandler(resolver),
		handlers.NewHealthHandler(store),
		middleware.NewCacheMiddleware(cache.NewMemoryAdapter(100, time.Hour), store.Version, nil),
		origins,
		nil,
	)
	return router.SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestRouter_HospitalsAreCached(t *testing.T) {
	server := newTestServer(t, nil)

	first := httptest.NewRecorder()
	server.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/hospitals?lat=41.88&lon=-87.63", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.NotEmpty(t, first.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, first.Body.String(), "Lakeshore Medical")

	// Same parameters in a different order hit the cache
	second := httptest.NewRecorder()
	server.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/hospitals?lon=-87.63&lat=41.88", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestRouter_ErrorsAreNotCached(t *testing.T) {
	server := newTestServer(t, nil)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hospitals?top_k=0", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	}
}

func TestRouter_CORS(t *testing.T) {
	server := newTestServer(t, []string{"https://hospitrack.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/hospitals", nil)
	req.Header.Set("Origin", "https://hospitrack.example")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hospitrack.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/states", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_UnknownMethod(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/hospitals", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_FailedGeocodeIsNotCached(t *testing.T) {
	geocoder := &recoveringGeocoder{}
	server := newTestServerWithGeocoder(t, nil, geocoder)

	locationSource := func(w *httptest.ResponseRecorder) string {
		var body struct {
			Location struct {
				Source string `json:"source"`
			} `json:"location"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Location.Source
	}

	first := httptest.NewRecorder()
	server.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/hospitals?address=Milwaukee", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "default", locationSource(first))
	assert.Equal(t, "no-store", first.Header().Get("Cache-Control"))
	assert.Empty(t, first.Header().Get("ETag"))

	second := httptest.NewRecorder()
	server.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/hospitals?address=Milwaukee", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.Equal(t, "geocoded", locationSource(second))
	assert.Equal(t, 2, geocoder.calls)

	third := httptest.NewRecorder()
	server.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/api/hospitals?address=Milwaukee", nil))
	assert.Equal(t, "HIT", third.Header().Get("X-Cache"))
	assert.Equal(t, "geocoded", locationSource(third))
}

func TestRouter_GzipAndConditionalRequests(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals?lat=41.88&lon=-87.63", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "public, max-age=300, must-revalidate", w.Header().Get("Cache-Control"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Lakeshore Medical")

	// Reordered query, same fingerprint
	req = httptest.NewRequest(http.MethodGet, "/api/hospitals?lon=-87.63&lat=41.88", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Equal(t, etag, w.Header().Get("ETag"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Zero(t, w.Body.Len())
}
