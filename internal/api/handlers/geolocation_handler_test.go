package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/api/handlers"
	"github.com/hospitrack/backend/internal/application/services"
	"github.com/hospitrack/backend/internal/domain/entities"
)

func TestGeolocationHandler_Geocode(t *testing.T) {
	resolver := new(MockLocationResolver)
	resolver.On("Resolve", mock.Anything, "Springfield, IL", (*float64)(nil), (*float64)(nil)).
		Return(&services.ResolvedLocation{
			Location: entities.Location{Latitude: 39.7817, Longitude: -89.6501},
			Source:   services.LocationGeocoded,
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/geocode?address=Springfield,+IL", nil)
	handlers.NewGeolocationHandler(resolver).Geocode(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 39.7817, body["lat"])
	assert.Equal(t, -89.6501, body["lon"])
	assert.Equal(t, "geocoded", body["source"])
	resolver.AssertExpectations(t)
}

func TestGeolocationHandler_Geocode_NotFoundReturnsDefault(t *testing.T) {
	resolver := new(MockLocationResolver)
	resolver.On("Resolve", mock.Anything, "nowhere", (*float64)(nil), (*float64)(nil)).
		Return(&services.ResolvedLocation{
			Location: chicago,
			Source:   services.LocationDefault,
			Warning:  "Address not found; using default location",
			Degraded: true,
		}, nil)

	w := httptest.NewRecorder()
	handlers.NewGeolocationHandler(resolver).Geocode(w, httptest.NewRequest(http.MethodGet, "/api/geocode?address=nowhere", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Address not found")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestGeolocationHandler_Geocode_MissingAddress(t *testing.T) {
	resolver := new(MockLocationResolver)

	w := httptest.NewRecorder()
	handlers.NewGeolocationHandler(resolver).Geocode(w, httptest.NewRequest(http.MethodGet, "/api/geocode?address=+", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
