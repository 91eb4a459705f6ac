package geolocation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hospitrack/backend/internal/adapters/cache"
	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/pkg/config"
)

func TestNominatimGeolocationProvider_Geocode(t *testing.T) {
	var gotUA, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"39.7817","lon":"-89.6501","display_name":"Springfield, Illinois, United States",
			"address":{"city":"Springfield","state":"Illinois","postcode":"62701","country":"United States"}}]`))
	}))
	defer server.Close()

	provider := NewNominatimGeolocationProvider(NominatimOptions{
		BaseURL:           server.URL,
		UserAgent:         "HospiTrack-test",
		RequestsPerSecond: 100,
	})

	addr, err := provider.Geocode(context.Background(), " Springfield, IL ")
	require.NoError(t, err)

	assert.Equal(t, "HospiTrack-test", gotUA)
	assert.Equal(t, "Springfield, IL", gotQuery)
	assert.Equal(t, 39.7817, addr.Coordinates.Latitude)
	assert.Equal(t, -89.6501, addr.Coordinates.Longitude)
	assert.Equal(t, "Illinois", addr.State)
	assert.Equal(t, "Springfield", addr.City)
}

func TestNominatimGeolocationProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
		rejected bool
	}{
		{name: "empty result", status: http.StatusOK, body: `[]`, notFound: true},
		{name: "forbidden", status: http.StatusForbidden, body: ``, rejected: true},
		{name: "server error is transient", status: http.StatusBadGateway, body: ``},
		{name: "rate limited is transient", status: http.StatusTooManyRequests, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewNominatimGeolocationProvider(NominatimOptions{BaseURL: server.URL, RequestsPerSecond: 100})
			_, err := provider.Geocode(context.Background(), "somewhere")

			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, providers.ErrLocationNotFound))
			assert.Equal(t, tt.rejected, errors.Is(err, providers.ErrGeocoderRejected))
		})
	}
}

func TestGoogleGeolocationProvider_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Chicago, IL, USA",
			"address_components":[{"long_name":"Chicago","types":["locality"]},{"long_name":"Illinois","types":["administrative_area_level_1"]}],
			"geometry":{"location":{"lat":41.8781,"lng":-87.6298}}}]}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("test-key", server.URL, server.Client())

	addr, err := provider.Geocode(context.Background(), "Chicago")
	require.NoError(t, err)
	assert.Equal(t, "Illinois", addr.State)
	assert.Equal(t, "Chicago", addr.City)
	assert.Equal(t, 41.8781, addr.Coordinates.Latitude)

	_, err = provider.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, providers.ErrLocationNotFound)
}

func TestGoogleGeolocationProvider_RequiresKey(t *testing.T) {
	_, err := NewGoogleGeolocationProvider("").Geocode(context.Background(), "Chicago")
	assert.ErrorIs(t, err, providers.ErrGeocoderRejected)
}

func TestMockGeolocationProvider_Geocode(t *testing.T) {
	provider := NewMockGeolocationProvider()

	addr, err := provider.Geocode(context.Background(), "downtown milwaukee, wi")
	require.NoError(t, err)
	assert.Equal(t, "Wisconsin", addr.State)

	_, err = provider.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, providers.ErrLocationNotFound)
}

// stubGeolocationProvider is a mock implementation of GeolocationProvider
type stubGeolocationProvider struct {
	mock.Mock
}

func (m *stubGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.GeocodedAddress), args.Error(1)
}

func TestCachedGeolocationProvider(t *testing.T) {
	ctx := context.Background()
	next := new(stubGeolocationProvider)
	result := &providers.GeocodedAddress{
		FormattedAddress: "Chicago",
		Coordinates:      providers.Coordinates{Latitude: 41.8781, Longitude: -87.6298},
	}
	next.On("Geocode", mock.Anything, "Chicago").Return(result, nil).Once()
	next.On("Geocode", mock.Anything, "Atlantis").Return(nil, providers.ErrLocationNotFound).Twice()

	provider := NewCachedGeolocationProvider(next, cache.NewMemoryAdapter(10, time.Hour), time.Hour, nil)

	first, err := provider.Geocode(ctx, "Chicago")
	require.NoError(t, err)
	second, err := provider.Geocode(ctx, "  chicago ")
	require.NoError(t, err)
	assert.Equal(t, first.Coordinates, second.Coordinates)

	_, err = provider.Geocode(ctx, "Atlantis")
	assert.ErrorIs(t, err, providers.ErrLocationNotFound)
	_, err = provider.Geocode(ctx, "Atlantis")
	assert.ErrorIs(t, err, providers.ErrLocationNotFound)

	next.AssertExpectations(t)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GeolocationConfig
		want    any
		wantErr bool
	}{
		{"default is nominatim", config.GeolocationConfig{}, &NominatimGeolocationProvider{}, false},
		{"google", config.GeolocationConfig{Provider: "google", APIKey: "key"}, &GoogleGeolocationProvider{}, false},
		{"google without key", config.GeolocationConfig{Provider: "google"}, nil, true},
		{"mock", config.GeolocationConfig{Provider: "mock"}, &MockGeolocationProvider{}, false},
		{"unknown", config.GeolocationConfig{Provider: "bing"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, provider)
		})
	}

	provider, err := NewProvider(config.GeolocationConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, provider)
}
