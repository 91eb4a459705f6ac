package geolocation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hospitrack/backend/internal/domain/providers"
)

// MockGeolocationProvider resolves a fixed table of US cities. Used in
// development and tests where no network geocoder is available.
type MockGeolocationProvider struct {
	places []providers.GeocodedAddress
}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() providers.GeolocationProvider {
	var places []providers.GeocodedAddress
	for _, p := range []struct {
		city, state string
		lat, lon    float64
	}{
		{"Chicago", "Illinois", 41.8781, -87.6298},
		{"Springfield", "Illinois", 39.7817, -89.6501},
		{"Milwaukee", "Wisconsin", 43.0389, -87.9065},
		{"Indianapolis", "Indiana", 39.7684, -86.1581},
		{"Detroit", "Michigan", 42.3314, -83.0458},
		{"Minneapolis", "Minnesota", 44.9778, -93.2650},
		{"St. Louis", "Missouri", 38.6270, -90.1994},
		{"New York", "New York", 40.7128, -74.0060},
		{"Los Angeles", "California", 34.0522, -118.2437},
		{"Houston", "Texas", 29.7604, -95.3698},
		{"Phoenix", "Arizona", 33.4484, -112.0740},
	} {
		places = append(places, providers.GeocodedAddress{
			FormattedAddress: fmt.Sprintf("%s, %s, United States", p.city, p.state),
			City:             p.city,
			State:            p.state,
			Country:          "United States",
			Coordinates:      providers.Coordinates{Latitude: p.lat, Longitude: p.lon},
		})
	}
	return &MockGeolocationProvider{places: places}
}

// Geocode returns the first known city mentioned in address
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	lower := strings.ToLower(address)
	for _, addr := range m.places {
		if strings.Contains(lower, strings.ToLower(addr.City)) {
			found := addr
			return &found, nil
		}
	}
	return nil, providers.ErrLocationNotFound
}
