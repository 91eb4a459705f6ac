package providers

import (
	"context"
	"errors"
)

// ErrLocationNotFound is returned when the geocoder has no match for an address
var ErrLocationNotFound = errors.New("location not found")

// ErrGeocoderRejected marks a service error that retrying will not fix
// (bad credentials, malformed request)
var ErrGeocoderRejected = errors.New("geocoder rejected request")

// GeolocationProvider defines the interface for geocoding services
type GeolocationProvider interface {
	// Geocode converts a free-text address to coordinates
	Geocode(ctx context.Context, address string) (*GeocodedAddress, error)
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// GeocodedAddress represents a geocoded address
type GeocodedAddress struct {
	FormattedAddress string      `json:"formatted_address"`
	City             string      `json:"city,omitempty"`
	State            string      `json:"state,omitempty"`
	ZipCode          string      `json:"zip_code,omitempty"`
	Country          string      `json:"country,omitempty"`
	Coordinates      Coordinates `json:"coordinates"`
}
