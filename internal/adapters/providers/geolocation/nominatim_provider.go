package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hospitrack/backend/internal/domain/providers"
)

const (
	nominatimSearchURL = "https://nominatim.openstreetmap.org/search"
	defaultHTTPTimeout = 10 * time.Second
)

// NominatimGeolocationProvider geocodes against an OpenStreetMap Nominatim
// server. The public server allows one request per second per client.
type NominatimGeolocationProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NominatimOptions configures a NominatimGeolocationProvider
type NominatimOptions struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	// RequestsPerSecond defaults to 1
	RequestsPerSecond float64
}

// NewNominatimGeolocationProvider creates a new Nominatim geolocation provider
func NewNominatimGeolocationProvider(opts NominatimOptions) providers.GeolocationProvider {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = nominatimSearchURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "HospiTrack/1.0"
	}
	return &NominatimGeolocationProvider{
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// Geocode converts an address to a geocoded address using the first match
func (n *NominatimGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required: %w", providers.ErrGeocoderRejected)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", trimmed)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("geocode request returned status %d: %w", resp.StatusCode, providers.ErrGeocoderRejected)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, providers.ErrLocationNotFound
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", result.Lat, providers.ErrLocationNotFound)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", result.Lon, providers.ErrLocationNotFound)
	}

	return &providers.GeocodedAddress{
		FormattedAddress: result.DisplayName,
		City:             firstNonEmpty(result.Address.City, result.Address.Town, result.Address.Village),
		State:            result.Address.State,
		ZipCode:          result.Address.Postcode,
		Country:          result.Address.Country,
		Coordinates: providers.Coordinates{
			Latitude:  lat,
			Longitude: lon,
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type nominatimResult struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	City     string `json:"city"`
	Town     string `json:"town"`
	Village  string `json:"village"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}
