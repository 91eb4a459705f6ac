package geolocation

import (
	"fmt"

	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/pkg/config"
)

// NewProvider builds the geocoder named by cfg.Provider. "none" disables
// geocoding and returns a nil provider.
func NewProvider(cfg config.GeolocationConfig) (providers.GeolocationProvider, error) {
	switch cfg.Provider {
	case "", "nominatim":
		return NewNominatimGeolocationProvider(NominatimOptions{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}), nil
	case "google":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEOLOCATION_API_KEY is required for the google provider")
		}
		return NewGoogleGeolocationProviderWithOptions(cfg.APIKey, cfg.BaseURL, nil), nil
	case "mock":
		return NewMockGeolocationProvider(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}
}
