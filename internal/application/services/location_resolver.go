package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
	apperrors "github.com/hospitrack/backend/pkg/errors"
	"github.com/hospitrack/backend/pkg/retry"
)

// LocationSource records where a resolved origin came from
type LocationSource string

const (
	LocationFromRequest LocationSource = "request"
	LocationGeocoded    LocationSource = "geocoded"
	LocationDefault     LocationSource = "default"
)

// ResolvedLocation is the ranking origin plus how it was obtained.
type ResolvedLocation struct {
	entities.Location
	Source  LocationSource             `json:"source"`
	Warning string                     `json:"warning,omitempty"`
	Address *providers.GeocodedAddress `json:"address,omitempty"`
	// Degraded is set when an address was given but could not be used. The
	// same request may resolve differently later.
	Degraded bool `json:"-"`
}

// LocationResolverConfig configures a LocationResolver
type LocationResolverConfig struct {
	Default       entities.Location
	Attempts      int
	RetryDelay    time.Duration
	Timeout       time.Duration
	AllowedStates []string
}

// LocationResolver turns request parameters into a ranking origin. Geocoding
// failures never fail the request; they fall back to the default location.
type LocationResolver struct {
	geocoder providers.GeolocationProvider
	cfg      LocationResolverConfig
	metrics  *observability.Metrics
}

// NewLocationResolver creates a new location resolver
func NewLocationResolver(geocoder providers.GeolocationProvider, cfg LocationResolverConfig, metrics *observability.Metrics) *LocationResolver {
	return &LocationResolver{
		geocoder: geocoder,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// Resolve picks the origin: explicit coordinates win, then a geocoded
// address, then the default location. Only malformed coordinates are errors.
func (r *LocationResolver) Resolve(ctx context.Context, address string, lat, lon *float64) (*ResolvedLocation, error) {
	if lat != nil || lon != nil {
		if lat == nil || lon == nil {
			return nil, apperrors.NewValidationError("lat and lon must be provided together")
		}
		loc := entities.Location{Latitude: *lat, Longitude: *lon}
		if !validCoordinate(loc) {
			return nil, apperrors.NewValidationError("lat must be within [-90,90] and lon within [-180,180]")
		}
		return &ResolvedLocation{Location: loc, Source: LocationFromRequest}, nil
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return r.fallback(ctx, "no_address", "No location provided; using default location"), nil
	}
	if r.geocoder == nil {
		return r.fallback(ctx, "no_geocoder", "Geocoding is not configured; using default location"), nil
	}

	geocoded, err := r.geocode(ctx, address)
	switch {
	case errors.Is(err, providers.ErrLocationNotFound):
		return r.lookupFailed(ctx, "not_found", "Address not found; using default location"), nil
	case err != nil:
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("geocoding failed")
		return r.lookupFailed(ctx, "error", "Geocoding service unavailable; using default location"), nil
	}

	if !r.allowed(geocoded) {
		return r.lookupFailed(ctx, "outside_region", "Address is outside the supported region; using default location"), nil
	}

	return &ResolvedLocation{
		Location: entities.Location{
			Latitude:  geocoded.Coordinates.Latitude,
			Longitude: geocoded.Coordinates.Longitude,
		},
		Source:  LocationGeocoded,
		Address: geocoded,
	}, nil
}

func (r *LocationResolver) geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	ctx, span := observability.StartSpan(ctx, "LocationResolver.geocode")
	defer span.End()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	logger := observability.LoggerFromContext(ctx)
	cfg := retry.GeocodeConfig(r.cfg.Attempts, r.cfg.RetryDelay, 0)

	var result *providers.GeocodedAddress
	err := retry.DoWithLog(ctx, cfg, "geocoder", func() error {
		res, err := r.geocoder.Geocode(ctx, address)
		if errors.Is(err, providers.ErrLocationNotFound) || errors.Is(err, providers.ErrGeocoderRejected) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		if res == nil {
			return retry.Permanent(providers.ErrLocationNotFound)
		}
		loc := entities.Location{Latitude: res.Coordinates.Latitude, Longitude: res.Coordinates.Longitude}
		if !validCoordinate(loc) {
			return retry.Permanent(providers.ErrLocationNotFound)
		}
		result = res
		return nil
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", next).Msg("geocoding attempt failed, retrying")
	})

	observability.SetSpanAttributes(span, attribute.Bool("geocode.found", err == nil))
	observability.RecordError(span, err)
	return result, err
}

func (r *LocationResolver) allowed(addr *providers.GeocodedAddress) bool {
	if len(r.cfg.AllowedStates) == 0 {
		return true
	}
	for _, state := range r.cfg.AllowedStates {
		if strings.EqualFold(addr.State, state) || strings.Contains(addr.FormattedAddress, state) {
			return true
		}
	}
	return false
}

func (r *LocationResolver) lookupFailed(ctx context.Context, reason, warning string) *ResolvedLocation {
	loc := r.fallback(ctx, reason, warning)
	loc.Degraded = true
	return loc
}

func (r *LocationResolver) fallback(ctx context.Context, reason, warning string) *ResolvedLocation {
	observability.RecordGeocodeFallback(ctx, r.metrics, reason)
	return &ResolvedLocation{
		Location: r.cfg.Default,
		Source:   LocationDefault,
		Warning:  warning,
	}
}
