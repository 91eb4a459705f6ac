package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
)

// BackfillStats summarizes a coordinate backfill run.
type BackfillStats struct {
	Missing    int `json:"missing"`
	UniqueZips int `json:"unique_zips"`
	Resolved   int `json:"resolved"`
	Filled     int `json:"filled"`
	Failed     int `json:"failed"`
}

// BackfillCoordinates fills missing facility coordinates by geocoding each
// distinct postal code once. Rows without a postal code, or whose code cannot
// be resolved, stay unlocated. The input slice is not modified. Only context
// cancellation aborts the run.
func BackfillCoordinates(ctx context.Context, facilities []entities.Facility, geocoder providers.GeolocationProvider, concurrency int) ([]entities.Facility, BackfillStats, error) {
	out := make([]entities.Facility, len(facilities))
	copy(out, facilities)

	var stats BackfillStats
	zips := make(map[string]struct{})
	for i := range out {
		if out[i].Located() {
			continue
		}
		stats.Missing++
		if zip := out[i].Address.ZipCode; zip != "" {
			zips[zip] = struct{}{}
		}
	}
	stats.UniqueZips = len(zips)
	if len(zips) == 0 || geocoder == nil {
		return out, stats, nil
	}

	ordered := make([]string, 0, len(zips))
	for zip := range zips {
		ordered = append(ordered, zip)
	}
	sort.Strings(ordered)

	if concurrency < 1 {
		concurrency = 1
	}
	logger := observability.LoggerFromContext(ctx)

	var mu sync.Mutex
	resolved := make(map[string]entities.Location, len(ordered))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, zip := range ordered {
		g.Go(func() error {
			addr, err := geocoder.Geocode(gCtx, zip+", USA")
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				if !errors.Is(err, providers.ErrLocationNotFound) {
					logger.Warn().Err(err).Str("zip", zip).Msg("postal code lookup failed")
				}
				return nil
			}
			if addr == nil {
				return nil
			}
			loc := entities.Location{Latitude: addr.Coordinates.Latitude, Longitude: addr.Coordinates.Longitude}
			if !validCoordinate(loc) {
				return nil
			}
			mu.Lock()
			resolved[zip] = loc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	stats.Resolved = len(resolved)
	for i := range out {
		if out[i].Located() {
			continue
		}
		loc, ok := resolved[out[i].Address.ZipCode]
		if !ok {
			stats.Failed++
			continue
		}
		lat, lon := loc.Latitude, loc.Longitude
		out[i].Latitude = &lat
		out[i].Longitude = &lon
		stats.Filled++
	}

	logger.Info().
		Int("missing", stats.Missing).
		Int("unique_zips", stats.UniqueZips).
		Int("filled", stats.Filled).
		Int("failed", stats.Failed).
		Msg("coordinate backfill complete")
	return out, stats, nil
}
