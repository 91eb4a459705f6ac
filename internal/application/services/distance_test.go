package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hospitrack/backend/internal/domain/entities"
)

func TestDistanceKm(t *testing.T) {
	chicago := entities.Location{Latitude: 41.8781, Longitude: -87.6298}
	milwaukee := entities.Location{Latitude: 43.0389, Longitude: -87.9065}

	t.Run("same point is zero", func(t *testing.T) {
		assert.Equal(t, entities.Distance(0), DistanceKm(chicago, chicago))
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := DistanceKm(chicago, milwaukee)
		ba := DistanceKm(milwaukee, chicago)
		assert.InDelta(t, float64(ab), float64(ba), 1e-9)
	})

	t.Run("known city pair", func(t *testing.T) {
		d := DistanceKm(chicago, milwaukee)
		assert.True(t, d.Known())
		assert.InDelta(t, 131.0, float64(d), 2.0)
	})

	t.Run("antipodes", func(t *testing.T) {
		d := DistanceKm(entities.Location{Latitude: 0, Longitude: 0}, entities.Location{Latitude: 0, Longitude: 180})
		assert.InDelta(t, math.Pi*earthRadiusKm, float64(d), 1e-6)
	})

	t.Run("out of range is unknown", func(t *testing.T) {
		assert.False(t, DistanceKm(chicago, entities.Location{Latitude: 91, Longitude: 0}).Known())
		assert.False(t, DistanceKm(entities.Location{Latitude: 0, Longitude: -181}, chicago).Known())
		assert.False(t, DistanceKm(entities.Location{Latitude: math.NaN(), Longitude: 0}, chicago).Known())
	})
}

func TestComputeDistances(t *testing.T) {
	origin := entities.Location{Latitude: 41.8781, Longitude: -87.6298}
	input := entities.NewRankedFacilities([]entities.Facility{
		{Name: "located", Latitude: entities.Float(41.8781), Longitude: entities.Float(-87.6298)},
		{Name: "no lon", Latitude: entities.Float(41.0)},
		{Name: "bad lat", Latitude: entities.Float(123), Longitude: entities.Float(-87)},
	})

	out := ComputeDistances(input, origin)

	assert.Len(t, out, 3)
	assert.Equal(t, entities.Distance(0), out[0].DistanceKm)
	assert.False(t, out[1].DistanceKm.Known())
	assert.False(t, out[2].DistanceKm.Known())
	// input is untouched
	assert.False(t, input[0].DistanceKm.Known())
}
