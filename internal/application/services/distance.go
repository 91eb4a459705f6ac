package services

import (
	"math"

	"github.com/hospitrack/backend/internal/domain/entities"
)

const earthRadiusKm = 6371.0

// greatCircleKm returns the haversine distance between two points in kilometers.
func greatCircleKm(from, to entities.Location) float64 {
	dLat := degreesToRadians(to.Latitude - from.Latitude)
	dLon := degreesToRadians(to.Longitude - from.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(from.Latitude))*math.Cos(degreesToRadians(to.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func validCoordinate(loc entities.Location) bool {
	return !math.IsNaN(loc.Latitude) && !math.IsNaN(loc.Longitude) &&
		loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180
}

// DistanceKm returns the great-circle distance between two coordinates, or
// UnknownDistance when either coordinate is out of range.
func DistanceKm(from, to entities.Location) entities.Distance {
	if !validCoordinate(from) || !validCoordinate(to) {
		return entities.UnknownDistance
	}
	d := greatCircleKm(from, to)
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return entities.UnknownDistance
	}
	return entities.Distance(d)
}

// ComputeDistances returns a copy of facilities with DistanceKm set relative
// to origin. Unlocated rows, and rows whose distance cannot be computed, get
// UnknownDistance.
func ComputeDistances(facilities []entities.RankedFacility, origin entities.Location) []entities.RankedFacility {
	out := entities.CloneRanked(facilities)
	for i := range out {
		loc, ok := out[i].Location()
		if !ok {
			out[i].DistanceKm = entities.UnknownDistance
			continue
		}
		out[i].DistanceKm = DistanceKm(origin, loc)
	}
	return out
}
