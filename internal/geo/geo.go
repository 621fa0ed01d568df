// Package geo provides great-circle distance and coordinate helpers.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// earthRadiusKm is the spherical-Earth approximation used by Distance.
	earthRadiusKm = 6371.0

	// cellPrecision controls the resolution of Cell.
	// Precision 7 ≈ ±76m latitude / ±152m longitude, roughly one stop radius.
	cellPrecision = 7
)

// Point is a WGS-84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the haversine distance in meters between (lat1, lng1)
// and (lat2, lng2).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	deltaLat := radians(lat2 - lat1)
	deltaLng := radians(lng2 - lng1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c * 1000
}

// DistanceTo returns the distance in meters from p to q.
func (p Point) DistanceTo(q Point) float64 {
	return Distance(p.Lat, p.Lng, q.Lat, q.Lng)
}

// Cell returns the geohash cell containing p.
func (p Point) Cell() string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, cellPrecision)
}

// Valid reports whether p lies within the WGS-84 coordinate bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
