// Package geo holds coordinate types and geodesic distance.
package geo

import (
	"math"

	"github.com/tidwall/geodesic"
)

// Point is a WGS-84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the latitude/longitude ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// Distance returns the geodesic distance between a and b in kilometres,
// rounded to one decimal place. It returns nil when either point is missing
// or the computation does not produce a finite result.
func Distance(a, b *Point) *float64 {
	if a == nil || b == nil {
		return nil
	}
	if !a.Valid() || !b.Valid() {
		return nil
	}

	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return nil
	}

	km := math.Round(meters/100) / 10
	return &km
}
