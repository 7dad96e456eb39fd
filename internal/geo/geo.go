// Package geo holds the coordinate helpers used by vote ingestion and result
// aggregation. Everything here is pure.
package geo

import (
	"errors"
	"math"
)

// earthRadius is the mean Earth radius in metres.
const earthRadius = 6371000.0

var ErrEmptyInput = errors.New("no points to average")

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether p is a finite coordinate inside the WGS84 ranges.
func Validate(p Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Average returns the unweighted mean of latitudes and longitudes. It is a
// planar approximation good enough for city-scale radii.
func Average(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyInput
	}

	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: lat / n, Lon: lon / n}, nil
}

// Distance is the haversine distance between a and b in whole metres.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return math.Round(earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)))
}
