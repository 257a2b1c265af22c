// Package geo provides pure coordinate math used by routing, hazard and
// allocation. All functions are side-effect free.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/Effec77/aidflow/core/model"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate indicates a latitude or longitude outside its valid range.
var ErrInvalidCoordinate = errors.New("geo: invalid coordinate")

// Validate checks that the coordinate lies within the WGS84 domain.
func Validate(c model.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

// Distance returns the great-circle distance between two points in kilometers.
func Distance(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Interpolate returns n evenly spaced points strictly between a and b along the
// straight line approximation of the geodesic. n <= 0 yields an empty slice.
func Interpolate(a, b model.Coordinates, n int) []model.Coordinates {
	if n <= 0 {
		return nil
	}
	pts := make([]model.Coordinates, 0, n)
	for i := 1; i <= n; i++ {
		f := float64(i) / float64(n+1)
		pts = append(pts, model.Coordinates{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lon: a.Lon + (b.Lon-a.Lon)*f,
		})
	}
	return pts
}
