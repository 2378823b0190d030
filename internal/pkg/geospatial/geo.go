package geospatial

import (
	"math"

	"github.com/geowork/roadpack/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// SearchBox returns a bounding box around a point with the given radius in
// meters, for index prefiltering before an exact haversine check.
func SearchBox(lat, lon, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return domain.Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Centroid returns the unweighted arithmetic mean of a flat lon/lat pair
// sequence. The second return is false for an empty sequence.
func Centroid(coords []float64) (domain.GeoPoint, bool) {
	n := len(coords) / 2
	if n == 0 {
		return domain.GeoPoint{}, false
	}
	var sumLat, sumLon float64
	for i := 0; i < n; i++ {
		sumLon += coords[2*i]
		sumLat += coords[2*i+1]
	}
	return domain.GeoPoint{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}, true
}

// MaxDistance returns the greatest haversine distance in meters from p to
// any vertex of the flat lon/lat pair sequence.
func MaxDistance(p domain.GeoPoint, coords []float64) float64 {
	var max float64
	for i := 0; i < len(coords)/2; i++ {
		d := Haversine(p.Lat, p.Lon, coords[2*i+1], coords[2*i])
		if d > max {
			max = d
		}
	}
	return max
}

// BoundsOf reduces a flat lon/lat pair sequence to its bounding box. The
// second return is false for sequences of fewer than two pairs, which have
// no defined box.
func BoundsOf(coords []float64) (domain.Bounds, bool) {
	n := len(coords) / 2
	if n < 2 {
		return domain.Bounds{}, false
	}
	b := domain.Bounds{
		MinLat: coords[1], MaxLat: coords[1],
		MinLon: coords[0], MaxLon: coords[0],
	}
	for i := 1; i < n; i++ {
		lon, lat := coords[2*i], coords[2*i+1]
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
	}
	return b, true
}

// Round7 rounds a coordinate to 7 decimal digits (about 1 cm). Rounding is
// idempotent, so already-rounded values pass through unchanged.
func Round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

// Round7All returns a copy of a flat coordinate sequence with every value
// rounded to 7 decimal digits.
func Round7All(coords []float64) []float64 {
	out := make([]float64, len(coords))
	for i, v := range coords {
		out[i] = Round7(v)
	}
	return out
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
