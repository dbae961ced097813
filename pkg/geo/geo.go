// Package geo provides great-circle distance and containment math used by
// the anomaly detection engine.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometers between two
// coordinates using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// WithinRadius reports whether the point (lat, lon) lies within radiusMeters
// of the center (centerLat, centerLon). The boundary is inclusive.
func WithinRadius(lat, lon, centerLat, centerLon, radiusMeters float64) bool {
	return DistanceKm(lat, lon, centerLat, centerLon)*1000 <= radiusMeters
}

// ValidCoordinates reports whether lat and lon fall inside the WGS84
// coordinate ranges.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
