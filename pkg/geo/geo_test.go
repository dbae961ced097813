package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDistanceKm_Symmetry verifies distance is symmetric and zero for
// identical points.
func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{25.5788, 91.8933, 26.00, 92.50},
		{0, 0, 0, 0},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{89.9, 179.9, -89.9, -179.9},
	}

	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
		assert.GreaterOrEqual(t, ab, 0.0)
	}

	assert.Zero(t, DistanceKm(25.5788, 91.8933, 25.5788, 91.8933))
}

// TestDistanceKm_KnownDistance checks against a well-known city pair.
func TestDistanceKm_KnownDistance(t *testing.T) {
	// Shillong to Guwahati is roughly 65 km as the crow flies.
	d := DistanceKm(25.5788, 91.8933, 26.1445, 91.7362)
	assert.InDelta(t, 65, d, 5)
}

// TestWithinRadius_InclusiveBoundary verifies the containment boundary.
func TestWithinRadius_InclusiveBoundary(t *testing.T) {
	centerLat, centerLon := 25.5788, 91.8933

	// One degree of latitude is ~111.19 km at this radius; walk north until
	// we are just past 1000 m and confirm the classification flips.
	nearLat := centerLat + 0.0089 // ~990 m north
	farLat := centerLat + 0.0095  // ~1056 m north

	assert.True(t, WithinRadius(nearLat, centerLon, centerLat, centerLon, 1000))
	assert.False(t, WithinRadius(farLat, centerLon, centerLat, centerLon, 1000))

	// A point at exactly the zone radius counts as inside.
	d := DistanceKm(nearLat, centerLon, centerLat, centerLon) * 1000
	assert.True(t, WithinRadius(nearLat, centerLon, centerLat, centerLon, d))
}

// TestValidCoordinates covers the ingestion-boundary range checks.
func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.True(t, ValidCoordinates(90, -180))
	assert.False(t, ValidCoordinates(90.01, 0))
	assert.False(t, ValidCoordinates(-90.01, 0))
	assert.False(t, ValidCoordinates(0, 180.01))
	assert.False(t, ValidCoordinates(0, -180.01))
}
