// Package geoindex maintains an R-Tree over a tourist's planned geofence
// zones so containment checks stay cheap for large itineraries.
package geoindex

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/geo"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 8

	// queryTolerance expands a query point into a tiny rect (~0.1 m) so the
	// intersection search never degenerates.
	queryTolerance = 1e-6

	// metersPerDegreeLat is the approximate north-south span of one degree
	// of latitude. Used only for bounding boxes; exact containment is always
	// confirmed with the Haversine distance.
	metersPerDegreeLat = 111194.9
)

// spatialZone wraps a zone to implement the rtreego.Spatial interface.
type spatialZone struct {
	zone models.GeofenceZone
	rect *rtreego.Rect
}

func (sz *spatialZone) Bounds() *rtreego.Rect {
	return sz.rect
}

// ZoneIndex is an immutable spatial index over one tourist's zone set.
// Replace-all itinerary updates build a fresh index.
type ZoneIndex struct {
	tree  *rtreego.Rtree
	zones []models.GeofenceZone
}

// Build constructs a ZoneIndex from the given zones, preserving their order
// for callers that read the set back.
func Build(zones []models.GeofenceZone) (*ZoneIndex, error) {
	idx := &ZoneIndex{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		zones: append([]models.GeofenceZone(nil), zones...),
	}

	for _, z := range idx.zones {
		rect, err := boundingRect(z)
		if err != nil {
			return nil, fmt.Errorf("zone %q: %w", z.ID, err)
		}
		idx.tree.Insert(&spatialZone{zone: z, rect: rect})
	}

	return idx, nil
}

// Zones returns the indexed zone set in its original order.
func (zi *ZoneIndex) Zones() []models.GeofenceZone {
	return zi.zones
}

// Len returns the number of indexed zones.
func (zi *ZoneIndex) Len() int {
	return len(zi.zones)
}

// Contains reports whether the point lies inside at least one zone.
// Candidates come from a rectangle intersection; each candidate is confirmed
// with an exact great-circle distance check.
func (zi *ZoneIndex) Contains(lat, lon float64) bool {
	point := rtreego.Point{lat, lon}
	for _, s := range zi.tree.SearchIntersect(point.ToRect(queryTolerance)) {
		sz := s.(*spatialZone)
		if geo.WithinRadius(lat, lon, sz.zone.CenterLatitude, sz.zone.CenterLongitude, sz.zone.RadiusMeters) {
			return true
		}
	}
	return false
}

// boundingRect computes the lat/lon axis-aligned rectangle enclosing the
// zone's circle, padded slightly so boundary points are never missed by the
// rectangle prefilter.
func boundingRect(z models.GeofenceZone) (*rtreego.Rect, error) {
	latDelta := z.RadiusMeters / metersPerDegreeLat

	// Longitude degrees shrink with latitude; clamp the cosine away from
	// zero so polar zones still get a finite box.
	cosLat := math.Cos(z.CenterLatitude * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := z.RadiusMeters / (metersPerDegreeLat * cosLat)

	const pad = 1.001
	latDelta *= pad
	lonDelta *= pad

	bottomLeft := rtreego.Point{z.CenterLatitude - latDelta, z.CenterLongitude - lonDelta}
	return rtreego.NewRect(bottomLeft, []float64{2 * latDelta, 2 * lonDelta})
}
