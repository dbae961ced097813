package models

// ZoneKind classifies a geofence zone within a tourist's itinerary.
type ZoneKind string

const (
	ZoneSafe       ZoneKind = "safe"
	ZonePlanned    ZoneKind = "planned"
	ZoneRestricted ZoneKind = "restricted"
)

// GeofenceZone is a named circular area belonging to a tourist's planned
// itinerary.
type GeofenceZone struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	CenterLatitude  float64  `json:"center_latitude"`
	CenterLongitude float64  `json:"center_longitude"`
	RadiusMeters    float64  `json:"radius_meters"`
	Kind            ZoneKind `json:"kind"`
}

// ItineraryMessage is the wire format for planned-zone updates received over
// MQTT. The zone set replaces the tourist's previous set wholesale.
type ItineraryMessage struct {
	TouristID string         `json:"tourist_id,omitempty"`
	Zones     []GeofenceZone `json:"zones"`
}
