package models

import (
	"time"
)

// LocationSample represents a single geographical fix for a tourist.
// Samples are immutable once recorded.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  float64   `json:"accuracy,omitempty"` // meters, 0 when unknown
}

// LocationMessage is the wire format for location updates received over MQTT.
// The tourist id normally rides in the topic suffix; the body field wins when
// both are present.
type LocationMessage struct {
	TouristID string    `json:"tourist_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
}

// Sample converts the wire message into an engine sample. A zero timestamp is
// replaced with the receive time.
func (m LocationMessage) Sample(received time.Time) LocationSample {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = received
	}
	return LocationSample{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Timestamp: ts,
		Accuracy:  m.Accuracy,
	}
}
