package models

import (
	"time"
)

// AlertKind identifies which classifier produced an alert.
type AlertKind string

const (
	AlertInactivity        AlertKind = "inactivity"
	AlertGeofenceViolation AlertKind = "geofence_violation"
	AlertUnusualMovement   AlertKind = "unusual_movement"
)

// Severity grades how urgent an alert is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is an anomaly detected for a tourist. All fields except Acknowledged
// are immutable after creation.
type Alert struct {
	ID           string          `json:"id"`
	TouristID    string          `json:"tourist_id"`
	Kind         AlertKind       `json:"kind"`
	Severity     Severity        `json:"severity"`
	Message      string          `json:"message"`
	Location     *LocationSample `json:"location,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Acknowledged bool            `json:"acknowledged"`
}
