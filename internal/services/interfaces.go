package services

import (
	"time"

	"github.com/safetrail/sentinel-agent/internal/models"
)

// AnomalyDetector is the engine surface the agent services consume. It is
// satisfied by *anomaly.Detector and mocked in tests.
type AnomalyDetector interface {
	IngestLocation(touristID string, sample models.LocationSample) ([]models.Alert, error)
	SweepInactivity() []models.Alert
	SetPlannedZones(touristID string, zones []models.GeofenceZone) error
	PlannedZones(touristID string) []models.GeofenceZone
	History(touristID string) []models.LocationSample
	LastActivity(touristID string) (time.Time, bool)
	ActiveAlerts(touristID string) []models.Alert
	AllActiveAlerts() []models.Alert
	Acknowledge(alertID string) bool
	TrackedTourists() int
}
