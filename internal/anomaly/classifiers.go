package anomaly

import (
	"fmt"
	"time"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/geo"
)

// checkGeofenceViolation flags a sample that falls outside every zone of the
// tourist's planned itinerary. A tourist with no assigned zones is never in
// violation. The caller holds the record lock.
func (d *Detector) checkGeofenceViolation(rec *touristRecord, touristID string, sample models.LocationSample, now time.Time) *models.Alert {
	if rec.zones == nil || rec.zones.Len() == 0 {
		return nil
	}
	if rec.zones.Contains(sample.Latitude, sample.Longitude) {
		return nil
	}
	if d.suppressed(rec, models.AlertGeofenceViolation, now) {
		return nil
	}

	d.markEmitted(rec, models.AlertGeofenceViolation, now)
	return &models.Alert{
		ID:        alertID(geofenceIDPrefix, now, touristID),
		TouristID: touristID,
		Kind:      models.AlertGeofenceViolation,
		Severity:  models.SeverityMedium,
		Message: fmt.Sprintf("Tourist has left planned itinerary area. Current location: %.4f, %.4f",
			sample.Latitude, sample.Longitude),
		Location:  &sample,
		Timestamp: now,
	}
}

// checkUnusualMovement estimates the average speed over the trailing sample
// window and flags implausibly fast movement. The caller holds the record
// lock.
func (d *Detector) checkUnusualMovement(rec *touristRecord, touristID string, sample models.LocationSample, now time.Time) *models.Alert {
	window := d.cfg.SpeedWindowSamples
	if len(rec.history) < window {
		return nil
	}

	speed := averageSpeedKmh(rec.history[len(rec.history)-window:])
	if speed <= d.cfg.SpeedThresholdKmh {
		return nil
	}
	if d.suppressed(rec, models.AlertUnusualMovement, now) {
		return nil
	}

	d.markEmitted(rec, models.AlertUnusualMovement, now)
	return &models.Alert{
		ID:        alertID(movementIDPrefix, now, touristID),
		TouristID: touristID,
		Kind:      models.AlertUnusualMovement,
		Severity:  models.SeverityHigh,
		Message: fmt.Sprintf("Unusual fast movement detected: %.1f km/h. Possible emergency situation.",
			speed),
		Location:  &sample,
		Timestamp: now,
	}
}

// checkInactivity flags a tourist whose last recorded activity is older than
// the inactivity threshold. The caller holds the record lock.
func (d *Detector) checkInactivity(rec *touristRecord, touristID string, now time.Time) *models.Alert {
	if rec.lastActivity.IsZero() {
		return nil
	}

	elapsed := now.Sub(rec.lastActivity)
	if elapsed < d.cfg.InactivityThreshold {
		return nil
	}
	if d.suppressed(rec, models.AlertInactivity, now) {
		return nil
	}

	severity := models.SeverityMedium
	if elapsed > d.cfg.InactivityHighThreshold {
		severity = models.SeverityHigh
	}

	d.markEmitted(rec, models.AlertInactivity, now)
	return &models.Alert{
		ID:        alertID(inactivityIDPrefix, now, touristID),
		TouristID: touristID,
		Kind:      models.AlertInactivity,
		Severity:  severity,
		Message: fmt.Sprintf("Tourist inactive for %d minutes. Last seen: %s",
			int(elapsed.Minutes()), rec.lastActivity.Format("15:04:05")),
		Timestamp: now,
	}
}

// suppressed reports whether the cooldown window still covers the last
// emission of this alert kind for the tourist. A zero cooldown never
// suppresses.
func (d *Detector) suppressed(rec *touristRecord, kind models.AlertKind, now time.Time) bool {
	if d.cfg.AlertCooldown <= 0 {
		return false
	}
	last, ok := rec.lastEmitted[kind]
	return ok && now.Sub(last) < d.cfg.AlertCooldown
}

func (d *Detector) markEmitted(rec *touristRecord, kind models.AlertKind, now time.Time) {
	if rec.lastEmitted == nil {
		rec.lastEmitted = make(map[models.AlertKind]time.Time)
	}
	rec.lastEmitted[kind] = now
}

// averageSpeedKmh computes the mean speed across consecutive sample pairs:
// total great-circle distance divided by total elapsed time. Zero elapsed
// time yields zero speed.
func averageSpeedKmh(samples []models.LocationSample) float64 {
	if len(samples) < 2 {
		return 0
	}

	var totalDistanceKm, totalHours float64
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		totalDistanceKm += geo.DistanceKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		totalHours += cur.Timestamp.Sub(prev.Timestamp).Hours()
	}

	if totalHours <= 0 {
		return 0
	}
	return totalDistanceKm / totalHours
}
