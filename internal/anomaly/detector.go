// Package anomaly implements the tourist anomaly detection engine: per-tourist
// location history, planned-itinerary geofencing, and the inactivity,
// geofence-violation and unusual-movement classifiers.
package anomaly

import (
	"fmt"
	"sort"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/geoindex"
	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/geo"
)

// Alert id prefixes, one per classifier.
const (
	inactivityIDPrefix = "INACT"
	geofenceIDPrefix   = "GEO"
	movementIDPrefix   = "MOVE"
)

// touristRecord aggregates everything tracked for one tourist. Its mutex
// guards every field; the detector never holds two record locks at once.
type touristRecord struct {
	mu           sync.Mutex
	history      []models.LocationSample
	lastActivity time.Time
	zones        *geoindex.ZoneIndex
	alerts       []*models.Alert

	// lastEmitted backs the optional alert cooldown.
	lastEmitted map[models.AlertKind]time.Time
}

// Detector is the anomaly detection engine. It is safe for concurrent use;
// state is partitioned per tourist so ingestion for one tourist never blocks
// on another. Construct it once and inject it wherever it is consumed.
type Detector struct {
	cfg     Config
	logger  zerolog.Logger
	records cmap.ConcurrentMap[string, *touristRecord]
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		records: cmap.New[*touristRecord](),
	}
}

// record returns the tracking record for touristID, creating it on first
// use. There is no explicit registration step.
func (d *Detector) record(touristID string) *touristRecord {
	if rec, ok := d.records.Get(touristID); ok {
		return rec
	}
	d.records.SetIfAbsent(touristID, &touristRecord{
		lastEmitted: make(map[models.AlertKind]time.Time),
	})
	rec, _ := d.records.Get(touristID)
	return rec
}

// IngestLocation records a new location sample for a tourist, trims the
// retained history to the retention window, and runs the per-ingestion
// classifiers. It returns the alerts produced by this call only.
func (d *Detector) IngestLocation(touristID string, sample models.LocationSample) ([]models.Alert, error) {
	if !geo.ValidCoordinates(sample.Latitude, sample.Longitude) {
		return nil, &ValidationError{
			TouristID: touristID,
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
		}
	}

	now := d.cfg.Clock()
	rec := d.record(touristID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.history = append(rec.history, sample)
	rec.history = trimHistory(rec.history, now.Add(-d.cfg.RetentionWindow))
	rec.lastActivity = sample.Timestamp

	var alerts []models.Alert
	if alert := d.checkGeofenceViolation(rec, touristID, sample, now); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := d.checkUnusualMovement(rec, touristID, sample, now); alert != nil {
		alerts = append(alerts, *alert)
	}

	d.storeLocked(rec, alerts)

	d.logger.Debug().
		Str("tourist_id", touristID).
		Int("history_len", len(rec.history)).
		Int("alerts", len(alerts)).
		Msg("Location sample ingested")

	return alerts, nil
}

// SweepInactivity runs the inactivity classifier across every tracked
// tourist. Callers are expected to invoke it on a fixed interval; with no
// cooldown configured an inactive tourist re-fires on every sweep.
func (d *Detector) SweepInactivity() []models.Alert {
	now := d.cfg.Clock()

	var alerts []models.Alert
	for tuple := range d.records.IterBuffered() {
		touristID, rec := tuple.Key, tuple.Val

		rec.mu.Lock()
		if alert := d.checkInactivity(rec, touristID, now); alert != nil {
			alerts = append(alerts, *alert)
			d.storeLocked(rec, []models.Alert{*alert})
		}
		rec.mu.Unlock()
	}

	if len(alerts) > 0 {
		d.logger.Info().Int("alerts", len(alerts)).Msg("Inactivity sweep produced alerts")
	}
	return alerts
}

// SetPlannedZones replaces a tourist's entire planned-zone set and rebuilds
// the spatial index over it.
func (d *Detector) SetPlannedZones(touristID string, zones []models.GeofenceZone) error {
	idx, err := geoindex.Build(zones)
	if err != nil {
		return fmt.Errorf("failed to index planned zones for tourist %q: %w", touristID, err)
	}

	rec := d.record(touristID)
	rec.mu.Lock()
	rec.zones = idx
	rec.mu.Unlock()

	d.logger.Info().
		Str("tourist_id", touristID).
		Int("zones", len(zones)).
		Msg("Planned itinerary zones replaced")
	return nil
}

// PlannedZones returns the tourist's current planned-zone set, empty if none
// was ever assigned.
func (d *Detector) PlannedZones(touristID string) []models.GeofenceZone {
	rec, ok := d.records.Get(touristID)
	if !ok {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.zones == nil {
		return nil
	}
	return append([]models.GeofenceZone(nil), rec.zones.Zones()...)
}

// History returns the retained location window for a tourist, oldest first.
// Unknown tourists yield an empty history.
func (d *Detector) History(touristID string) []models.LocationSample {
	rec, ok := d.records.Get(touristID)
	if !ok {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]models.LocationSample(nil), rec.history...)
}

// LastActivity returns the timestamp of the tourist's most recent sample.
// The second return value is false when no sample was ever recorded.
func (d *Detector) LastActivity(touristID string) (time.Time, bool) {
	rec, ok := d.records.Get(touristID)
	if !ok {
		return time.Time{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.lastActivity.IsZero() {
		return time.Time{}, false
	}
	return rec.lastActivity, true
}

// ActiveAlerts returns the tourist's unacknowledged alerts in insertion
// order. Unknown tourists yield an empty list.
func (d *Detector) ActiveAlerts(touristID string) []models.Alert {
	rec, ok := d.records.Get(touristID)
	if !ok {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	var active []models.Alert
	for _, alert := range rec.alerts {
		if !alert.Acknowledged {
			active = append(active, *alert)
		}
	}
	return active
}

// AllActiveAlerts returns every unacknowledged alert across all tourists,
// most recent first.
func (d *Detector) AllActiveAlerts() []models.Alert {
	var active []models.Alert
	for tuple := range d.records.IterBuffered() {
		rec := tuple.Val
		rec.mu.Lock()
		for _, alert := range rec.alerts {
			if !alert.Acknowledged {
				active = append(active, *alert)
			}
		}
		rec.mu.Unlock()
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Timestamp.After(active[j].Timestamp)
	})
	return active
}

// Acknowledge marks the alert with the given id as acknowledged. It reports
// whether a matching alert was found; an unknown id is a no-op, not an
// error, so late or duplicate acknowledgements stay harmless.
func (d *Detector) Acknowledge(alertID string) bool {
	for tuple := range d.records.IterBuffered() {
		rec := tuple.Val

		rec.mu.Lock()
		for _, alert := range rec.alerts {
			if alert.ID == alertID {
				alert.Acknowledged = true
				rec.mu.Unlock()
				d.logger.Info().Str("alert_id", alertID).Msg("Alert acknowledged")
				return true
			}
		}
		rec.mu.Unlock()
	}
	return false
}

// TrackedTourists returns how many tourists currently have a tracking
// record.
func (d *Detector) TrackedTourists() int {
	return d.records.Count()
}

// storeLocked appends alerts to the record's alert list. The caller holds
// the record lock.
func (d *Detector) storeLocked(rec *touristRecord, alerts []models.Alert) {
	for i := range alerts {
		a := alerts[i]
		rec.alerts = append(rec.alerts, &a)
	}
}

// trimHistory drops samples at or before the cutoff, preserving order.
func trimHistory(history []models.LocationSample, cutoff time.Time) []models.LocationSample {
	kept := history[:0]
	for _, s := range history {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	return kept
}

// alertID builds the conventional alert identifier from the classifier
// prefix, the emission time and the tourist id.
func alertID(prefix string, ts time.Time, touristID string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, ts.UnixMilli(), touristID)
}
