package anomaly

import (
	"time"
)

// Default detection thresholds. Calibrated for city-scale tourist tracking;
// override per deployment through the configuration file.
const (
	DefaultRetentionWindow         = 24 * time.Hour
	DefaultInactivityThreshold     = 30 * time.Minute
	DefaultInactivityHighThreshold = 60 * time.Minute
	DefaultSpeedWindowSamples      = 3
	DefaultSpeedThresholdKmh       = 100.0
)

// Config carries the detector thresholds. Zero values fall back to the
// defaults above.
type Config struct {
	// RetentionWindow bounds how long location samples are kept per tourist.
	RetentionWindow time.Duration

	// InactivityThreshold is the silence duration after which a tourist is
	// flagged inactive; InactivityHighThreshold escalates the severity.
	InactivityThreshold     time.Duration
	InactivityHighThreshold time.Duration

	// SpeedWindowSamples is how many trailing samples feed the average-speed
	// estimate; SpeedThresholdKmh is the speed above which movement is
	// flagged as unusual.
	SpeedWindowSamples int
	SpeedThresholdKmh  float64

	// AlertCooldown suppresses re-emission of the same alert kind for the
	// same tourist within the window. Zero disables suppression, matching
	// the behavior of re-firing on every sweep.
	AlertCooldown time.Duration

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a Config populated with the default thresholds and
// no alert cooldown.
func DefaultConfig() Config {
	return Config{
		RetentionWindow:         DefaultRetentionWindow,
		InactivityThreshold:     DefaultInactivityThreshold,
		InactivityHighThreshold: DefaultInactivityHighThreshold,
		SpeedWindowSamples:      DefaultSpeedWindowSamples,
		SpeedThresholdKmh:       DefaultSpeedThresholdKmh,
	}
}

// withDefaults fills in zero-valued fields.
func (c Config) withDefaults() Config {
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = DefaultRetentionWindow
	}
	if c.InactivityThreshold <= 0 {
		c.InactivityThreshold = DefaultInactivityThreshold
	}
	if c.InactivityHighThreshold <= 0 {
		c.InactivityHighThreshold = DefaultInactivityHighThreshold
	}
	if c.SpeedWindowSamples <= 0 {
		c.SpeedWindowSamples = DefaultSpeedWindowSamples
	}
	if c.SpeedThresholdKmh <= 0 {
		c.SpeedThresholdKmh = DefaultSpeedThresholdKmh
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
