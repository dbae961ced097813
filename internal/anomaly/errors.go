package anomaly

import (
	"fmt"
)

// ValidationError reports a location sample rejected at the ingestion
// boundary before any detection ran.
type ValidationError struct {
	TouristID string
	Latitude  float64
	Longitude float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid coordinates (%v, %v) for tourist %q: latitude must be in [-90, 90] and longitude in [-180, 180]",
		e.Latitude, e.Longitude, e.TouristID)
}
