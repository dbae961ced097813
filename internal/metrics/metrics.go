// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by the agent services.
type Metrics struct {
	SamplesIngested prometheus.Counter
	SamplesRejected prometheus.Counter
	AlertsTotal     *prometheus.CounterVec
	SweepsTotal     prometheus.Counter
	TrackedTourists prometheus.Gauge
	OpenAlerts      prometheus.Gauge
}

// New registers the agent collectors with the given registerer and returns
// them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SamplesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_location_samples_ingested_total",
			Help: "Location samples accepted by the anomaly detector",
		}),
		SamplesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_location_samples_rejected_total",
			Help: "Location samples rejected at the ingestion boundary",
		}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Anomaly alerts emitted, labeled by classifier kind and severity",
		}, []string{"kind", "severity"}),
		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_inactivity_sweeps_total",
			Help: "Inactivity sweeps executed",
		}),
		TrackedTourists: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_tracked_tourists",
			Help: "Tourists with an active tracking record",
		}),
		OpenAlerts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_open_alerts",
			Help: "Unacknowledged alerts across all tourists",
		}),
	}
}
