package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/internal/models"
)

const apiShutdownTimeout = 5 * time.Second

// APIService exposes the detector's query surface over HTTP for dashboards
// and operator consoles, plus the Prometheus metrics endpoint.
type APIService struct {
	// Configuration fields
	address string

	// Dependencies
	detector AnomalyDetector
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	logger   zerolog.Logger

	// Internal state management
	server  *http.Server
	wg      sync.WaitGroup
	running bool
}

// NewAPIService creates a new APIService listening on the given address.
func NewAPIService(address string, detector AnomalyDetector, m *metrics.Metrics,
	registry *prometheus.Registry, logger zerolog.Logger) *APIService {
	return &APIService{
		address:  address,
		detector: detector,
		metrics:  m,
		registry: registry,
		logger:   logger,
	}
}

// Routes builds the HTTP router. Exposed separately so tests can drive the
// handlers without a listening socket.
func (a *APIService) Routes() http.Handler {
	router := httprouter.New()

	router.GET("/healthz", a.handleHealth)
	router.Handler(http.MethodGet, "/metrics",
		promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	router.GET("/api/alerts", a.handleAllAlerts)
	router.POST("/api/alerts/:id/ack", a.handleAcknowledge)

	router.GET("/api/tourists/:id/alerts", a.handleTouristAlerts)
	router.GET("/api/tourists/:id/history", a.handleTouristHistory)
	router.GET("/api/tourists/:id/zones", a.handleGetZones)
	router.PUT("/api/tourists/:id/zones", a.handleReplaceZones)
	router.POST("/api/tourists/:id/location", a.handleIngestLocation)

	return router
}

// Start begins serving the HTTP API in a separate goroutine.
func (a *APIService) Start() error {
	if a.running {
		a.logger.Warn().Msg("APIService is already running")
		return errors.New("api service is already running")
	}

	a.server = &http.Server{
		Addr:    a.address,
		Handler: a.Routes(),
	}
	a.running = true

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("HTTP API server failed")
		}
	}()

	a.logger.Info().Str("address", a.address).Msg("APIService started")
	return nil
}

// Stop shuts the HTTP server down, draining in-flight requests.
func (a *APIService) Stop() error {
	if !a.running {
		a.logger.Warn().Msg("APIService is not running")
		return errors.New("api service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.wg.Wait()
	a.running = false

	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to shut down HTTP API server")
		return err
	}

	a.logger.Info().Msg("APIService stopped")
	return nil
}

func (a *APIService) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"tracked_tourists": a.detector.TrackedTourists(),
	})
}

func (a *APIService) handleAllAlerts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	alerts := a.detector.AllActiveAlerts()
	a.metrics.OpenAlerts.Set(float64(len(alerts)))
	a.writeJSON(w, http.StatusOK, alertsPayload(alerts))
}

func (a *APIService) handleAcknowledge(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	// Unknown ids are a no-op so late or duplicate acknowledgements from a
	// dashboard never error.
	found := a.detector.Acknowledge(ps.ByName("id"))
	a.writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": found})
}

func (a *APIService) handleTouristAlerts(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	a.writeJSON(w, http.StatusOK, alertsPayload(a.detector.ActiveAlerts(ps.ByName("id"))))
}

func (a *APIService) handleTouristHistory(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	history := a.detector.History(ps.ByName("id"))
	if history == nil {
		history = []models.LocationSample{}
	}
	a.writeJSON(w, http.StatusOK, history)
}

func (a *APIService) handleGetZones(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	zones := a.detector.PlannedZones(ps.ByName("id"))
	if zones == nil {
		zones = []models.GeofenceZone{}
	}
	a.writeJSON(w, http.StatusOK, zones)
}

func (a *APIService) handleReplaceZones(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var zones []models.GeofenceZone
	if err := json.NewDecoder(r.Body).Decode(&zones); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid zone payload")
		return
	}

	touristID := ps.ByName("id")
	if err := a.detector.SetPlannedZones(touristID, zones); err != nil {
		a.logger.Error().Err(err).Str("tourist_id", touristID).Msg("Failed to replace planned zones")
		a.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *APIService) handleIngestLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var message models.LocationMessage
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid location payload")
		return
	}

	touristID := ps.ByName("id")
	alerts, err := a.detector.IngestLocation(touristID, message.Sample(time.Now()))
	if err != nil {
		a.metrics.SamplesRejected.Inc()

		var verr *anomaly.ValidationError
		if errors.As(err, &verr) {
			a.writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		a.logger.Error().Err(err).Str("tourist_id", touristID).Msg("Failed to ingest location sample")
		a.writeError(w, http.StatusInternalServerError, "failed to ingest location sample")
		return
	}

	a.metrics.SamplesIngested.Inc()
	a.metrics.TrackedTourists.Set(float64(a.detector.TrackedTourists()))
	for _, alert := range alerts {
		a.metrics.AlertsTotal.WithLabelValues(string(alert.Kind), string(alert.Severity)).Inc()
	}

	a.writeJSON(w, http.StatusOK, alertsPayload(alerts))
}

func (a *APIService) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error().Err(err).Msg("Failed to encode HTTP response")
	}
}

func (a *APIService) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// alertsPayload normalizes a nil alert slice to an empty JSON array.
func alertsPayload(alerts []models.Alert) []models.Alert {
	if alerts == nil {
		return []models.Alert{}
	}
	return alerts
}
