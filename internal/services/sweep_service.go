package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

// SweepService periodically runs the inactivity classifier across all
// tracked tourists and publishes any alerts it produces. Location updates
// never trigger it; tourists that went silent are exactly the ones it is
// there to catch.
type SweepService struct {
	// Configuration fields
	alertTopic string
	interval   time.Duration
	qos        int

	// Dependencies
	detector   AnomalyDetector
	mqttClient mqtt.MQTTClient
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSweepService creates a new SweepService instance with the provided
// configuration.
func NewSweepService(alertTopic string, interval time.Duration, qos int, detector AnomalyDetector,
	mqttClient mqtt.MQTTClient, m *metrics.Metrics, logger zerolog.Logger) *SweepService {
	return &SweepService{
		alertTopic: alertTopic,
		interval:   interval,
		qos:        qos,
		detector:   detector,
		mqttClient: mqttClient,
		metrics:    m,
		logger:     logger,
	}
}

// Start launches the sweep loop in a separate goroutine.
func (s *SweepService) Start() error {
	if s.running {
		s.logger.Warn().Msg("SweepService is already running")
		return errors.New("sweep service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runSweep()
			case <-s.ctx.Done():
				s.logger.Info().Msg("SweepService is stopping")
				return
			}
		}
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("SweepService started")
	return nil
}

// Stop gracefully stops the sweep loop.
func (s *SweepService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("SweepService is not running")
		return errors.New("sweep service is not running")
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.logger.Info().Msg("SweepService stopped")
	return nil
}

// runSweep executes one inactivity sweep and publishes its alerts.
func (s *SweepService) runSweep() {
	alerts := s.detector.SweepInactivity()

	s.metrics.SweepsTotal.Inc()
	s.metrics.TrackedTourists.Set(float64(s.detector.TrackedTourists()))
	s.metrics.OpenAlerts.Set(float64(len(s.detector.AllActiveAlerts())))
	for _, alert := range alerts {
		s.metrics.AlertsTotal.WithLabelValues(string(alert.Kind), string(alert.Severity)).Inc()
	}

	if len(alerts) == 0 {
		return
	}

	s.logger.Info().Int("alerts", len(alerts)).Msg("Inactivity sweep flagged tourists")
	publishAlerts(s.mqttClient, s.alertTopic, s.qos, alerts, s.logger)
}
