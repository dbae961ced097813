package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

// SimulatedTourist describes one tourist driven by the demo feed.
type SimulatedTourist struct {
	TouristID     string  `yaml:"tourist_id"`
	BaseLatitude  float64 `yaml:"base_latitude"`
	BaseLongitude float64 `yaml:"base_longitude"`
}

// SimulationService generates a demo location feed: each simulated tourist
// wanders randomly around a base coordinate. Useful for exercising the
// dashboards without real devices.
type SimulationService struct {
	// Configuration fields
	tourists   []SimulatedTourist
	alertTopic string
	interval   time.Duration
	qos        int

	// Dependencies
	detector   AnomalyDetector
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	// Internal state management
	rng     *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSimulationService creates a new SimulationService instance with the
// provided configuration.
func NewSimulationService(tourists []SimulatedTourist, alertTopic string, interval time.Duration,
	qos int, detector AnomalyDetector, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *SimulationService {
	return &SimulationService{
		tourists:   tourists,
		alertTopic: alertTopic,
		interval:   interval,
		qos:        qos,
		detector:   detector,
		mqttClient: mqttClient,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches the simulation loop in a separate goroutine.
func (s *SimulationService) Start() error {
	if s.running {
		s.logger.Warn().Msg("SimulationService is already running")
		return errors.New("simulation service is already running")
	}
	if len(s.tourists) == 0 {
		return errors.New("simulation service has no tourists configured")
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
				s.stepAll()
			case <-s.ctx.Done():
				s.logger.Info().Msg("SimulationService is stopping")
				return
			}
		}
	}()

	s.logger.Info().
		Int("tourists", len(s.tourists)).
		Dur("interval", s.interval).
		Msg("SimulationService started")
	return nil
}

// Stop gracefully stops the simulation loop.
func (s *SimulationService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("SimulationService is not running")
		return errors.New("simulation service is not running")
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.logger.Info().Msg("SimulationService stopped")
	return nil
}

// stepAll ingests one jittered sample per simulated tourist.
func (s *SimulationService) stepAll() {
	for _, tourist := range s.tourists {
		sample := models.LocationSample{
			Latitude:  tourist.BaseLatitude + (s.rng.Float64()-0.5)*0.01,
			Longitude: tourist.BaseLongitude + (s.rng.Float64()-0.5)*0.01,
			Timestamp: time.Now(),
			Accuracy:  5,
		}

		alerts, err := s.detector.IngestLocation(tourist.TouristID, sample)
		if err != nil {
			s.logger.Error().Err(err).Str("tourist_id", tourist.TouristID).Msg("Failed to ingest simulated sample")
			continue
		}
		if len(alerts) > 0 {
			publishAlerts(s.mqttClient, s.alertTopic, s.qos, alerts, s.logger)
		}
	}
}
