package services

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

// IngestService consumes location updates published by tourist devices and
// runs them through the anomaly detector. Alerts produced by an update are
// published on the alert topic.
type IngestService struct {
	// Configuration fields
	subTopic   string
	alertTopic string
	qos        int

	// Dependencies
	detector   AnomalyDetector
	mqttClient mqtt.MQTTClient
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// Internal state management
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewIngestService creates a new IngestService instance with the provided
// configuration.
func NewIngestService(subTopic, alertTopic string, qos int, detector AnomalyDetector,
	mqttClient mqtt.MQTTClient, m *metrics.Metrics, logger zerolog.Logger) *IngestService {
	return &IngestService{
		subTopic:   subTopic,
		alertTopic: alertTopic,
		qos:        qos,
		detector:   detector,
		mqttClient: mqttClient,
		metrics:    m,
		logger:     logger,
	}
}

// Start subscribes to the per-tourist location topics.
func (s *IngestService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn().Msg("IngestService is already running")
		return errors.New("ingest service is already running")
	}

	topic := s.subTopic + "/+"
	token := s.mqttClient.Subscribe(topic, byte(s.qos), s.HandleLocationMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to location topic")
		return err
	}

	s.stopChan = make(chan struct{})
	s.running = true
	s.logger.Info().Str("topic", topic).Msg("IngestService started")
	return nil
}

// Stop unsubscribes and waits for in-flight handlers to finish.
func (s *IngestService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("IngestService is not running")
		return errors.New("ingest service is not running")
	}
	close(s.stopChan)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	topic := s.subTopic + "/+"
	token := s.mqttClient.Unsubscribe(topic)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from location topic")
		return err
	}

	s.logger.Info().Msg("IngestService stopped")
	return nil
}

// HandleLocationMessage processes one location update from MQTT.
func (s *IngestService) HandleLocationMessage(_ MQTT.Client, msg MQTT.Message) {
	s.mu.Lock()
	select {
	case <-s.stopChan:
		s.mu.Unlock()
		s.logger.Warn().Msg("Received location update while stopping, ignoring")
		return
	default:
		s.wg.Add(1)
		s.mu.Unlock()
	}
	defer s.wg.Done()

	var message models.LocationMessage
	if err := json.Unmarshal(msg.Payload(), &message); err != nil {
		s.metrics.SamplesRejected.Inc()
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to decode location message")
		return
	}

	touristID := message.TouristID
	if touristID == "" {
		touristID = touristIDFromTopic(msg.Topic())
	}
	if touristID == "" {
		s.metrics.SamplesRejected.Inc()
		s.logger.Error().Str("topic", msg.Topic()).Msg("Location message carries no tourist id")
		return
	}

	alerts, err := s.detector.IngestLocation(touristID, message.Sample(time.Now()))
	if err != nil {
		s.metrics.SamplesRejected.Inc()

		var verr *anomaly.ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn().Err(err).Str("tourist_id", touristID).Msg("Rejected location sample")
			return
		}
		s.logger.Error().Err(err).Str("tourist_id", touristID).Msg("Failed to ingest location sample")
		return
	}

	s.metrics.SamplesIngested.Inc()
	s.metrics.TrackedTourists.Set(float64(s.detector.TrackedTourists()))
	for _, alert := range alerts {
		s.metrics.AlertsTotal.WithLabelValues(string(alert.Kind), string(alert.Severity)).Inc()
	}

	if len(alerts) > 0 {
		publishAlerts(s.mqttClient, s.alertTopic, s.qos, alerts, s.logger)
	}
}
