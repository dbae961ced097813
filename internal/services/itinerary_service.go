package services

import (
	"encoding/json"
	"errors"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

// ItineraryService consumes planned-itinerary updates and replaces the
// tourist's geofence zone set wholesale.
type ItineraryService struct {
	subTopic string
	qos      int

	detector   AnomalyDetector
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewItineraryService creates a new ItineraryService instance.
func NewItineraryService(subTopic string, qos int, detector AnomalyDetector,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *ItineraryService {
	return &ItineraryService{
		subTopic:   subTopic,
		qos:        qos,
		detector:   detector,
		mqttClient: mqttClient,
		logger:     logger,
	}
}

// Start subscribes to the per-tourist itinerary topics.
func (s *ItineraryService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn().Msg("ItineraryService is already running")
		return errors.New("itinerary service is already running")
	}

	topic := s.subTopic + "/+"
	token := s.mqttClient.Subscribe(topic, byte(s.qos), s.HandleItineraryMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to itinerary topic")
		return err
	}

	s.stopChan = make(chan struct{})
	s.running = true
	s.logger.Info().Str("topic", topic).Msg("ItineraryService started")
	return nil
}

// Stop unsubscribes and waits for in-flight handlers to finish.
func (s *ItineraryService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("ItineraryService is not running")
		return errors.New("itinerary service is not running")
	}
	close(s.stopChan)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	topic := s.subTopic + "/+"
	token := s.mqttClient.Unsubscribe(topic)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from itinerary topic")
		return err
	}

	s.logger.Info().Msg("ItineraryService stopped")
	return nil
}

// HandleItineraryMessage processes one itinerary replacement from MQTT.
func (s *ItineraryService) HandleItineraryMessage(_ MQTT.Client, msg MQTT.Message) {
	s.mu.Lock()
	select {
	case <-s.stopChan:
		s.mu.Unlock()
		s.logger.Warn().Msg("Received itinerary update while stopping, ignoring")
		return
	default:
		s.wg.Add(1)
		s.mu.Unlock()
	}
	defer s.wg.Done()

	var message models.ItineraryMessage
	if err := json.Unmarshal(msg.Payload(), &message); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to decode itinerary message")
		return
	}

	touristID := message.TouristID
	if touristID == "" {
		touristID = touristIDFromTopic(msg.Topic())
	}
	if touristID == "" {
		s.logger.Error().Str("topic", msg.Topic()).Msg("Itinerary message carries no tourist id")
		return
	}

	if err := s.detector.SetPlannedZones(touristID, message.Zones); err != nil {
		s.logger.Error().Err(err).Str("tourist_id", touristID).Msg("Failed to replace planned zones")
		return
	}

	s.logger.Info().
		Str("tourist_id", touristID).
		Int("zones", len(message.Zones)).
		Msg("Planned itinerary updated")
}
