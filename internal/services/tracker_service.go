package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/identity"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
	"github.com/safetrail/sentinel-agent/pkg/track"
)

// TrackerService runs the agent in self-tracking mode: it periodically reads
// the position of the device it runs on, feeds it to the local detector and
// publishes it upstream so a central instance sees the same feed.
type TrackerService struct {
	// Configuration fields
	pubTopic   string
	alertTopic string
	interval   time.Duration
	qos        int

	// Dependencies
	touristInfo identity.TouristInfoInterface
	detector    AnomalyDetector
	mqttClient  mqtt.MQTTClient
	provider    track.Provider
	logger      zerolog.Logger

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewTrackerService creates a new TrackerService instance with the provided
// configuration.
func NewTrackerService(pubTopic, alertTopic string, interval time.Duration, qos int,
	touristInfo identity.TouristInfoInterface, detector AnomalyDetector,
	mqttClient mqtt.MQTTClient, provider track.Provider, logger zerolog.Logger) *TrackerService {
	return &TrackerService{
		pubTopic:    pubTopic,
		alertTopic:  alertTopic,
		interval:    interval,
		qos:         qos,
		touristInfo: touristInfo,
		detector:    detector,
		mqttClient:  mqttClient,
		provider:    provider,
		logger:      logger,
	}
}

// Start launches the tracking loop in a separate goroutine.
func (t *TrackerService) Start() error {
	if t.running {
		t.logger.Warn().Msg("TrackerService is already running")
		return errors.New("tracker service is already running")
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := t.trackOnce(); err != nil {
					t.logger.Error().Err(err).Msg("Failed to record device position")
				}
			case <-t.ctx.Done():
				t.logger.Info().Msg("TrackerService is stopping")
				return
			}
		}
	}()

	t.logger.Info().
		Str("topic", t.pubTopic).
		Dur("interval", t.interval).
		Msg("TrackerService started")
	return nil
}

// Stop gracefully stops the tracking loop and closes the position provider.
func (t *TrackerService) Stop() error {
	if !t.running {
		t.logger.Warn().Msg("TrackerService is not running")
		return errors.New("tracker service is not running")
	}

	t.cancel()
	t.wg.Wait()

	if err := t.provider.Close(); err != nil {
		t.logger.Error().Err(err).Msg("Failed to close position provider")
		return err
	}

	t.running = false
	t.logger.Info().Msg("TrackerService stopped")
	return nil
}

// trackOnce reads one position fix, ingests it locally and publishes it
// upstream.
func (t *TrackerService) trackOnce() error {
	position, err := t.provider.GetPosition()
	if err != nil {
		return err
	}

	touristID := t.touristInfo.GetTouristID()
	sample := models.LocationSample{
		Latitude:  position.Latitude,
		Longitude: position.Longitude,
		Timestamp: time.Now(),
		Accuracy:  position.Accuracy,
	}

	alerts, err := t.detector.IngestLocation(touristID, sample)
	if err != nil {
		return err
	}
	if len(alerts) > 0 {
		publishAlerts(t.mqttClient, t.alertTopic, t.qos, alerts, t.logger)
	}

	message := models.LocationMessage{
		TouristID: touristID,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Timestamp: sample.Timestamp,
		Accuracy:  sample.Accuracy,
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	topic := t.pubTopic + "/" + touristID
	token := t.mqttClient.Publish(topic, byte(t.qos), false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		t.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish device position")
		return err
	}

	t.logger.Debug().
		Float64("latitude", sample.Latitude).
		Float64("longitude", sample.Longitude).
		Str("topic", topic).
		Msg("Device position published")
	return nil
}
