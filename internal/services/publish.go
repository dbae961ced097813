package services

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

// publishAlerts serializes each alert and publishes it on the alert topic.
// Publish failures are logged, not returned: an alert that reached the
// in-memory store must not block the ingestion path.
func publishAlerts(client mqtt.MQTTClient, topic string, qos int, alerts []models.Alert, logger zerolog.Logger) {
	for _, alert := range alerts {
		payload, err := json.Marshal(alert)
		if err != nil {
			logger.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to serialize alert")
			continue
		}

		token := client.Publish(topic, byte(qos), false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error().Err(err).
				Str("alert_id", alert.ID).
				Str("topic", topic).
				Msg("Failed to publish alert")
			continue
		}

		logger.Info().
			Str("alert_id", alert.ID).
			Str("tourist_id", alert.TouristID).
			Str("kind", string(alert.Kind)).
			Str("severity", string(alert.Severity)).
			Msg("Alert published")
	}
}

// touristIDFromTopic extracts the trailing topic segment, which carries the
// tourist id on the per-tourist MQTT topics.
func touristIDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
