package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/internal/models"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func newTestDetector() *anomaly.Detector {
	return anomaly.NewDetector(anomaly.DefaultConfig(), zerolog.Nop())
}

func locationPayload(t *testing.T, msg models.LocationMessage) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return payload
}

// TestIngestService_StartStop tests the subscribe/unsubscribe lifecycle.
func TestIngestService_StartStop(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Subscribe", "sentinel/location/+", byte(1), mock.Anything).Return(stubToken{})
	mockMQTT.On("Unsubscribe", []string{"sentinel/location/+"}).Return(stubToken{})

	svc := NewIngestService("sentinel/location", "sentinel/alerts", 1,
		newTestDetector(), mockMQTT, newTestMetrics(), zerolog.Nop())

	require.NoError(t, svc.Start())

	// Starting twice fails.
	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "ingest service is already running", err.Error())

	require.NoError(t, svc.Stop())

	// Stopping twice fails.
	err = svc.Stop()
	require.Error(t, err)
	assert.Equal(t, "ingest service is not running", err.Error())

	mockMQTT.AssertExpectations(t)
}

// TestIngestService_HandleLocationMessage_RecordsSample tests that a clean
// update lands in the detector without producing alerts.
func TestIngestService_HandleLocationMessage_RecordsSample(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(stubToken{})

	detector := newTestDetector()
	svc := NewIngestService("sentinel/location", "sentinel/alerts", 1,
		detector, mockMQTT, newTestMetrics(), zerolog.Nop())
	require.NoError(t, svc.Start())

	payload := locationPayload(t, models.LocationMessage{
		Latitude:  25.5788,
		Longitude: 91.8933,
		Timestamp: time.Now(),
	})
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/t1", payload))

	// Tourist id came from the topic suffix.
	assert.Len(t, detector.History("t1"), 1)
	mockMQTT.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestIngestService_HandleLocationMessage_PublishesAlerts tests that a
// geofence violation is published on the alert topic.
func TestIngestService_HandleLocationMessage_PublishesAlerts(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(stubToken{})
	mockMQTT.On("Publish", "sentinel/alerts", byte(1), false, mock.Anything).Return(stubToken{})

	detector := newTestDetector()
	require.NoError(t, detector.SetPlannedZones("t1", []models.GeofenceZone{
		{ID: "z1", CenterLatitude: 25.5788, CenterLongitude: 91.8933, RadiusMeters: 1000, Kind: models.ZonePlanned},
	}))

	svc := NewIngestService("sentinel/location", "sentinel/alerts", 1,
		detector, mockMQTT, newTestMetrics(), zerolog.Nop())
	require.NoError(t, svc.Start())

	payload := locationPayload(t, models.LocationMessage{
		Latitude:  26.00,
		Longitude: 92.50,
		Timestamp: time.Now(),
	})
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/t1", payload))

	require.Len(t, detector.ActiveAlerts("t1"), 1)
	mockMQTT.AssertCalled(t, "Publish", "sentinel/alerts", byte(1), false, mock.Anything)

	// The published payload decodes back into the stored alert.
	published := mockMQTT.Calls[len(mockMQTT.Calls)-1].Arguments.Get(3).([]byte)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(published, &alert))
	assert.Equal(t, models.AlertGeofenceViolation, alert.Kind)
	assert.Equal(t, "t1", alert.TouristID)
}

// TestIngestService_HandleLocationMessage_RejectsBadInput tests malformed
// payloads and invalid coordinates.
func TestIngestService_HandleLocationMessage_RejectsBadInput(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(stubToken{})

	detector := newTestDetector()
	svc := NewIngestService("sentinel/location", "sentinel/alerts", 1,
		detector, mockMQTT, newTestMetrics(), zerolog.Nop())
	require.NoError(t, svc.Start())

	// Garbage JSON.
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/t1", []byte("{not json")))
	assert.Empty(t, detector.History("t1"))

	// Latitude out of range.
	payload := locationPayload(t, models.LocationMessage{Latitude: 91, Longitude: 0, Timestamp: time.Now()})
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/t1", payload))
	assert.Empty(t, detector.History("t1"))

	// No tourist id anywhere.
	payload = locationPayload(t, models.LocationMessage{Latitude: 25.5, Longitude: 91.8, Timestamp: time.Now()})
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/", payload))
	assert.Equal(t, 0, detector.TrackedTourists())
}

// TestIngestService_BodyTouristIDWins tests that an explicit body id
// overrides the topic suffix.
func TestIngestService_BodyTouristIDWins(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(stubToken{})

	detector := newTestDetector()
	svc := NewIngestService("sentinel/location", "sentinel/alerts", 1,
		detector, mockMQTT, newTestMetrics(), zerolog.Nop())
	require.NoError(t, svc.Start())

	payload := locationPayload(t, models.LocationMessage{
		TouristID: "body-id",
		Latitude:  25.5788,
		Longitude: 91.8933,
		Timestamp: time.Now(),
	})
	svc.HandleLocationMessage(nil, NewMockMessage("sentinel/location/topic-id", payload))

	assert.Len(t, detector.History("body-id"), 1)
	assert.Empty(t, detector.History("topic-id"))
}
