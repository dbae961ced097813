package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safetrail/sentinel-agent/internal/models"
	"github.com/safetrail/sentinel-agent/pkg/track"
)

// TestTrackerService_StartStop tests the tracking loop lifecycle including
// provider shutdown.
func TestTrackerService_StartStop(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	mockProvider := new(MockPositionProvider)
	mockProvider.On("Close").Return(nil)
	mockInfo := new(MockTouristInfo)

	svc := NewTrackerService("sentinel/location", "sentinel/alerts", time.Hour, 1,
		mockInfo, newTestDetector(), mockMQTT, mockProvider, zerolog.Nop())

	require.NoError(t, svc.Start())

	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "tracker service is already running", err.Error())

	require.NoError(t, svc.Stop())
	mockProvider.AssertCalled(t, "Close")

	err = svc.Stop()
	require.Error(t, err)
	assert.Equal(t, "tracker service is not running", err.Error())
}

// TestTrackerService_PublishesDevicePosition drives one tracking tick and
// verifies the position is ingested locally and published upstream.
func TestTrackerService_PublishesDevicePosition(t *testing.T) {
	mockProvider := new(MockPositionProvider)
	mockProvider.On("GetPosition").Return(track.Position{
		Latitude:  25.5788,
		Longitude: 91.8933,
		Accuracy:  4,
	}, nil)
	mockProvider.On("Close").Return(nil)

	mockInfo := new(MockTouristInfo)
	mockInfo.On("GetTouristID").Return("device-tourist")

	published := make(chan []byte, 16)
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Publish", "sentinel/location/device-tourist", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { published <- args.Get(3).([]byte) }).
		Return(stubToken{})

	detector := newTestDetector()
	svc := NewTrackerService("sentinel/location", "sentinel/alerts", 20*time.Millisecond, 1,
		mockInfo, detector, mockMQTT, mockProvider, zerolog.Nop())
	require.NoError(t, svc.Start())

	var payload []byte
	select {
	case payload = <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a device position to be published")
	}

	require.NoError(t, svc.Stop())

	var message models.LocationMessage
	require.NoError(t, json.Unmarshal(payload, &message))
	assert.Equal(t, "device-tourist", message.TouristID)
	assert.Equal(t, 25.5788, message.Latitude)
	assert.Equal(t, 91.8933, message.Longitude)

	// The local detector saw the same sample.
	assert.NotEmpty(t, detector.History("device-tourist"))
}
