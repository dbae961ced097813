package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/models"
)

// TestSweepService_StartStop tests the sweep loop lifecycle.
func TestSweepService_StartStop(t *testing.T) {
	mockMQTT := new(MockMQTTClient)
	svc := NewSweepService("sentinel/alerts", time.Hour, 1,
		newTestDetector(), mockMQTT, newTestMetrics(), zerolog.Nop())

	require.NoError(t, svc.Start())

	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "sweep service is already running", err.Error())

	require.NoError(t, svc.Stop())

	err = svc.Stop()
	require.Error(t, err)
	assert.Equal(t, "sweep service is not running", err.Error())
}

// TestSweepService_PublishesInactivityAlerts drives the sweep loop with a
// short interval against a detector primed with an inactive tourist.
func TestSweepService_PublishesInactivityAlerts(t *testing.T) {
	// A clock stuck 31 minutes after the only sample makes every sweep flag
	// the tourist.
	base := time.Now().Add(-31 * time.Minute)
	cfg := anomaly.DefaultConfig()
	cfg.Clock = func() time.Time { return base.Add(31 * time.Minute) }
	detector := anomaly.NewDetector(cfg, zerolog.Nop())

	_, err := detector.IngestLocation("t1", models.LocationSample{
		Latitude:  25.5788,
		Longitude: 91.8933,
		Timestamp: base,
	})
	require.NoError(t, err)

	published := make(chan struct{}, 16)
	mockMQTT := new(MockMQTTClient)
	mockMQTT.On("Publish", "sentinel/alerts", byte(1), false, mock.Anything).
		Run(func(mock.Arguments) { published <- struct{}{} }).
		Return(stubToken{})

	m := newTestMetrics()
	svc := NewSweepService("sentinel/alerts", 20*time.Millisecond, 1, detector, mockMQTT, m, zerolog.Nop())
	require.NoError(t, svc.Start())

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an inactivity alert to be published")
	}

	require.NoError(t, svc.Stop())

	alerts := detector.ActiveAlerts("t1")
	require.NotEmpty(t, alerts)
	assert.Equal(t, models.AlertInactivity, alerts[0].Kind)
}
