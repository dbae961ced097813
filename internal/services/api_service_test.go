package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/internal/models"
)

func newTestAPI(t *testing.T) (*APIService, *httptest.Server) {
	t.Helper()

	registry := prometheus.NewRegistry()
	svc := NewAPIService(":0", newTestDetector(), metrics.New(registry), registry, zerolog.Nop())
	server := httptest.NewServer(svc.Routes())
	t.Cleanup(server.Close)
	return svc, server
}

func doJSON(t *testing.T, method, url string, body string, out any) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestAPIService_HealthAndMetrics(t *testing.T) {
	_, server := newTestAPI(t)

	var health map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/healthz", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	resp = doJSON(t, http.MethodGet, server.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIService_ZoneRoundTripAndIngestion(t *testing.T) {
	svc, server := newTestAPI(t)

	zones := `[{"id":"z1","name":"Shillong","center_latitude":25.5788,"center_longitude":91.8933,"radius_meters":5000,"kind":"planned"}]`
	resp := doJSON(t, http.MethodPut, server.URL+"/api/tourists/t1/zones", zones, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var gotZones []models.GeofenceZone
	resp = doJSON(t, http.MethodGet, server.URL+"/api/tourists/t1/zones", "", &gotZones)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, gotZones, 1)
	assert.Equal(t, "z1", gotZones[0].ID)

	// In-zone sample: no alerts back.
	location := fmt.Sprintf(`{"latitude":25.60,"longitude":91.90,"timestamp":%q}`,
		time.Now().Format(time.RFC3339Nano))
	var alerts []models.Alert
	resp = doJSON(t, http.MethodPost, server.URL+"/api/tourists/t1/location", location, &alerts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, alerts)

	// Out-of-zone sample: the violation comes back synchronously.
	location = fmt.Sprintf(`{"latitude":26.00,"longitude":92.50,"timestamp":%q}`,
		time.Now().Format(time.RFC3339Nano))
	resp = doJSON(t, http.MethodPost, server.URL+"/api/tourists/t1/location", location, &alerts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGeofenceViolation, alerts[0].Kind)

	// History now holds both samples.
	var history []models.LocationSample
	resp = doJSON(t, http.MethodGet, server.URL+"/api/tourists/t1/history", "", &history)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, history, 2)

	// The alert shows in both alert views until acknowledged.
	var all []models.Alert
	doJSON(t, http.MethodGet, server.URL+"/api/alerts", "", &all)
	require.Len(t, all, 1)

	var ack map[string]bool
	resp = doJSON(t, http.MethodPost, server.URL+"/api/alerts/"+all[0].ID+"/ack", "", &ack)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ack["acknowledged"])

	doJSON(t, http.MethodGet, server.URL+"/api/alerts", "", &all)
	assert.Empty(t, all)

	// Acknowledging an unknown id stays a no-op.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/alerts/GEO-0-nobody/ack", "", &ack)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, ack["acknowledged"])

	// The service was never started; nothing to stop.
	err := svc.Stop()
	require.Error(t, err)
}

func TestAPIService_RejectsBadPayloads(t *testing.T) {
	_, server := newTestAPI(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/tourists/t1/zones", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/tourists/t1/location", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Out-of-range coordinates are rejected with a validation failure.
	var body map[string]string
	resp = doJSON(t, http.MethodPost, server.URL+"/api/tourists/t1/location",
		`{"latitude":95,"longitude":0}`, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid coordinates")

	var history []models.LocationSample
	doJSON(t, http.MethodGet, server.URL+"/api/tourists/t1/history", "", &history)
	assert.Empty(t, history)
}
