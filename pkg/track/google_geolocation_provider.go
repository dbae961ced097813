package track

import (
	"context"
	"time"

	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider estimates the device position from nearby WiFi
// access points, cell towers and the caller's IP via the Google Maps
// Geolocation API. Useful on devices without a GPS sensor.
type GoogleGeolocationProvider struct {
	client     *maps.Client
	modemIndex int
	timeout    time.Duration
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider
// instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		timeout:    10 * time.Second,
	}, nil
}

// GetPosition retrieves the device position using the Geolocation API.
// WiFi and cell scans are best effort; the request falls back to IP-based
// positioning when neither is available.
func (g *GoogleGeolocationProvider) GetPosition() (Position, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := getCellTowers(ctx, g.modemIndex); err == nil {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Position{}, err
	}

	return Position{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// Close is a no-op; the API client holds no persistent resources.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
