package service_registry

import (
	"fmt"
	"time"

	"github.com/safetrail/sentinel-agent/internal/services"
	"github.com/safetrail/sentinel-agent/internal/utils"
	"github.com/safetrail/sentinel-agent/pkg/identity"
	"github.com/safetrail/sentinel-agent/pkg/track"
)

// Default intervals applied when the configuration leaves them unset.
const (
	defaultSweepInterval      = 30 * time.Second
	defaultTrackerInterval    = 60 * time.Second
	defaultSimulationInterval = 10 * time.Second
)

// RegisterServices registers the enabled services based on the provided
// configuration and tourist identity.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, touristInfo identity.TouristInfoInterface) error {
	if config.Services.Ingest.Enabled {
		sr.RegisterService("ingest", services.NewIngestService(
			config.Topics.Location,
			config.Topics.Alerts,
			config.Services.Ingest.QOS,
			sr.detector,
			sr.mqttClient,
			sr.metrics,
			sr.logger,
		))
	}

	if config.Services.Itinerary.Enabled {
		sr.RegisterService("itinerary", services.NewItineraryService(
			config.Topics.Itinerary,
			config.Services.Itinerary.QOS,
			sr.detector,
			sr.mqttClient,
			sr.logger,
		))
	}

	if config.Services.Sweep.Enabled {
		interval := config.Services.Sweep.Interval
		if interval <= 0 {
			interval = defaultSweepInterval
		}
		sr.RegisterService("sweep", services.NewSweepService(
			config.Topics.Alerts,
			interval,
			config.Services.Sweep.QOS,
			sr.detector,
			sr.mqttClient,
			sr.metrics,
			sr.logger,
		))
	}

	if config.Services.Tracker.Enabled {
		provider, err := sr.buildTrackProvider(config)
		if err != nil {
			return fmt.Errorf("failed to build position provider: %w", err)
		}

		interval := config.Services.Tracker.Interval
		if interval <= 0 {
			interval = defaultTrackerInterval
		}
		sr.RegisterService("tracker", services.NewTrackerService(
			config.Topics.Location,
			config.Topics.Alerts,
			interval,
			config.Services.Tracker.QOS,
			touristInfo,
			sr.detector,
			sr.mqttClient,
			provider,
			sr.logger,
		))
	}

	if config.Services.Simulation.Enabled {
		interval := config.Services.Simulation.Interval
		if interval <= 0 {
			interval = defaultSimulationInterval
		}
		sr.RegisterService("simulation", services.NewSimulationService(
			config.Services.Simulation.Tourists,
			config.Topics.Alerts,
			interval,
			config.Services.Simulation.QOS,
			sr.detector,
			sr.mqttClient,
			sr.logger,
		))
	}

	if config.Services.API.Enabled {
		sr.RegisterService("api", services.NewAPIService(
			config.Services.API.Address,
			sr.detector,
			sr.metrics,
			sr.promReg,
			sr.logger,
		))
	}

	return nil
}

// buildTrackProvider selects the device position provider for self-tracking
// mode.
func (sr *ServiceRegistry) buildTrackProvider(config *utils.Config) (track.Provider, error) {
	if config.Services.Tracker.SensorBased {
		return track.NewGPSSensorProvider(
			config.Services.Tracker.GPSDevicePort,
			config.Services.Tracker.GPSDeviceBaudRate,
		), nil
	}
	return track.NewGoogleGeolocationProvider(
		config.Services.Tracker.MapsAPIKey,
		config.Services.Tracker.ModemIndex,
	)
}
