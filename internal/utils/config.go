package utils

import (
	"time"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/services"
	"github.com/safetrail/sentinel-agent/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID prefix
		Username      string `yaml:"username"`       // Optional broker username
		Password      string `yaml:"password"`       // Optional broker password
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate; empty disables TLS
	} `yaml:"mqtt"`

	Identity struct {
		TouristFile string `yaml:"tourist_file"` // Path to the tourist identity file
	} `yaml:"identity"`

	Topics struct {
		Location  string `yaml:"location"`  // Prefix for per-tourist location topics
		Itinerary string `yaml:"itinerary"` // Prefix for per-tourist itinerary topics
		Alerts    string `yaml:"alerts"`    // Topic alerts are published on
	} `yaml:"topics"`

	Anomaly struct {
		RetentionWindow         time.Duration `yaml:"retention_window"`          // How long location samples are retained
		InactivityThreshold     time.Duration `yaml:"inactivity_threshold"`      // Silence before a tourist is flagged inactive
		InactivityHighThreshold time.Duration `yaml:"inactivity_high_threshold"` // Silence before the flag escalates to high
		SpeedWindowSamples      int           `yaml:"speed_window_samples"`      // Trailing samples feeding the speed estimate
		SpeedThresholdKmh       float64       `yaml:"speed_threshold_kmh"`       // Average speed that flags unusual movement
		AlertCooldown           time.Duration `yaml:"alert_cooldown"`            // Per-kind re-fire suppression; 0 disables
	} `yaml:"anomaly"`

	Services struct {
		Ingest struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the MQTT location consumer
			QOS     int  `yaml:"qos"`     // MQTT QoS level for location and alert messages
		} `yaml:"ingest"`

		Itinerary struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the MQTT itinerary consumer
			QOS     int  `yaml:"qos"`     // MQTT QoS level for itinerary messages
		} `yaml:"itinerary"`

		Sweep struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable the inactivity sweep
			Interval time.Duration `yaml:"interval"` // Interval between sweeps
			QOS      int           `yaml:"qos"`      // MQTT QoS level for sweep alerts
		} `yaml:"sweep"`

		Tracker struct {
			Enabled           bool          `yaml:"enabled"`         // Enable/disable self-tracking mode
			Interval          time.Duration `yaml:"interval"`        // Interval between position reads
			QOS               int           `yaml:"qos"`             // MQTT QoS level for position messages
			SensorBased       bool          `yaml:"sensor_based"`    // Use the GPS sensor instead of the geolocation API
			MapsAPIKey        string        `yaml:"maps_api_key"`    // Google Maps API key
			ModemIndex        int           `yaml:"modem_index"`     // mmcli modem index for cell tower scans
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`   // Baud rate for the GPS sensor
			GPSDevicePort     string        `yaml:"gps_device_port"` // Serial port where the GPS sensor is mounted
		} `yaml:"tracker"`

		Simulation struct {
			Enabled  bool                        `yaml:"enabled"`  // Enable/disable the demo feed
			Interval time.Duration               `yaml:"interval"` // Interval between simulated samples
			QOS      int                         `yaml:"qos"`      // MQTT QoS level for simulated alerts
			Tourists []services.SimulatedTourist `yaml:"tourists"` // Simulated tourists and their base coordinates
		} `yaml:"simulation"`

		API struct {
			Enabled bool   `yaml:"enabled"` // Enable/disable the HTTP query API
			Address string `yaml:"address"` // Listen address, e.g. ":8087"
		} `yaml:"api"`
	} `yaml:"services"`

	Logging struct {
		Level string `yaml:"level"` // zerolog level name; empty means info
	} `yaml:"logging"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// AnomalyConfig maps the file settings onto the detector configuration.
// Zero-valued fields fall back to the detector defaults.
func (c *Config) AnomalyConfig() anomaly.Config {
	return anomaly.Config{
		RetentionWindow:         c.Anomaly.RetentionWindow,
		InactivityThreshold:     c.Anomaly.InactivityThreshold,
		InactivityHighThreshold: c.Anomaly.InactivityHighThreshold,
		SpeedWindowSamples:      c.Anomaly.SpeedWindowSamples,
		SpeedThresholdKmh:       c.Anomaly.SpeedThresholdKmh,
		AlertCooldown:           c.Anomaly.AlertCooldown,
	}
}
