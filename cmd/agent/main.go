package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/safetrail/sentinel-agent/internal/anomaly"
	"github.com/safetrail/sentinel-agent/internal/metrics"
	"github.com/safetrail/sentinel-agent/internal/service_registry"
	"github.com/safetrail/sentinel-agent/internal/utils"
	"github.com/safetrail/sentinel-agent/pkg/file"
	"github.com/safetrail/sentinel-agent/pkg/identity"
	"github.com/safetrail/sentinel-agent/pkg/mqtt"
)

func main() {
	// Set up structured logging with JSON output
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if config.Logging.Level != "" {
		level, err := zerolog.ParseLevel(config.Logging.Level)
		if err != nil {
			log.Fatal().Err(err).Str("level", config.Logging.Level).Msg("Invalid log level")
		}
		log = log.Level(level)
	}

	// Load the tourist identity; generate one when the file carries none so
	// a fresh device can start tracking immediately.
	touristInfo := identity.NewTouristInfo(config.Identity.TouristFile, fileClient)
	if err := touristInfo.LoadTouristInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load tourist identity")
	}
	if touristInfo.GetTouristID() == "" {
		generated := "tourist-" + uuid.New().String()
		if err := touristInfo.SaveTouristID(generated); err != nil {
			log.Fatal().Err(err).Msg("Failed to persist generated tourist id")
		}
		log.Info().Str("tourist_id", generated).Msg("Generated new tourist identity")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", clientID).Msg("Using MQTT client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, log)
	err = mqttClient.Initialize(mqtt.Options{
		Broker:        config.MQTT.Broker,
		ClientID:      clientID,
		Username:      config.MQTT.Username,
		Password:      config.MQTT.Password,
		CACertificate: config.MQTT.CACertificate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Construct the anomaly detection engine and its instrumentation
	detector := anomaly.NewDetector(config.AnomalyConfig(), log)
	promReg := prometheus.NewRegistry()
	agentMetrics := metrics.New(promReg)

	// Create a new service registry and register all enabled services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, detector, agentMetrics, promReg, log)
	if err := serviceRegistry.RegisterServices(config, touristInfo); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop cleanly")
	}
	mqttClient.Disconnect(250)
}
