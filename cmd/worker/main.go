// Worker consumes proxy events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"org-credential-broker/internal/config"
	"org-credential-broker/internal/logger"
	"org-credential-broker/internal/telemetry/consumer"
	"org-credential-broker/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	lg := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.ServiceName+"-worker", nil)
	slog.SetDefault(lg)

	lokiClient, err := loki.NewClient(cfg.LokiURL, pushTimeout)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	reader := consumer.NewKafkaReader(consumer.Config{
		Brokers: brokers,
		Topic:   cfg.TelemetryKafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("worker: consuming",
		"topic", cfg.TelemetryKafkaTopic,
		"group", cfg.KafkaGroupID,
		"loki_url", cfg.LokiURL)

	if err := consumer.Run(ctx, reader, lokiClient.PushEventJSON, pushTimeout, lg); err != nil {
		lg.Error("worker: stopped with error", "error", err)
		os.Exit(1)
	}
	lg.Info("worker: stopped")
}
