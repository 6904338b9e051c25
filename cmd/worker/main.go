package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Aleph-Project/Aleph/internal/config"
	"github.com/Aleph-Project/Aleph/internal/db"
	"github.com/Aleph-Project/Aleph/internal/deadletter"
	"github.com/Aleph-Project/Aleph/internal/dedupe"
	"github.com/Aleph-Project/Aleph/internal/dispatcher"
	"github.com/Aleph-Project/Aleph/internal/enrich"
	"github.com/Aleph-Project/Aleph/internal/kafka"
	"github.com/Aleph-Project/Aleph/internal/repo"
	"github.com/Aleph-Project/Aleph/internal/service"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("configuration loaded")

	DB, err := db.InitDB(cfg.DBUrl, cfg.MigrationsPath)
	if err != nil {
		logrus.Fatalf("failed to initialize DB: %v", err)
	}
	defer DB.Close()

	warehouseRepo := repo.NewWarehouseRepo(DB)

	var dd dedupe.Deduplicator
	if cfg.RedisAddr != "" {
		redisDedupe, err := dedupe.NewRedisDeduplicator(cfg.RedisAddr, time.Duration(cfg.DedupeWindowSec)*time.Second)
		if err != nil {
			logrus.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisDedupe.Close()
		dd = redisDedupe
		logrus.Info("redis dedupe enabled")
	}

	var dl deadletter.Sink
	if cfg.MinIOEndpoint != "" {
		sink, err := deadletter.NewMinIOSink(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket)
		if err != nil {
			logrus.Fatalf("failed to create dead-letter sink: %v", err)
		}
		dl = sink
		logrus.Info("dead-letter sink enabled")
	}

	enricher := enrich.NewClient(cfg.ProfileServiceURL, cfg.CatalogServiceURL)
	playService := service.NewPlayEventService(warehouseRepo, enricher, dd, dl, cfg.SongPlayedTopic)

	d := dispatcher.New()
	d.Register(cfg.SongPlayedTopic, playService.HandlePlayEvent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.GetKafkaBrokers(),
		GroupID:         cfg.KafkaGroupID,
		Topics:          []string{cfg.SongPlayedTopic},
		ConnectAttempts: cfg.KafkaConnectAttempts,
		ConnectDelay:    time.Duration(cfg.KafkaConnectDelaySec) * time.Second,
	}, d)
	if err != nil {
		logrus.Fatalf("failed to create kafka consumer: %v", err)
	}

	if err := consumer.Start(ctx); err != nil {
		logrus.Fatalf("failed to start kafka consumer: %v", err)
	}

	go metricsReporter(ctx, playService)

	logrus.WithField("topic", cfg.SongPlayedTopic).Info("play warehouse worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	logrus.Info("shutdown signal received, shutting down gracefully")
	cancel()

	if err := consumer.Close(); err != nil {
		logrus.Warnf("kafka consumer close error: %v", err)
	}

	metrics := playService.GetMetrics()
	logrus.WithFields(logrus.Fields{
		"processed":  metrics.TotalProcessed,
		"dropped":    metrics.TotalDropped,
		"duplicates": metrics.TotalDuplicates,
	}).Info("final metrics")

	logrus.Info("shutdown complete")
}

func metricsReporter(ctx context.Context, svc *service.PlayEventService) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics := svc.GetMetrics()
			fields := logrus.Fields{
				"processed":  metrics.TotalProcessed,
				"dropped":    metrics.TotalDropped,
				"duplicates": metrics.TotalDuplicates,
			}
			if !metrics.LastProcessedAt.IsZero() {
				fields["last_processed"] = metrics.LastProcessedAt.Format(time.RFC3339)
			}
			logrus.WithFields(fields).Info("service metrics")
		case <-ctx.Done():
			return
		}
	}
}
