package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/Aleph-Project/Aleph/internal/analytics"
	"github.com/Aleph-Project/Aleph/internal/config"
	"github.com/Aleph-Project/Aleph/internal/db"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if cfg.Port == "" {
		logrus.Fatal("PORT is required")
	}

	database, err := db.InitDB(cfg.DBUrl, cfg.MigrationsPath)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	reader := analytics.NewWarehouseReader(database)
	svc := analytics.NewService(reader)
	handler := analytics.NewHandler(svc)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	handler.RegisterRoutes(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		logrus.Warnf("error during shutdown: %v", err)
	}
	logrus.Info("server stopped")
}
