package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iot-posture-monitor/internal/config"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/infrastructure/database"
	"iot-posture-monitor/internal/ingestion"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/middleware"
	"iot-posture-monitor/internal/routes"
	"iot-posture-monitor/internal/usecase/dashboard"
	"iot-posture-monitor/internal/usecase/device"
	pkgmqtt "iot-posture-monitor/pkg/mqtt"
)

func main() {
	cfg, v, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("db_driver", cfg.Database.Driver),
	)

	db, err := database.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.MigrateOptions{MinPasswordLength: cfg.Security.MinPasswordLength}); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	deviceRepo := database.NewRetryingRepository(
		database.NewDeviceRepository(db),
		database.RetryPolicy{MaxRetries: cfg.Database.MaxRetries},
	)
	policies := posture.NewPolicyProvider(cfg.Security.Policy())
	deviceService := device.NewService(deviceRepo, policies)
	dashboardService := dashboard.NewService(deviceRepo, policies, cfg.Security.AggregateOptions())

	if cfg.Seed.Enabled {
		created, err := deviceService.Seed(ctx)
		if err != nil {
			logger.Fatal("Failed to seed devices", zap.Error(err))
		}
		logger.Info("Device store seeded", zap.Int("created", created))
	}

	if cfg.Server.Reload {
		config.WatchSecurity(v, func(sec config.SecurityConfig) {
			policies.Swap(sec.Policy())
			dashboardService.SetAggregateOptions(sec.AggregateOptions())
			logger.Info("Security settings reloaded",
				zap.String("reference_firmware", sec.ReferenceFirmware),
				zap.Int("new_device_min_password_length", sec.MinPasswordLength),
				zap.Duration("stale_after", sec.StaleAfter),
				zap.String("alert_counting", sec.AlertCounting),
			)
		})
	}

	var (
		processor  *ingestion.Processor
		mqttClient *ingestion.MQTTIngestionClient
	)
	if cfg.MQTT.Broker != "" {
		processor = ingestion.NewProcessor(deviceService, ingestion.DefaultProcessorConfig())
		processor.Start()

		subscriber := pkgmqtt.NewClient(&pkgmqtt.Config{
			Broker:               cfg.MQTT.Broker,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			CleanSession:         true,
			KeepAlive:            60,
			ConnectTimeout:       10,
			AutoReconnect:        true,
			MaxReconnectInterval: time.Minute,
		}, logger.Named("mqtt"))

		mqttClient, err = ingestion.NewMQTTIngestionClient(&ingestion.MQTTIngestionConfig{
			HeartbeatTopic: cfg.MQTT.HeartbeatTopic,
			QoS:            byte(cfg.MQTT.QoS),
		}, subscriber, processor)
		if err != nil {
			logger.Fatal("Failed to configure MQTT ingestion", zap.Error(err))
		}
		if err := mqttClient.Start(); err != nil {
			// The HTTP API still serves without the broker.
			logger.Error("Failed to start MQTT ingestion", zap.Error(err))
			mqttClient = nil
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	defer limiter.Close()

	router := routes.SetupRoutes(cfg, routes.Dependencies{
		Store:            db,
		DeviceRepo:       deviceRepo,
		Policies:         policies,
		DeviceService:    deviceService,
		DashboardService: dashboardService,
		RateLimiter:      limiter,
	})

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	if mqttClient != nil {
		mqttClient.Stop()
	}
	if processor != nil {
		processor.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", zap.Error(err))
	}

	log.Println("Server exited properly")
}
