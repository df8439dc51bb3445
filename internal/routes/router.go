package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-posture-monitor/internal/config"
	"iot-posture-monitor/internal/delivery/http/handler"
	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
	"iot-posture-monitor/internal/middleware"
	"iot-posture-monitor/internal/usecase/dashboard"
	"iot-posture-monitor/internal/usecase/device"
)

// HealthChecker reports whether the device store is reachable.
type HealthChecker interface {
	Health() error
}

// Dependencies are the components the HTTP layer serves.
type Dependencies struct {
	Store            HealthChecker
	DeviceRepo       domainDevice.Repository
	Policies         *posture.PolicyProvider
	DeviceService    *device.Service
	DashboardService *dashboard.Service
	RateLimiter      *middleware.RateLimiter
}

func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, request size limit, rate limit
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	if deps.RateLimiter != nil {
		router.Use(middleware.RateLimitMiddleware(deps.RateLimiter))
	}

	router.GET("/health", func(c *gin.Context) {
		if err := deps.Store.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Device store unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	deviceHandler := handler.NewDeviceHandler(deps.DeviceService)
	dashboardHandler := handler.NewDashboardHandler(deps.DashboardService, deps.DeviceRepo, deps.Policies)

	v1 := router.Group("/api/v1")
	{
		deviceHandler.RegisterRoutes(v1)
		dashboardHandler.RegisterRoutes(v1)
	}

	logger.Info("All routes initialized")
	return router
}
