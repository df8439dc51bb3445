package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"iot-posture-monitor/internal/config"
	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/device/mocks"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/middleware"
	"iot-posture-monitor/internal/usecase/dashboard"
	"iot-posture-monitor/internal/usecase/device"
)

type stubStore struct{ err error }

func (s stubStore) Health() error { return s.err }

func newRouter(t *testing.T, store HealthChecker) (*gin.Engine, *mocks.MockRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := mocks.NewMockRepository(gomock.NewController(t))
	policies := posture.NewPolicyProvider(posture.DefaultPolicy())
	limiter := middleware.NewRateLimiter(100, 100)
	t.Cleanup(limiter.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}},
	}
	r := SetupRoutes(cfg, Dependencies{
		Store:            store,
		DeviceRepo:       repo,
		Policies:         policies,
		DeviceService:    device.NewService(repo, policies),
		DashboardService: dashboard.NewService(repo, policies, posture.DefaultAggregateOptions()),
		RateLimiter:      limiter,
	})
	return r, repo
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t, stubStore{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	r, _ = newRouter(t, stubStore{err: errors.New("database is locked")})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newRouter(t, stubStore{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "iot_devices_total")
}

func TestAPIRoutesMounted(t *testing.T) {
	r, repo := newRouter(t, stubStore{})
	repo.EXPECT().List(gomock.Any()).Return([]*domainDevice.Device{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
