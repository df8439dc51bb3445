package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/device/mocks"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/report"
	"iot-posture-monitor/internal/usecase/dashboard"
	"iot-posture-monitor/internal/usecase/device"
	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.HashCost = bcrypt.MinCost
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *utils.ErrorBody `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *mocks.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	policies := posture.NewPolicyProvider(posture.DefaultPolicy())

	r := gin.New()
	v1 := r.Group("/api/v1")
	NewDeviceHandler(device.NewService(repo, policies)).RegisterRoutes(v1)
	NewDashboardHandler(dashboard.NewService(repo, policies, posture.DefaultAggregateOptions()), repo, policies).RegisterRoutes(v1)
	return r, repo
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func sampleDevices() []*domainDevice.Device {
	return []*domainDevice.Device{
		{ID: 1, Name: "Sensor1", IP: "192.168.1.2", FirmwareVersion: "1.0.0", StrongPassword: true, Status: "unknown"},
		{ID: 2, Name: "Camera1", IP: "192.168.1.3", FirmwareVersion: "1.2.0", StrongPassword: true, Status: "unknown"},
	}
}

func TestCreateDevice(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *domainDevice.Device) error {
		d.ID = 1
		d.Status = domainDevice.DefaultStatus
		return nil
	})

	rec, env := do(t, r, http.MethodPost, "/api/v1/devices", `{"name":"Sensor1","ip":"192.168.1.2","firmware_version":"1.0.0","password":"12345678"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	var got device.DeviceResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, uint(1), got.ID)
	assert.True(t, got.StrongPassword)
	assert.NotContains(t, rec.Body.String(), "12345678")
}

func TestCreateDevice_Invalid(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := do(t, r, http.MethodPost, "/api/v1/devices", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/v1/devices", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDevices_Query(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(sampleDevices(), nil)

	rec, env := do(t, r, http.MethodGet, "/api/v1/devices?q=cam", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got device.DeviceListResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, 1, got.Total)
	assert.Equal(t, "Camera1", got.Devices[0].Name)
}

func TestGetDevice_Errors(t *testing.T) {
	r, repo := newTestRouter(t)

	rec, env := do(t, r, http.MethodGet, "/api/v1/devices/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	repo.EXPECT().GetByID(gomock.Any(), uint(9)).Return(nil, domainDevice.ErrDeviceNotFound)
	rec, env = do(t, r, http.MethodGet, "/api/v1/devices/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	repo.EXPECT().GetByID(gomock.Any(), uint(3)).Return(nil, appErrors.Storage("get device", assert.AnError))
	rec, env = do(t, r, http.MethodGet, "/api/v1/devices/3", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORAGE_ERROR", env.Error.Code)
	assert.NotContains(t, env.Error.Message, assert.AnError.Error())
}

func TestGetPosture(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().GetByID(gomock.Any(), uint(1)).Return(sampleDevices()[0], nil)

	rec, env := do(t, r, http.MethodGet, "/api/v1/devices/1/posture", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v posture.Verdict
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, posture.Verdict{DeviceID: 1, Name: "Sensor1", IP: "192.168.1.2", StrongPassword: true, UpToDate: false, Status: posture.StatusVulnerable}, v)
}

func TestUpdateFirmware_EmptyBodyUsesReference(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().UpdateFirmware(gomock.Any(), uint(1), "1.2.0").Return(nil)
	repo.EXPECT().GetByID(gomock.Any(), uint(1)).Return(&domainDevice.Device{ID: 1, FirmwareVersion: "1.2.0"}, nil)

	rec, _ := do(t, r, http.MethodPut, "/api/v1/devices/1/firmware", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateFirmware_UnknownDevice(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().UpdateFirmware(gomock.Any(), uint(7), "2.0.0").Return(domainDevice.ErrDeviceNotFound)

	rec, _ := do(t, r, http.MethodPut, "/api/v1/devices/7/firmware", `{"firmware_version":"2.0.0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordHeartbeat(t *testing.T) {
	r, repo := newTestRouter(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.EXPECT().TouchLastSeen(gomock.Any(), uint(2), at).Return(nil)

	rec, _ := do(t, r, http.MethodPost, "/api/v1/devices/2/heartbeat", `{"timestamp":"2024-05-01T12:00:00Z"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	repo.EXPECT().TouchLastSeen(gomock.Any(), uint(2), gomock.Any()).Return(nil)
	rec, _ = do(t, r, http.MethodPost, "/api/v1/devices/2/heartbeat", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRemediateOutdated(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(sampleDevices(), nil)
	repo.EXPECT().UpdateFirmware(gomock.Any(), uint(1), "1.2.0").Return(nil)

	rec, env := do(t, r, http.MethodPost, "/api/v1/devices/remediate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got device.RemediationResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, []uint{1}, got.Updated)
}

func TestGetDashboard(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(sampleDevices(), nil)

	rec, env := do(t, r, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap dashboard.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, posture.Summary{Total: 2, Vulnerable: 1, Outdated: 1, AlertsToday: 1}, snap.KPIs)
	assert.Len(t, snap.ScoreTimeline, 7)
	assert.Equal(t, 3, snap.PageSize)
}

func TestGetDashboard_EmptyState(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(sampleDevices(), nil)

	rec, env := do(t, r, http.MethodGet, "/api/v1/dashboard?q=nothing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.NoDataLabel, env.Message)

	var snap dashboard.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Empty)
}

func TestGetKPIs_StorageError(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(nil, appErrors.Storage("list devices", assert.AnError))

	rec, _ := do(t, r, http.MethodGet, "/api/v1/kpis", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDownloadReport(t *testing.T) {
	r, repo := newTestRouter(t)
	repo.EXPECT().List(gomock.Any()).Return(sampleDevices(), nil)

	rec, _ := do(t, r, http.MethodGet, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "iot_report.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	cells, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, []string{"Sensor1", "192.168.1.2", "Yes", "No", "Vulnerable"}, cells[1])
}
