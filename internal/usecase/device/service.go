package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
	"iot-posture-monitor/internal/usecase/dashboard"
	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

// Service implements device use cases
type Service struct {
	deviceRepo domainDevice.Repository
	policies   *posture.PolicyProvider
	now        func() time.Time
}

// NewService creates a new device service
func NewService(deviceRepo domainDevice.Repository, policies *posture.PolicyProvider) *Service {
	return &Service{
		deviceRepo: deviceRepo,
		policies:   policies,
		now:        time.Now,
	}
}

// CreateDevice stores a new device. The supplied password is classified
// against the current policy and hashed; the raw value is dropped.
func (s *Service) CreateDevice(ctx context.Context, req *CreateDeviceRequest) (*DeviceResponse, error) {
	if req != nil {
		sanitizeCreate(req)
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.NewAppError("INTERNAL_ERROR", "Failed to secure device credential", err)
	}

	device := &domainDevice.Device{
		Name:            req.Name,
		IP:              req.IP,
		FirmwareVersion: req.FirmwareVersion,
		PasswordHash:    hash,
		StrongPassword:  posture.PasswordStrong(req.Password, s.policies.Current().MinPasswordLength),
	}

	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, err
	}

	logger.Info("Device created",
		zap.Uint("device_id", device.ID),
		zap.String("name", device.Name),
		zap.Bool("strong_password", device.StrongPassword),
		zap.String("event", "device_created"),
	)

	return ToDeviceResponse(device), nil
}

func (s *Service) GetDevice(ctx context.Context, deviceID uint) (*DeviceResponse, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return ToDeviceResponse(device), nil
}

// ListDevices returns every device whose name or IP matches query.
func (s *Service) ListDevices(ctx context.Context, query string) (*DeviceListResponse, error) {
	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	devices = dashboard.Filter(devices, query)
	responses := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = *ToDeviceResponse(d)
	}

	return &DeviceListResponse{
		Devices: responses,
		Total:   len(responses),
		Query:   query,
	}, nil
}

// GetPosture evaluates one device against the current policy.
func (s *Service) GetPosture(ctx context.Context, deviceID uint) (*posture.Verdict, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	verdict := posture.Analyze(device, s.policies.Current())
	return &verdict, nil
}

func (s *Service) UpdateFirmware(ctx context.Context, deviceID uint, req *UpdateFirmwareRequest) (*DeviceResponse, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if req == nil {
		req = &UpdateFirmwareRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	version := s.policies.Current().ReferenceFirmware
	if req.FirmwareVersion != nil {
		version = *req.FirmwareVersion
		if err := validateFirmwareVersion(version); err != nil {
			return nil, err
		}
	}

	if err := s.deviceRepo.UpdateFirmware(ctx, deviceID, version); err != nil {
		return nil, err
	}
	metrics.FirmwareUpdatesTotal.Inc()

	updatedDevice, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	logger.Info("Device firmware updated",
		zap.Uint("device_id", deviceID),
		zap.String("firmware_version", version),
		zap.String("event", "firmware_updated"),
	)

	return ToDeviceResponse(updatedDevice), nil
}

// RecordHeartbeat marks the device as seen at the given time, or now when at is zero.
func (s *Service) RecordHeartbeat(ctx context.Context, deviceID uint, at time.Time) error {
	if err := validateDeviceID(deviceID); err != nil {
		return err
	}

	now := s.now()
	if at.IsZero() {
		at = now
	}
	if err := validateHeartbeatTime(at, now); err != nil {
		return err
	}

	if err := s.deviceRepo.TouchLastSeen(ctx, deviceID, at.UTC()); err != nil {
		return err
	}

	logger.Debug("Device heartbeat recorded",
		zap.Uint("device_id", deviceID),
		zap.Time("at", at),
	)
	return nil
}

// RemediateOutdated moves every device that is not on the reference
// firmware to it and returns the ids it changed.
func (s *Service) RemediateOutdated(ctx context.Context) (*RemediationResponse, error) {
	policy := s.policies.Current()

	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	updated := make([]uint, 0)
	for _, verdict := range posture.AnalyzeAll(devices, policy) {
		if verdict.UpToDate {
			continue
		}
		if err := s.deviceRepo.UpdateFirmware(ctx, verdict.DeviceID, policy.ReferenceFirmware); err != nil {
			return nil, err
		}
		metrics.FirmwareUpdatesTotal.Inc()
		updated = append(updated, verdict.DeviceID)
	}

	logger.Info("Outdated firmware remediated",
		zap.Int("updated", len(updated)),
		zap.String("firmware_version", policy.ReferenceFirmware),
		zap.String("event", "firmware_remediated"),
	)

	return &RemediationResponse{
		FirmwareVersion: policy.ReferenceFirmware,
		Updated:         updated,
	}, nil
}

// SeedDevices are inserted into an empty store by Seed.
var SeedDevices = []CreateDeviceRequest{
	{Name: "Sensor1", IP: "192.168.1.2", FirmwareVersion: "1.0.0", Password: "12345678"},
	{Name: "Camera1", IP: "192.168.1.3", FirmwareVersion: "1.2.0", Password: "password123"},
}

// Seed inserts SeedDevices when the store holds no devices and reports how
// many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	total, err := s.deviceRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	for i := range SeedDevices {
		req := SeedDevices[i]
		if _, err := s.CreateDevice(ctx, &req); err != nil {
			return i, err
		}
	}
	return len(SeedDevices), nil
}
