package device

import (
	"time"

	domainDevice "iot-posture-monitor/internal/domain/device"
)

type CreateDeviceRequest struct {
	Name            string `json:"name" validate:"required,notblank,max=255"`
	IP              string `json:"ip" validate:"max=64"`
	FirmwareVersion string `json:"firmware_version" validate:"max=100"`
	Password        string `json:"password" validate:"max=128"`
}

// UpdateFirmwareRequest sets a device's firmware. A nil version means the
// current reference firmware.
type UpdateFirmwareRequest struct {
	FirmwareVersion *string `json:"firmware_version" validate:"omitempty,notblank,max=100"`
}

type HeartbeatRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

type DeviceResponse struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	IP              string     `json:"ip"`
	FirmwareVersion string     `json:"firmware_version"`
	StrongPassword  bool       `json:"strong_password"`
	Status          string     `json:"status"`
	LastSeenAt      *time.Time `json:"last_seen_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type DeviceListResponse struct {
	Devices []DeviceResponse `json:"devices"`
	Total   int              `json:"total"`
	Query   string           `json:"query,omitempty"`
}

type RemediationResponse struct {
	FirmwareVersion string `json:"firmware_version"`
	Updated         []uint `json:"updated"`
}

// ToDeviceResponse converts a stored device for output. The credential hash is never exposed.
func ToDeviceResponse(d *domainDevice.Device) *DeviceResponse {
	if d == nil {
		return nil
	}
	return &DeviceResponse{
		ID:              d.ID,
		Name:            d.Name,
		IP:              d.IP,
		FirmwareVersion: d.FirmwareVersion,
		StrongPassword:  d.StrongPassword,
		Status:          d.Status,
		LastSeenAt:      d.LastSeenAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
