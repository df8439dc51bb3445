package device

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/repository_mock.go -package=mocks iot-posture-monitor/internal/domain/device Repository

// Repository defines the interface for device repository operations
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, deviceID uint) (*Device, error)
	List(ctx context.Context) ([]*Device, error)
	UpdateFirmware(ctx context.Context, deviceID uint, version string) error
	TouchLastSeen(ctx context.Context, deviceID uint, at time.Time) error
	Count(ctx context.Context) (int64, error)
}
