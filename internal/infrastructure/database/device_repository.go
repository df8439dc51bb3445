package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/infrastructure/database/models"
	appErrors "iot-posture-monitor/pkg/errors"
)

// DeviceRepository implements domainDevice.Repository on top of gorm.
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

var _ domainDevice.Repository = (*DeviceRepository)(nil)

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	now := time.Now()
	d.Status = domainDevice.DefaultStatus
	d.CreatedAt = now
	d.UpdatedAt = now

	dbModel := toDeviceModel(d)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return appErrors.Storage("create device", err)
	}

	d.ID = dbModel.ID
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID uint) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", deviceID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, appErrors.Storage("get device", err)
	}

	return toDeviceEntity(&dbModel), nil
}

// List returns every stored device ordered by id.
func (r *DeviceRepository) List(ctx context.Context) ([]*domainDevice.Device, error) {
	var dbModels []models.DeviceModel
	if err := r.db.DB.WithContext(ctx).Order("id ASC").Find(&dbModels).Error; err != nil {
		return nil, appErrors.Storage("list devices", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = toDeviceEntity(&dbModels[i])
	}
	return devices, nil
}

func (r *DeviceRepository) UpdateFirmware(ctx context.Context, deviceID uint, version string) error {
	return r.update(ctx, "update firmware", deviceID, map[string]interface{}{
		"firmware_version": version,
		"updated_at":       time.Now(),
	})
}

func (r *DeviceRepository) TouchLastSeen(ctx context.Context, deviceID uint, at time.Time) error {
	return r.update(ctx, "touch last seen", deviceID, map[string]interface{}{
		"last_seen_at": at,
		"updated_at":   time.Now(),
	})
}

func (r *DeviceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.DeviceModel{}).Count(&total).Error; err != nil {
		return 0, appErrors.Storage("count devices", err)
	}
	return total, nil
}

func (r *DeviceRepository) update(ctx context.Context, op string, deviceID uint, values map[string]interface{}) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(values)

	if result.Error != nil {
		return appErrors.Storage(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:              d.ID,
		Name:            d.Name,
		IP:              d.IP,
		FirmwareVersion: d.FirmwareVersion,
		Password:        d.PasswordHash,
		Status:          d.Status,
		StrongPassword:  d.StrongPassword,
		LastSeenAt:      d.LastSeenAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:              m.ID,
		Name:            m.Name,
		IP:              m.IP,
		FirmwareVersion: m.FirmwareVersion,
		PasswordHash:    m.Password,
		StrongPassword:  m.StrongPassword,
		Status:          m.Status,
		LastSeenAt:      m.LastSeenAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
