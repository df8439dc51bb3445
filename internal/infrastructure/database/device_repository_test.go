package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"iot-posture-monitor/internal/config"
	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/infrastructure/database/models"
	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

func init() {
	utils.HashCost = bcrypt.MinCost
}

func openTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Environment: "test"},
		Database: config.DatabaseConfig{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "devices.db")},
	}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRepository(t *testing.T) *DeviceRepository {
	t.Helper()

	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, MigrateOptions{}))
	return NewDeviceRepository(db)
}

func TestDeviceRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	sensor := &domainDevice.Device{Name: "Sensor1", IP: "192.168.1.2", FirmwareVersion: "1.0.0", PasswordHash: "h1", Status: "online"}
	camera := &domainDevice.Device{Name: "Camera1", IP: "192.168.1.3", FirmwareVersion: "1.2.0", PasswordHash: "h2", StrongPassword: true}
	require.NoError(t, repo.Create(ctx, sensor))
	require.NoError(t, repo.Create(ctx, camera))

	assert.NotZero(t, sensor.ID)
	assert.Greater(t, camera.ID, sensor.ID)
	assert.Equal(t, domainDevice.DefaultStatus, sensor.Status)

	devices, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Sensor1", devices[0].Name)
	assert.Equal(t, "192.168.1.2", devices[0].IP)
	assert.Equal(t, domainDevice.DefaultStatus, devices[0].Status)
	assert.False(t, devices[0].StrongPassword)
	assert.Nil(t, devices[0].LastSeenAt)
	assert.Equal(t, "Camera1", devices[1].Name)
	assert.True(t, devices[1].StrongPassword)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestDeviceRepository_ListEmpty(t *testing.T) {
	repo := newTestRepository(t)

	devices, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDeviceRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	d := &domainDevice.Device{Name: "Sensor1", IP: "10.0.0.1", FirmwareVersion: "1.0.0"}
	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sensor1", got.Name)

	_, err = repo.GetByID(ctx, d.ID+100)
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeviceRepository_UpdateFirmware(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	d := &domainDevice.Device{Name: "Sensor1", IP: "10.0.0.1", FirmwareVersion: "1.0.0", StrongPassword: true}
	require.NoError(t, repo.Create(ctx, d))

	require.NoError(t, repo.UpdateFirmware(ctx, d.ID, posture.DefaultReferenceFirmware))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.FirmwareVersion)

	v := posture.Analyze(got, posture.DefaultPolicy())
	assert.True(t, v.UpToDate)
	assert.Equal(t, posture.StatusSecure, v.Status)

	err = repo.UpdateFirmware(ctx, 999, "1.2.0")
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)
}

func TestDeviceRepository_TouchLastSeen(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	d := &domainDevice.Device{Name: "Camera1", IP: "10.0.0.2"}
	require.NoError(t, repo.Create(ctx, d))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastSeen(ctx, d.ID, at))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, at.Equal(*got.LastSeenAt))

	assert.ErrorIs(t, repo.TouchLastSeen(ctx, 42, at), domainDevice.ErrDeviceNotFound)
}

func TestDeviceRepository_ClosedDatabaseIsStorageError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, Migrate(ctx, db, MigrateOptions{}))
	repo := NewDeviceRepository(db)
	require.NoError(t, db.Close())

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, appErrors.ErrStorage)

	err = repo.Create(ctx, &domainDevice.Device{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrStorage)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, Migrate(ctx, db, MigrateOptions{}))
	require.NoError(t, Migrate(ctx, db, MigrateOptions{}))

	var versions []int
	require.NoError(t, db.DB.Model(&models.SchemaMigration{}).Order("version").Pluck("version", &versions).Error)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestMigrate_HashesLegacyPlaintext(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	// A database written by the first version: original layout, no version table.
	require.NoError(t, db.DB.Migrator().CreateTable(&models.LegacyDeviceModel{}))
	require.NoError(t, db.DB.Create(&models.LegacyDeviceModel{Name: "Sensor1", IP: "192.168.1.2", FirmwareVersion: "1.0.0", Password: "12345678", Status: "unknown"}).Error)
	require.NoError(t, db.DB.Create(&models.LegacyDeviceModel{Name: "Camera1", IP: "192.168.1.3", FirmwareVersion: "1.2.0", Password: "abc", Status: "unknown"}).Error)

	require.NoError(t, Migrate(ctx, db, MigrateOptions{MinPasswordLength: 8}))

	devices, err := NewDeviceRepository(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.True(t, devices[0].StrongPassword)
	assert.NotEqual(t, "12345678", devices[0].PasswordHash)
	assert.True(t, utils.CheckPassword(devices[0].PasswordHash, "12345678"))
	assert.False(t, devices[0].CreatedAt.IsZero())

	assert.False(t, devices[1].StrongPassword)
	assert.True(t, utils.CheckPassword(devices[1].PasswordHash, "abc"))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(&config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	assert.Error(t, err)
}
