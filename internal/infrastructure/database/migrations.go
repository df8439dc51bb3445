package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/infrastructure/database/models"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/pkg/utils"
)

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB, opts MigrateOptions) error
}

type MigrateOptions struct {
	// MinPasswordLength classifies credentials found in plaintext by older versions.
	MinPasswordLength int
}

var migrations = []migration{
	{version: 1, name: "create devices", up: createDevices},
	{version: 2, name: "hash credentials and track activity", up: hashCredentials},
}

// Migrate applies every pending migration in order, each in its own
// transaction, and records it in schema_migrations.
func Migrate(ctx context.Context, db *DB, opts MigrateOptions) error {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = posture.DefaultMinPasswordLength
	}

	conn := db.DB.WithContext(ctx)
	if err := conn.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []int
	if err := conn.Model(&models.SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}

		err := conn.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx, opts); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{Version: m.version, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}

		logger.Info("Applied schema migration",
			zap.Int("version", m.version),
			zap.String("name", m.name),
		)
	}

	return nil
}

// createDevices creates the original table. Databases written before
// versioning existed already have it and are adopted as is.
func createDevices(tx *gorm.DB, _ MigrateOptions) error {
	if tx.Migrator().HasTable(&models.LegacyDeviceModel{}) {
		return nil
	}
	return tx.Migrator().CreateTable(&models.LegacyDeviceModel{})
}

func hashCredentials(tx *gorm.DB, opts MigrateOptions) error {
	m := tx.Migrator()
	for _, field := range []string{"StrongPassword", "LastSeenAt", "CreatedAt", "UpdatedAt"} {
		if m.HasColumn(&models.DeviceModel{}, field) {
			continue
		}
		if err := m.AddColumn(&models.DeviceModel{}, field); err != nil {
			return fmt.Errorf("add column %s: %w", field, err)
		}
	}

	var rows []struct {
		ID       uint
		Password string
	}
	if err := tx.Table("devices").Select("id", "password").Scan(&rows).Error; err != nil {
		return err
	}

	now := time.Now()
	for _, row := range rows {
		if utils.IsPasswordHash(row.Password) {
			continue
		}
		hash, err := utils.HashPassword(row.Password)
		if err != nil {
			return fmt.Errorf("hash credential of device %d: %w", row.ID, err)
		}
		err = tx.Table("devices").Where("id = ?", row.ID).Updates(map[string]interface{}{
			"password":        hash,
			"strong_password": posture.PasswordStrong(row.Password, opts.MinPasswordLength),
		}).Error
		if err != nil {
			return err
		}
	}

	return tx.Exec("UPDATE devices SET created_at = ?, updated_at = ? WHERE created_at IS NULL", now, now).Error
}
