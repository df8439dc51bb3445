package models

import (
	"time"
)

// DeviceModel represents the database model for Devices.
// Password holds the bcrypt hash of the device credential.
type DeviceModel struct {
	ID              uint       `gorm:"primaryKey;autoIncrement"`
	Name            string     `gorm:"type:varchar(255);not null"`
	IP              string     `gorm:"column:ip;type:varchar(64)"`
	FirmwareVersion string     `gorm:"type:varchar(100)"`
	Password        string     `gorm:"type:varchar(255)"`
	Status          string     `gorm:"type:varchar(50);default:'unknown'"`
	StrongPassword  bool       `gorm:"default:false"`
	LastSeenAt      *time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (DeviceModel) TableName() string {
	return "devices"
}

// LegacyDeviceModel is the layout created by the first schema version.
type LegacyDeviceModel struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Name            string `gorm:"type:varchar(255);not null"`
	IP              string `gorm:"column:ip;type:varchar(64)"`
	FirmwareVersion string `gorm:"type:varchar(100)"`
	Password        string `gorm:"type:varchar(255)"`
	Status          string `gorm:"type:varchar(50);default:'unknown'"`
}

func (LegacyDeviceModel) TableName() string {
	return "devices"
}

type SchemaMigration struct {
	Version   int `gorm:"primaryKey;autoIncrement:false"`
	AppliedAt time.Time
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
