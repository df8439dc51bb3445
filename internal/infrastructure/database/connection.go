package database

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"iot-posture-monitor/internal/config"
	"iot-posture-monitor/internal/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	sqliteBusyTimeoutMS = 5000
)

type DB struct {
	*gorm.DB
	Driver string
}

// NewDB opens the configured backend and checks it is reachable. The sqlite
// pool holds a single connection so every read and write goes through one
// writer.
func NewDB(cfg *config.Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.Database.Path))
	case DriverPostgres:
		dialector = postgres.Open(cfg.Database.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogLevel(cfg.Server.Environment)),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}

	maxOpen, maxIdle := 25, 5
	if cfg.Database.Driver == DriverSQLite {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("driver", cfg.Database.Driver),
		zap.String("location", location(cfg)),
		zap.Int("max_open_connections", maxOpen),
		zap.Int("max_idle_connections", maxIdle),
	)

	return &DB{DB: db, Driver: cfg.Database.Driver}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func gormLogLevel(env string) gormLogger.LogLevel {
	switch env {
	case "production":
		return gormLogger.Warn
	case "test":
		return gormLogger.Silent
	default:
		return gormLogger.Info
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", path, sqliteBusyTimeoutMS)
}

func location(cfg *config.Config) string {
	if cfg.Database.Driver == DriverSQLite {
		return cfg.Database.Path
	}
	return cfg.Database.Host + "/" + cfg.Database.DBName
}
