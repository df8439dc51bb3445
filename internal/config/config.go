package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"iot-posture-monitor/internal/domain/posture"
)

// DefaultFile is read when CONFIG_FILE is not set.
const DefaultFile = ".env"

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Report    ReportConfig
	MQTT      MQTTConfig
	Seed      SeedConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	Reload      bool
}

type DatabaseConfig struct {
	Driver     string
	Path       string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	MaxRetries int
}

type SecurityConfig struct {
	ReferenceFirmware string
	MinPasswordLength int
	StaleAfter        time.Duration
	AlertCounting     string
}

type ReportConfig struct {
	OutputPath string
}

type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	HeartbeatTopic string
	QoS            int
}

type SeedConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// Load reads the file named by CONFIG_FILE (".env" by default) and the
// environment. The viper instance is returned for WatchSecurity.
func Load() (*Config, *viper.Viper, error) {
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = DefaultFile
	}
	v, err := NewViper(file)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// NewViper builds a viper instance with defaults, the environment and, when it
// exists, the given config file. A missing file is not an error.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file == "" {
		return v, nil
	}

	v.SetConfigFile(file)
	if strings.HasPrefix(filepath.Base(file), ".env") {
		v.SetConfigType("env")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8050")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVER_RELOAD", false)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "iot_devices.db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_RETRIES", 3)

	v.SetDefault("SECURITY_REFERENCE_FIRMWARE", posture.DefaultReferenceFirmware)
	v.SetDefault("SECURITY_MIN_PASSWORD_LENGTH", posture.DefaultMinPasswordLength)
	v.SetDefault("SECURITY_STALE_AFTER", posture.DefaultStaleAfter)
	v.SetDefault("SECURITY_ALERT_COUNTING", string(posture.CountAdditive))

	v.SetDefault("REPORT_OUTPUT_PATH", "iot_report.xlsx")

	v.SetDefault("MQTT_CLIENT_ID", "iot-posture-monitor")
	v.SetDefault("MQTT_HEARTBEAT_TOPIC", "devices/+/heartbeat")
	v.SetDefault("MQTT_QOS", 1)

	v.SetDefault("SEED_ENABLED", false)

	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)

	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "X-Request-ID"})
	v.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	v.SetDefault("CORS_MAX_AGE", int((12 * time.Hour).Seconds()))
}

// FromViper maps the flat keys of v onto Config and validates the result.
func FromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("ENVIRONMENT"),
			Reload:      v.GetBool("SERVER_RELOAD"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Path:       v.GetString("DB_PATH"),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			DBName:     v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			MaxRetries: v.GetInt("DB_MAX_RETRIES"),
		},
		Security: securityFromViper(v),
		Report: ReportConfig{
			OutputPath: v.GetString("REPORT_OUTPUT_PATH"),
		},
		MQTT: MQTTConfig{
			Broker:         v.GetString("MQTT_BROKER"),
			ClientID:       v.GetString("MQTT_CLIENT_ID"),
			Username:       v.GetString("MQTT_USERNAME"),
			Password:       v.GetString("MQTT_PASSWORD"),
			HeartbeatTopic: v.GetString("MQTT_HEARTBEAT_TOPIC"),
			QoS:            v.GetInt("MQTT_QOS"),
		},
		Seed: SeedConfig{
			Enabled: v.GetBool("SEED_ENABLED"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   v.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   v.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   v.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func securityFromViper(v *viper.Viper) SecurityConfig {
	return SecurityConfig{
		ReferenceFirmware: v.GetString("SECURITY_REFERENCE_FIRMWARE"),
		MinPasswordLength: v.GetInt("SECURITY_MIN_PASSWORD_LENGTH"),
		StaleAfter:        v.GetDuration("SECURITY_STALE_AFTER"),
		AlertCounting:     v.GetString("SECURITY_ALERT_COUNTING"),
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Security.MinPasswordLength < 0 {
		return errors.New("SECURITY_MIN_PASSWORD_LENGTH must not be negative")
	}
	if _, err := posture.ParseAlertCounting(c.Security.AlertCounting); err != nil {
		return err
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Policy converts the security settings into the evaluation policy.
func (s SecurityConfig) Policy() posture.Policy {
	return posture.Policy{
		ReferenceFirmware: s.ReferenceFirmware,
		MinPasswordLength: s.MinPasswordLength,
	}
}

func (s SecurityConfig) AggregateOptions() posture.AggregateOptions {
	counting, _ := posture.ParseAlertCounting(s.AlertCounting)
	return posture.AggregateOptions{
		StaleAfter: s.StaleAfter,
		Counting:   counting,
	}
}

// WatchSecurity re-reads the security settings whenever the config file
// changes and hands the new values to apply. Other sections need a restart.
// A new minimum password length applies to devices created afterwards only.
func WatchSecurity(v *viper.Viper, apply func(SecurityConfig)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		sec := securityFromViper(v)
		if _, err := posture.ParseAlertCounting(sec.AlertCounting); err != nil || sec.MinPasswordLength < 0 {
			log.Printf("Warning: ignoring invalid security settings in %s", e.Name)
			return
		}
		apply(sec)
	})
	v.WatchConfig()
}
