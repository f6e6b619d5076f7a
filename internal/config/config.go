// Package config loads service configuration from an optional YAML file,
// a .env file and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted by the store key.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Store      string           `yaml:"store" validate:"oneof=postgres memory"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Log        LogConfig        `yaml:"log"`
	Events     []EventFixture   `yaml:"events,omitempty" validate:"dive"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" validate:"required"`
	SSLMode  string `yaml:"sslMode" validate:"oneof=disable require verify-ca verify-full"`
	MaxConns int32  `yaml:"maxConns" validate:"min=1"`
	MinConns int32  `yaml:"minConns" validate:"min=0,ltefield=MaxConns"`
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// EnrollmentConfig tunes enrollment admission.
type EnrollmentConfig struct {
	// LockTimeout bounds the wait for an event's write point before a
	// create fails with Busy.
	LockTimeout time.Duration `yaml:"lockTimeout" validate:"gte=1ms"`
}

// LogConfig selects the zap logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// EventFixture seeds an event into a local store.
type EventFixture struct {
	ID               string     `yaml:"id" validate:"required"`
	Title            string     `yaml:"title"`
	StartAt          time.Time  `yaml:"startAt" validate:"required"`
	EndAt            *time.Time `yaml:"endAt,omitempty"`
	Capacity         int        `yaml:"capacity" validate:"min=0"`
	RegistrationOpen *bool      `yaml:"registrationOpen,omitempty"`
}

// Event converts the fixture to a model.Event. Registration is open unless
// the fixture says otherwise.
func (f EventFixture) Event() model.Event {
	open := true
	if f.RegistrationOpen != nil {
		open = *f.RegistrationOpen
	}
	return model.Event{
		ID:               f.ID,
		Title:            f.Title,
		StartAt:          f.StartAt,
		EndAt:            f.EndAt,
		Capacity:         f.Capacity,
		RegistrationOpen: open,
	}
}

var validate = validator.New()

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "volunteering",
			SSLMode:  "disable",
			MaxConns: 20,
			MinConns: 2,
		},
		Store:      StorePostgres,
		Enrollment: EnrollmentConfig{LockTimeout: 2 * time.Second},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (if non-empty), applies .env and environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration struct.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Store, "ENROLLMENT_STORE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("ENROLLMENT_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ENROLLMENT_LOCK_TIMEOUT %q: %w", v, err)
		}
		cfg.Enrollment.LockTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
