// Package container provides dependency injection and lifecycle management
// for the travel reimbursement service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark notification channel; disabled when AppID is empty
	Lark LarkConfig

	// Exchange rate source
	Rates RatesConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig

	// Settings are the calculation constants
	Settings entity.Settings

	// Labels is the translation table per language
	Labels map[string]map[string]string

	// Lang is the language of notifications and the label fallback
	Lang string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	AppID         string
	AppSecret     string
	ReceiveIDType string
	APITimeout    time.Duration
}

// Enabled reports whether notifications go to Lark
func (c LarkConfig) Enabled() bool {
	return c.AppID != ""
}

// RatesConfig holds the InforEuro client settings.
type RatesConfig struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int

	// Offline disables fetching; rates come from imports only
	Offline bool
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir holds receipts and archives
	BaseDir string

	// MaxReceiptBytes limits a single receipt
	MaxReceiptBytes int64

	// ReceiptTypes lists accepted receipt MIME types
	ReceiptTypes []string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// BatchConcurrency bounds parallel transitions of one batch call
	BatchConcurrency int

	// Side effect outbox settings
	OutboxPollInterval    time.Duration
	OutboxBatchSize       int
	OutboxMaxAttempts     int
	OutboxBaseBackoff     time.Duration
	OutboxMaxBackoff      time.Duration
	OutboxDeliveryTimeout time.Duration
	OutboxJitterPercent   uint64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/reimbursement.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Lark: LarkConfig{
			ReceiveIDType: "user_id",
			APITimeout:    30 * time.Second,
		},
		Rates: RatesConfig{
			BaseURL:  "https://ec.europa.eu/budg/inforeuro/api/public/monthly-rates",
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Storage: StorageConfig{
			BaseDir:         "data/files",
			MaxReceiptBytes: 10 << 20,
			ReceiptTypes:    []string{"application/pdf", "image/jpeg", "image/png"},
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Worker: WorkerConfig{
			BatchConcurrency:      4,
			OutboxPollInterval:    5 * time.Second,
			OutboxBatchSize:       20,
			OutboxMaxAttempts:     8,
			OutboxBaseBackoff:     10 * time.Second,
			OutboxMaxBackoff:      time.Hour,
			OutboxDeliveryTimeout: 30 * time.Second,
			OutboxJitterPercent:   20,
		},
		Settings: entity.DefaultSettings(),
		Lang:     "en",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Settings.BaseCurrency == "" {
		return fmt.Errorf("calculation.base_currency is required")
	}
	if c.Lark.Enabled() && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	if c.Worker.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("worker.outbox_max_attempts must be positive")
	}
	if c.Worker.OutboxJitterPercent > 100 {
		return fmt.Errorf("worker.outbox_jitter_percent must be at most 100")
	}
	return nil
}
