package config

import (
	"github.com/garyjia/travel-reimbursement/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lark: container.LarkConfig{
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
			APITimeout:    c.Lark.APITimeout,
		},
		Rates: container.RatesConfig{
			BaseURL:  c.Rates.BaseURL,
			Timeout:  c.Rates.Timeout,
			RetryMax: c.Rates.RetryMax,
			Offline:  c.Rates.Offline,
		},
		Storage: container.StorageConfig{
			BaseDir:         c.Storage.BaseDir,
			MaxReceiptBytes: c.Storage.MaxReceiptBytes,
			ReceiptTypes:    c.Storage.ReceiptTypes,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
		Worker: container.WorkerConfig{
			BatchConcurrency:      c.Worker.BatchConcurrency,
			OutboxPollInterval:    c.Worker.OutboxPollInterval,
			OutboxBatchSize:       c.Worker.OutboxBatchSize,
			OutboxMaxAttempts:     c.Worker.OutboxMaxAttempts,
			OutboxBaseBackoff:     c.Worker.OutboxBaseBackoff,
			OutboxMaxBackoff:      c.Worker.OutboxMaxBackoff,
			OutboxDeliveryTimeout: c.Worker.OutboxDeliveryTimeout,
			OutboxJitterPercent:   c.Worker.OutboxJitterPercent,
		},
		Settings: c.Settings(),
		Labels:   c.Labels,
		Lang:     c.Lang,
	}
}
