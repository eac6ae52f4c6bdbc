package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/render"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/reimbursement.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Worker.OutboxMaxAttempts)
	assert.Equal(t, "en", cfg.Lang)

	settings := cfg.Settings()
	assert.Equal(t, "EUR", settings.BaseCurrency)
	assert.Equal(t, 0.2, settings.MealCuts.Breakfast)
	assert.Equal(t, 0.15, settings.DistanceRefunds[entity.DistanceRefundHalfCar])
	assert.Equal(t, "LU", settings.FallbackLumpSumCountry)
	assert.Equal(t, time.UTC, settings.Loc())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
calculation:
  base_currency: chf
  meal_cuts:
    breakfast: 0.1
    lunch: 0.45
    dinner: 0.45
  catering_factor:
    factor: 0.5
    exceptions: [fr]
  distance_refunds:
    car: 0.35
    halfCar: 0.1
  time_zone: Europe/Berlin
lang: de
labels:
  de:
    notify:
      stateChanged: "{name} ist jetzt {state}"
    state:
      approved: genehmigt
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	settings := cfg.Settings()
	assert.Equal(t, "CHF", settings.BaseCurrency)
	assert.Equal(t, 0.1, settings.MealCuts.Breakfast)
	assert.Equal(t, entity.Factor{Factor: 0.5, Exceptions: []string{"FR"}}, settings.CateringFactor)
	assert.Equal(t, 0.35, settings.DistanceRefunds[entity.DistanceRefundCar])
	assert.Equal(t, 0.1, settings.DistanceRefunds[entity.DistanceRefundHalfCar])
	assert.Equal(t, "Europe/Berlin", settings.Loc().String())

	tr := render.NewLabelTranslator(cfg.Labels, cfg.Lang)
	assert.Equal(t, "genehmigt", tr.Translate("state.approved", "de", nil))
	assert.Equal(t, "Paris ist jetzt genehmigt",
		tr.Translate("notify.stateChanged", "de", map[string]string{"name": "Paris", "state": "genehmigt"}))
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("REIMBURSE_SERVER_PORT", "9090")
	t.Setenv("LARK_APP_ID", "cli_123")
	t.Setenv("LARK_APP_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "cli_123", cfg.Lark.AppID)

	cc := cfg.ToContainerConfig()
	assert.True(t, cc.Lark.Enabled())
	assert.Equal(t, "secret", cc.Lark.AppSecret)
	assert.NoError(t, cc.Validate())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"meal cut", "calculation:\n  meal_cuts:\n    lunch: 1.5\n", "meal_cuts.lunch"},
		{"currency", "calculation:\n  base_currency: EURO\n", "base_currency"},
		{"factor", "calculation:\n  overnight_factor:\n    factor: -1\n", "overnight_factor"},
		{"distance", "calculation:\n  distance_refunds:\n    car: -0.3\n", "distance_refunds.car"},
		{"time zone", "calculation:\n  time_zone: Mars/Olympus\n", "time_zone"},
		{"label", "labels:\n  en:\n    state: [a, b]\n", "labels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_LarkSecretRequired(t *testing.T) {
	t.Setenv("LARK_APP_ID", "cli_123")
	t.Setenv("LARK_APP_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lark.app_secret")
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Storage.ReceiptTypes, cc.Storage.ReceiptTypes)
	assert.Equal(t, cfg.Worker.BatchConcurrency, cc.Worker.BatchConcurrency)
	assert.Equal(t, uint64(20), cc.Worker.OutboxJitterPercent)
	assert.Equal(t, int64(10<<20), cc.Server.MaxUploadBytes)
	assert.Equal(t, "EUR", cc.Settings.BaseCurrency)
}
