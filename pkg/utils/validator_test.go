package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCurrencyCode(t *testing.T) {
	assert.NoError(t, ValidateCurrencyCode("EUR"))
	assert.Error(t, ValidateCurrencyCode("eur"))
	assert.Error(t, ValidateCurrencyCode("EURO"))
	assert.Error(t, ValidateCurrencyCode(""))
}

func TestValidateCountryCode(t *testing.T) {
	assert.NoError(t, ValidateCountryCode("DE"))
	assert.Error(t, ValidateCountryCode("DEU"))
}

func TestValidateAmountAndShare(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-0.01))
	assert.NoError(t, ValidateShare(0.5))
	assert.Error(t, ValidateShare(1.2))
	assert.Equal(t, "FR", NormalizeCode(" fr "))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: "stderr", Format: "console"})
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewLogger(LoggerConfig{Level: "bogus", Format: "json", OutputPath: t.TempDir() + "/logs/app.log"})
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}
