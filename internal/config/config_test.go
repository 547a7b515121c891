package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	assert.Equal(t, "DZD", cfg.Feed.BaseCurrency)
	assert.Equal(t, 30*time.Second, cfg.Feed.RateInterval)
	assert.Equal(t, 10*time.Second, cfg.Feed.MetricsInterval)
	assert.Equal(t, 0.01, cfg.Feed.RateChangeThreshold)
	assert.Equal(t, 0.1, cfg.Feed.PolicyRateThreshold)

	assert.Equal(t, 500.0, cfg.Risk.GeoDistanceKm)
	assert.EqualValues(t, 5, cfg.Risk.AmountMultiple)
	assert.Equal(t, 6, cfg.Risk.ActiveHourStart)
	assert.Equal(t, 22, cfg.Risk.ActiveHourEnd)

	assert.Equal(t, 50.0, cfg.Fees.BaseFee)
	assert.Equal(t, 100.0, cfg.Fees.CrossBankSurcharge)
	assert.Equal(t, 0.001, cfg.Fees.BasisPointRate)
	assert.Equal(t, 100000.0, cfg.Fees.BasisPointFloor)
	assert.Equal(t, 5000000.0, cfg.Fees.HardCeiling)

	assert.Equal(t, 100, cfg.Alerts.BufferCapacity)
	assert.Equal(t, 25.0, cfg.Alerts.FraudRateAlarm)
	assert.Equal(t, 99.0, cfg.Alerts.UptimeAlarm)

	assert.Equal(t, 3, cfg.Connector.RetryAttempts)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BANKCORE_SERVER_PORT", "9090")
	t.Setenv("BANKCORE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Feed.RateInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadCeiling(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Fees.HardCeiling = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedActiveHours(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Risk.ActiveHourStart = 23
	cfg.Risk.ActiveHourEnd = 6
	assert.Error(t, cfg.Validate())
}
