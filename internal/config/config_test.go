package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.DeliveryInterval)
	assert.Equal(t, 8*time.Second, cfg.TechnicianInterval)
	assert.Equal(t, 2*time.Second, cfg.ProcessingDelay)
	assert.Equal(t, "0.1", cfg.PromoRate.String())
	assert.False(t, cfg.DevTools)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"PLUG_DEV_TOOLS":         "true",
		"PLUG_DELIVERY_INTERVAL": "500ms",
		"PLUG_STORE":             "redis",
		"PLUG_PROMO_CODES":       "SAVE, PLUG10 ,",
		"PLUG_PROMO_RATE":        "0.25",
		"PLUG_LATENCY_FACTOR":    "0",
		"PLUG_WORKERS":           "8",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.DevTools)
	assert.Equal(t, 500*time.Millisecond, cfg.DeliveryInterval)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, []string{"SAVE", "PLUG10"}, cfg.PromoCodes)
	assert.Equal(t, "0.25", cfg.PromoRate.String())
	assert.Zero(t, cfg.LatencyFactor)
	assert.Equal(t, 8, cfg.Workers)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"PLUG_DEV_TOOLS":       "maybe",
		"PLUG_TICK_RESOLUTION": "soon",
		"PLUG_WORKERS":         "many",
		"PLUG_PROMO_RATE":      "ten",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(envFrom(map[string]string{key: value}))
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PLUG_HTTP_ADDR", ":9000")
	t.Setenv("PLUG_LOG_LEVEL", "debug")

	cfg, err := Load([]string{"--http-addr", ":9100", "--promo-codes", "A,B", "--promo-rate", "0.5", "--dev-tools"})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"A", "B"}, cfg.PromoCodes)
	assert.Equal(t, "0.5", cfg.PromoRate.String())
	assert.True(t, cfg.DevTools)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load([]string{"--orders-backend", "postgres"})
	assert.ErrorContains(t, err, "orders backend")

	_, err = Load([]string{"--delivery-interval", "100ms"})
	assert.ErrorContains(t, err, "tick resolution")

	_, err = Load([]string{"--promo-rate", "2"})
	assert.ErrorContains(t, err, "promo rate")

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}
