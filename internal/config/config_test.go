package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "licenses.db", cfg.SQLitePath)
	assert.Equal(t, "https://api-m.paypal.com", cfg.PayPalAPIBase)
	assert.Equal(t, 20000.0, cfg.PremiumPriceCOP)
	assert.Equal(t, "Smart Audio EQ Premium", cfg.PremiumTitle)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MP_ACCESS_TOKEN", "mp-token")
	t.Setenv("PAYPAL_CLIENT_ID", "pp-id")
	t.Setenv("PAYPAL_SECRET", "pp-secret")
	t.Setenv("FIREBASE_PROJECT_ID", "project-1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.HasMercadoPago())
	assert.True(t, cfg.HasPayPal())
	assert.True(t, cfg.HasFirebase())
}

func TestProviderHelpersUnconfigured(t *testing.T) {
	cfg := &Config{}

	assert.False(t, cfg.HasMercadoPago())
	assert.False(t, cfg.HasPayPal())
	assert.False(t, cfg.HasFirebase())

	cfg.PayPalClientID = "id-only"
	assert.False(t, cfg.HasPayPal(), "both client id and secret are required")
}
