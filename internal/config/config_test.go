package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wareq_test")
	t.Setenv("APP_ENV", "")
	t.Setenv("TX_MAX_RETRIES", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("SERVER_READ_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/wareq_test", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Database.TxMaxRetries)
	assert.Equal(t, 5, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/wareq")
	t.Setenv("APP_ENV", "production")
	t.Setenv("TX_MAX_RETRIES", "7")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Database.TxMaxRetries)
	assert.Equal(t, 12, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsNegativeValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/wareq")
	t.Setenv("TX_MAX_RETRIES", "-1")

	_, err := Load()
	assert.ErrorContains(t, err, "TX_MAX_RETRIES")

	t.Setenv("TX_MAX_RETRIES", "1")
	t.Setenv("LOW_STOCK_THRESHOLD", "-5")

	_, err = Load()
	assert.ErrorContains(t, err, "LOW_STOCK_THRESHOLD")
}
