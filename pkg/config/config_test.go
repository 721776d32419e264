package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "COP", cfg.Cash.DefaultCurrency)
	assert.Equal(t, config.StoragePostgres, cfg.Cash.StorageDriver)
	assert.Equal(t, 3, cfg.Cash.TxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Cash.AuditInterval)
	assert.Equal(t, 500, cfg.Cash.AuditBatchSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("CASH_DEFAULT_CURRENCY", "usd")
	t.Setenv("CASH_STORAGE_DRIVER", "memory")
	t.Setenv("CASH_AUDIT_INTERVAL", "30s")
	t.Setenv("CASH_AUDIT_AUTO_REPAIR", "true")
	t.Setenv("CASH_AUDIT_BATCH_SIZE", "50")
	t.Setenv("CASH_TX_BACKOFF", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DB_PORT", "6543")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Cash.DefaultCurrency)
	assert.Equal(t, config.StorageMemory, cfg.Cash.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.Cash.AuditInterval)
	assert.True(t, cfg.Cash.AuditAutoRepair)
	assert.Equal(t, 50, cfg.Cash.AuditBatchSize)
	assert.Equal(t, 2*time.Second, cfg.Cash.TxBackoff)
	assert.True(t, cfg.Redis.Enabled())
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 0.0001)
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestLoad_Invalidos(t *testing.T) {
	t.Run("moneda", func(t *testing.T) {
		t.Setenv("CASH_DEFAULT_CURRENCY", "PESOS")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("driver", func(t *testing.T) {
		t.Setenv("CASH_STORAGE_DRIVER", "mongo")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("lote de auditoria", func(t *testing.T) {
		t.Setenv("CASH_AUDIT_BATCH_SIZE", "0")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("produccion sin secret", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "caja", Password: "p@ss:w/rd", DBName: "caja", SSLMode: "disable"}
	assert.Equal(t, "postgres://caja:p%40ss%3Aw%2Frd@db:5432/caja?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
