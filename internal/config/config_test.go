package config

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "CORS_ORIGINS", "REDIS_ADDRESS", "ALERT_ESCALATE_AFTER", "DEPRECIATION_USEFUL_LIFE_MONTHS", "DEPRECIATION_RESIDUAL_RATE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Duration(0), cfg.AlertEscalateAfter)
	assert.Equal(t, 120, cfg.Depreciation.UsefulLifeMonths)
	assert.True(t, cfg.Depreciation.ResidualRate.IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("CORS_ORIGINS", "http://a.local, ,http://b.local")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("ALERT_ESCALATE_AFTER", "72h")
	t.Setenv("DEPRECIATION_USEFUL_LIFE_MONTHS", "60")
	t.Setenv("DEPRECIATION_RESIDUAL_RATE", "0.1")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSOrigins)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 72*time.Hour, cfg.AlertEscalateAfter)
	assert.Equal(t, 60, cfg.Depreciation.UsefulLifeMonths)
	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.Depreciation.ResidualRate))
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_DEC", "1,5")

	assert.Equal(t, 7, intFromEnv("X_INT", 7))
	assert.Equal(t, time.Minute, durationFromEnv("X_DUR", time.Minute))
	assert.True(t, decimal.NewFromInt(2).Equal(decimalFromEnv("X_DEC", decimal.NewFromInt(2))))
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "patrimonio-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_RejectsEndpointWithoutHost(t *testing.T) {
	_, err := InitTracing(context.Background(), "patrimonio-test", "http://")
	assert.Error(t, err)
}
