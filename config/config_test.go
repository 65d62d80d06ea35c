package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfig("config.yml")
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, time.Minute, cfg.Care.TickInterval)
	assert.Equal(t, 240.0, cfg.Billing.DailyRates["uci"])
	require.Len(t, cfg.Pharmacy.Catalog, 4)
	assert.Equal(t, "amox", cfg.Pharmacy.Catalog[0].ID)
	assert.Equal(t, 0.8, cfg.Pharmacy.Catalog[0].UnitCost)
	assert.Equal(t, 10, cfg.Outbox.ToWorkerConfig().MaxAttempts)
	assert.Equal(t, uint32(5), cfg.Redis.ToBrokerConfig().BreakerFailures)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: from-file
`)
	t.Setenv("CLINIC_JWT_SECRET", "from-env")
	t.Setenv("CLINIC_DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("CLINIC_CARE_TICK_INTERVAL", "30s")
	t.Setenv("CLINIC_RATE_LIMIT_BURST", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Care.TickInterval)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
