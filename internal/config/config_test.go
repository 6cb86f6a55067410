package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "TARIFFCOMPARE_DB_DRIVER", "TARIFFCOMPARE_DB_DSN", "TARIFFCOMPARE_AUTO_MIGRATE",
		"TARIFFCOMPARE_DATA_DIR", "TARIFFCOMPARE_RETAILERS_FILE", "TARIFFCOMPARE_REFRESH_SCHEDULE", "TARIFFCOMPARE_RATES_CACHE_TTL",
		"EMAIL_PROVIDER", "EMAIL_TO", "SMTP_PORT", "ALERT_MIN_FAILURES", "ALERT_WEBHOOK_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "0 */6 * * *", cfg.RefreshSchedule)
	assert.Zero(t, cfg.RatesCacheTTL)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Empty(t, cfg.Email.To)
	assert.Equal(t, 1, cfg.Alert.MinFailures)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("TARIFFCOMPARE_DB_DRIVER", "SQLite")
	t.Setenv("TARIFFCOMPARE_DATA_DIR", "/srv/rates")
	t.Setenv("TARIFFCOMPARE_AUTO_MIGRATE", "false")
	t.Setenv("TARIFFCOMPARE_RATES_CACHE_TTL", "15m")
	t.Setenv("TARIFFCOMPARE_RETAILERS_FILE", "/etc/tariffcompare/retailers.yaml")
	t.Setenv("EMAIL_TO", "ops@example.com, sales@example.com ,")
	t.Setenv("ALERT_MIN_FAILURES", "0")

	cfg := FromEnv()
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, filepath.Join("/srv/rates", "tariffcompare.db"), cfg.DBDSN)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 15*time.Minute, cfg.RatesCacheTTL)
	assert.Equal(t, "/etc/tariffcompare/retailers.yaml", cfg.RetailersFile)
	assert.Equal(t, []string{"ops@example.com", "sales@example.com"}, cfg.Email.To)
	assert.Equal(t, 1, cfg.Alert.MinFailures)
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nTARIFFCOMPARE_DATA_DIR=/from/file\n"), 0o644))
	t.Setenv("PORT", "7100")
	// godotenv only fills variables that are not present at all.
	require.NoError(t, os.Unsetenv("TARIFFCOMPARE_DATA_DIR"))

	cfg := Load(path)
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "/from/file", cfg.DataDir)
}
