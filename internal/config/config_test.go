package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/loanops/internal/config"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgresql://localhost/loans")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ClientTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "development", cfg.Env)
}

func Test_Load_RequiresDBSourceForPostgres(t *testing.T) {
	t.Setenv("DB_SOURCE", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func Test_Load_BoltBackendNeedsNoDBSource(t *testing.T) {
	t.Setenv("STORE_BACKEND", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/loans-test.db")
	t.Setenv("DB_SOURCE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.StoreBackend)
	assert.Equal(t, "/tmp/loans-test.db", cfg.BoltPath)
}

func Test_Load_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := config.Load()
	assert.Error(t, err)
}

func Test_Load_ParsesDurations(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgresql://localhost/loans")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "2s")
	t.Setenv("SWEEP_INTERVAL", "1m")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ClientTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)

	t.Setenv("SWEEP_INTERVAL", "often")
	_, err = config.Load()
	assert.Error(t, err)
}
