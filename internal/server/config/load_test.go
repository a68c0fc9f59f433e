package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("TEAMFLOW_CLEANUP_DAYS", "90")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 90, c.CleanupDays)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamflow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tax_rate": 15, "stats_cache_ttl": "1m", "time_zone": "UTC"}`), 0o600))
	t.Setenv("TEAMFLOW_TAX_RATE", "18")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 18.0, c.TaxRatePercent)
	assert.Equal(t, time.Minute, c.StatsCacheTTL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("TEAMFLOW_TAX_RATE", "140")
	_, err = Load("")
	assert.ErrorContains(t, err, "tax rate")
}
