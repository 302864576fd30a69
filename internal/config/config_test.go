package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DRIVER", "")
	t.Setenv("AUCTION_MIN_BID_INCREMENT", "")
	t.Setenv("TX_RETRY_ATTEMPTS", "")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 3, cfg.TxRetryAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.TxRetryDelay)
	assert.True(t, cfg.MinBidIncrement.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, cfg.MinStartingPrice.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.DefaultStartingPrice.Equal(decimal.NewFromInt(1)))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("AUCTION_MIN_BID_INCREMENT", "0.10")
	t.Setenv("TX_RETRY_DELAY", "1s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.MinBidIncrement.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, time.Second, cfg.TxRetryDelay)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IDENTITY_SOURCE=identities.json\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("IDENTITY_SOURCE", "")
	os.Unsetenv("IDENTITY_SOURCE")

	cfg := Load()

	assert.Equal(t, "identities.json", cfg.IdentitySource)
}
