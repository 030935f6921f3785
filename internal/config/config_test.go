package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHGRID_TICKET_MASTER_KEY", testMasterKey)
	t.Setenv("AUTHGRID_ACCESS_SECRET", "access-secret")
	t.Setenv("AUTHGRID_REFRESH_SECRET", "refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "ops/keys", cfg.KeysDir)
	assert.Equal(t, time.Hour, cfg.TGTTTL)
	assert.Equal(t, 10*time.Minute, cfg.ServiceTicketTTL)
	assert.Equal(t, 20*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 336*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 720*time.Hour, cfg.APIKeyTTL)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.False(t, cfg.IsProduction())
	assert.Len(t, cfg.MasterKey(), 32)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHGRID_LISTEN_ADDR", ":9090")
	t.Setenv("AUTHGRID_TGT_TTL", "30m")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.TGTTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRequiresMasterKey(t *testing.T) {
	t.Setenv("AUTHGRID_TICKET_MASTER_KEY", "")
	t.Setenv("AUTHGRID_ACCESS_SECRET", "access-secret")
	t.Setenv("AUTHGRID_REFRESH_SECRET", "refresh-secret")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "AUTHGRID_TICKET_MASTER_KEY"))
}

func TestLoadRejectsShortMasterKey(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHGRID_TICKET_MASTER_KEY", "abcd1234")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsSharedSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHGRID_REFRESH_SECRET", "access-secret")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "must differ"))
}
