package syncx

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultSyncConfigValidates(t *testing.T) {
	require.NoError(t, DefaultSyncConfig().Validate())
	require.NoError(t, TestSyncConfig().Validate())
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	cfg := DefaultSyncConfig()
	cfg.Network.MinSyncInterval = cfg.Network.BaseSyncInterval
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeJitter(t *testing.T) {
	cfg := DefaultSyncConfig()
	cfg.Retry.JitterFactor = 1.5
	require.Error(t, cfg.Validate())
}

func TestLoadSyncConfigFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("AURA_SYNC_RETRY_MAX_RETRIES", "7")
	os.Setenv("AURA_SYNC_BASE_SYNC_INTERVAL_SECS", "60")
	defer os.Unsetenv("AURA_SYNC_RETRY_MAX_RETRIES")
	defer os.Unsetenv("AURA_SYNC_BASE_SYNC_INTERVAL_SECS")

	cfg := LoadSyncConfigFromEnv()
	require.Equal(t, uint32(7), cfg.Retry.MaxRetries)
	require.Equal(t, 60*time.Second, cfg.Network.BaseSyncInterval)
}
