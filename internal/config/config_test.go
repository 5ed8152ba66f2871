package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/server-warden/internal/host"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, "!", cfg.CommandPrefix)
	require.Equal(t, "datastore.json", cfg.StoragePath)
	require.True(t, cfg.CommandEnabled)
	require.True(t, cfg.AutoApplyOnLoad)
	require.Equal(t, host.TierMember, cfg.DefaultTier())
	require.Equal(t, 30*time.Second, cfg.ApplyInterval)
	require.Equal(t, 2*time.Second, cfg.CheckInterval)

	require.True(t, cfg.WebUI.Enabled)
	require.Equal(t, "PermissionManager", cfg.WebUI.SecretKey)
	require.Equal(t, "0.0.0.0", cfg.WebUI.Host)
	require.Equal(t, 8888, cfg.WebUI.Port)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("DEFAULT_PERMISSION", "admin")
	t.Setenv("WEBUI_PORT", "9000")
	t.Setenv("WEBUI_ENABLED", "false")
	t.Setenv("CHECK_INTERVAL", "500ms")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "?", cfg.CommandPrefix)
	require.Equal(t, host.TierAdmin, cfg.DefaultTier())
	require.Equal(t, 9000, cfg.WebUI.Port)
	require.False(t, cfg.WebUI.Enabled)
	require.Equal(t, 500*time.Millisecond, cfg.CheckInterval)
}

func TestNewValidation(t *testing.T) {
	t.Setenv("DEFAULT_PERMISSION", "owner")
	_, err := New()
	require.Error(t, err)
}

func TestNewRejectsBadPort(t *testing.T) {
	t.Setenv("WEBUI_PORT", "70000")
	_, err := New()
	require.Error(t, err)
}
