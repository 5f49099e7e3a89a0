package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultAgentConfigBuildsCleanly(t *testing.T) {
	cfg, err := NewBuilder().Build()
	require.NoError(t, err)
	require.Equal(t, DefaultAgentConfig(), cfg)
}

func TestBuilderOverridesListenAddrAndLogLevel(t *testing.T) {
	cfg, err := NewBuilder().WithListenAddr("127.0.0.1:4001").WithLogLevel("debug").Build()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4001", cfg.ListenAddr)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestBuilderRejectsEmptyListenAddr(t *testing.T) {
	_, err := NewBuilder().WithListenAddr("").Build()
	require.Error(t, err)
}

func TestBuilderRejectsUnknownLogLevel(t *testing.T) {
	_, err := NewBuilder().WithLogLevel("verbose").Build()
	require.Error(t, err)
}

func TestBuilderFirstErrorWinsAcrossChainedCalls(t *testing.T) {
	_, err := NewBuilder().WithLogLevel("nope").WithListenAddr("127.0.0.1:1").Build()
	require.ErrorContains(t, err, "log level")
}

func TestLoadAgentConfigFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("AURA_AGENT_LISTEN_ADDR", "10.0.0.1:5000")
	os.Setenv("AURA_AGENT_LOG_LEVEL", "warn")
	defer os.Unsetenv("AURA_AGENT_LISTEN_ADDR")
	defer os.Unsetenv("AURA_AGENT_LOG_LEVEL")

	cfg, err := LoadAgentConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:5000", cfg.ListenAddr)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadAgentConfigFromEnvFallsBackToDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("AURA_AGENT_LISTEN_ADDR")
	os.Unsetenv("AURA_AGENT_LOG_LEVEL")

	cfg, err := LoadAgentConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, DefaultAgentConfig().ListenAddr, cfg.ListenAddr)
	require.Equal(t, DefaultAgentConfig().LogLevel, cfg.LogLevel)
}
