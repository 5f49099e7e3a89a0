// Package config assembles one authority's full runtime configuration —
// its sync engine tuning, listen address, and logging level — behind the
// same fluent Builder idiom the teacher's config.Builder uses, plus an
// env-overlay loader in the style of syncx.LoadSyncConfigFromEnv.
package config

import (
	"fmt"
	"os"

	"github.com/aura-network/aura/syncx"
)

// AgentConfig is everything cmd/aura-agentd needs to bring one authority
// online: where to listen, how verbosely to log, and how its
// anti-entropy sync engine is tuned.
type AgentConfig struct {
	ListenAddr string
	LogLevel   string
	Sync       syncx.SyncConfig
}

// DefaultAgentConfig mirrors the teacher's NewBuilder defaults: sensible
// out-of-the-box values, not a production-hardened preset.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ListenAddr: "0.0.0.0:9651",
		LogLevel:   "info",
		Sync:       syncx.DefaultSyncConfig(),
	}
}

// Builder provides a fluent interface for constructing an AgentConfig,
// grounded on the teacher's config.Builder (NewBuilder/With*/Build,
// first-error-wins across chained calls).
type Builder struct {
	cfg AgentConfig
	err error
}

// NewBuilder starts from DefaultAgentConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultAgentConfig()}
}

// WithListenAddr overrides the listen address.
func (b *Builder) WithListenAddr(addr string) *Builder {
	if b.err != nil {
		return b
	}
	if addr == "" {
		b.err = fmt.Errorf("config: listen address must not be empty")
		return b
	}
	b.cfg.ListenAddr = addr
	return b
}

// WithLogLevel overrides the log level.
func (b *Builder) WithLogLevel(level string) *Builder {
	if b.err != nil {
		return b
	}
	switch level {
	case "debug", "info", "warn", "error":
		b.cfg.LogLevel = level
	default:
		b.err = fmt.Errorf("config: unrecognised log level %q", level)
	}
	return b
}

// WithSyncConfig overrides the embedded SyncConfig wholesale.
func (b *Builder) WithSyncConfig(sync syncx.SyncConfig) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.Sync = sync
	return b
}

// Build validates and returns the assembled AgentConfig, or the first
// error recorded by any With* call.
func (b *Builder) Build() (AgentConfig, error) {
	if b.err != nil {
		return AgentConfig{}, b.err
	}
	if err := b.cfg.Sync.Validate(); err != nil {
		return AgentConfig{}, fmt.Errorf("config: %w", err)
	}
	return b.cfg, nil
}

// LoadAgentConfigFromEnv overlays AURA_AGENT_LISTEN_ADDR and
// AURA_AGENT_LOG_LEVEL onto DefaultAgentConfig, and defers the rest of
// the sync engine's tuning to syncx.LoadSyncConfigFromEnv's own
// AURA_SYNC_* variables.
func LoadAgentConfigFromEnv() (AgentConfig, error) {
	b := NewBuilder().WithSyncConfig(syncx.LoadSyncConfigFromEnv())

	if addr, ok := os.LookupEnv("AURA_AGENT_LISTEN_ADDR"); ok {
		b = b.WithListenAddr(addr)
	}
	if level, ok := os.LookupEnv("AURA_AGENT_LOG_LEVEL"); ok {
		b = b.WithLogLevel(level)
	}

	return b.Build()
}
