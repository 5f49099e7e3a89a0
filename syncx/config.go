// Package syncx implements Aura's peer-to-peer anti-entropy sync (spec
// §4.7): a commit-reveal vector-clock round, bounded delta exchange over
// the journal's flat grow-only fact CRDT, peer-selection scoring, and
// jittered exponential backoff retry. This package holds the pure/stateful
// engine pieces; protocols/journalsync drives them as a two-role
// choreography over choreo.Adapter.
//
// Grounded on
// original_source/crates/aura-sync/src/core/config.rs's SyncConfig (field
// names, defaults, and the from_env/for_testing/for_production split) and
// crates/aura-choreography/src/coordination/journal_sync_choreography.rs's
// VectorClockCommitment/Reveal commit-reveal envelope, adapted from
// Automerge's ChangeHash frontier to the journal's FactEntry hash set per
// spec §9's note that a grow-only delta CRDT may substitute Automerge as
// long as the commit-reveal envelope is preserved.
package syncx

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// NetworkConfig times sync rounds and cleanup sweeps.
type NetworkConfig struct {
	BaseSyncInterval time.Duration
	MinSyncInterval  time.Duration
	SyncTimeout      time.Duration
	CleanupInterval  time.Duration
}

// RetryConfig parameterises jittered exponential backoff (spec §4.7:
// "delay = base * 2^attempt * (1 + jitter * rand) clamped to max_delay").
type RetryConfig struct {
	MaxRetries   uint32
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// BatchConfig bounds how many fact entries move per delta message and
// per round.
type BatchConfig struct {
	DefaultBatchSize      int
	MaxOperationsPerRound int
	MinBatchSize          int
	BatchTimeout          time.Duration
}

// PeerManagementConfig drives PeerManager's scoring and concurrency caps
// (field names and defaults taken verbatim from
// aura-sync/src/core/config.rs's PeerManagementConfig).
type PeerManagementConfig struct {
	MaxConcurrentSyncs      int
	MinPriorityThreshold    int
	PendingOperationsBoost  int
	FailurePenalty          int
	FailureBackoffDuration  time.Duration
}

// SyncConfig is the master configuration for one authority's anti-entropy
// subsystem (spec §4.7: "Configurable via a single SyncConfig").
type SyncConfig struct {
	Network        NetworkConfig
	Retry          RetryConfig
	Batching       BatchConfig
	PeerManagement PeerManagementConfig
}

// DefaultSyncConfig mirrors aura-sync's Default impls.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Network: NetworkConfig{
			BaseSyncInterval: 30 * time.Second,
			MinSyncInterval:  10 * time.Second,
			SyncTimeout:      120 * time.Second,
			CleanupInterval:  5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			BaseDelay:    500 * time.Millisecond,
			MaxDelay:     30 * time.Second,
			JitterFactor: 0.1,
		},
		Batching: BatchConfig{
			DefaultBatchSize:      128,
			MaxOperationsPerRound: 1000,
			MinBatchSize:          10,
			BatchTimeout:          5 * time.Second,
		},
		PeerManagement: PeerManagementConfig{
			MaxConcurrentSyncs:     5,
			MinPriorityThreshold:  10,
			PendingOperationsBoost: 20,
			FailurePenalty:         15,
			FailureBackoffDuration: 5 * time.Minute,
		},
	}
}

// TestSyncConfig mirrors aura-sync's SyncConfig::for_testing: short
// intervals, no jitter, small batches, for deterministic test runs.
func TestSyncConfig() SyncConfig {
	cfg := DefaultSyncConfig()
	cfg.Network = NetworkConfig{
		BaseSyncInterval: 100 * time.Millisecond,
		MinSyncInterval:  50 * time.Millisecond,
		SyncTimeout:      5 * time.Second,
		CleanupInterval:  10 * time.Second,
	}
	cfg.Retry = RetryConfig{
		MaxRetries:   2,
		BaseDelay:    10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		JitterFactor: 0,
	}
	cfg.Batching.DefaultBatchSize = 10
	cfg.Batching.MaxOperationsPerRound = 50
	cfg.Batching.MinBatchSize = 1
	cfg.Batching.BatchTimeout = 100 * time.Millisecond
	return cfg
}

// Validate checks the invariants aura-sync's SyncConfig::validate enforces.
func (c SyncConfig) Validate() error {
	if c.Network.MinSyncInterval >= c.Network.BaseSyncInterval {
		return fmt.Errorf("syncx: min_sync_interval must be less than base_sync_interval")
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		return fmt.Errorf("syncx: jitter_factor must be between 0.0 and 1.0")
	}
	if c.Batching.MinBatchSize > c.Batching.DefaultBatchSize {
		return fmt.Errorf("syncx: min_batch_size must be <= default_batch_size")
	}
	return nil
}

// LoadSyncConfigFromEnv overlays AURA_SYNC_* environment variables onto
// DefaultSyncConfig (spec §6: "AURA_SYNC_* for every field of SyncConfig").
func LoadSyncConfigFromEnv() SyncConfig {
	cfg := DefaultSyncConfig()

	cfg.Network.BaseSyncInterval = envDurationSecs("AURA_SYNC_BASE_SYNC_INTERVAL_SECS", cfg.Network.BaseSyncInterval)
	cfg.Network.MinSyncInterval = envDurationSecs("AURA_SYNC_MIN_SYNC_INTERVAL_SECS", cfg.Network.MinSyncInterval)
	cfg.Network.SyncTimeout = envDurationSecs("AURA_SYNC_TIMEOUT_SECS", cfg.Network.SyncTimeout)
	cfg.Network.CleanupInterval = envDurationSecs("AURA_SYNC_CLEANUP_INTERVAL_SECS", cfg.Network.CleanupInterval)

	cfg.Retry.MaxRetries = uint32(envInt("AURA_SYNC_RETRY_MAX_RETRIES", int(cfg.Retry.MaxRetries)))
	cfg.Retry.BaseDelay = envDurationMillis("AURA_SYNC_RETRY_BASE_DELAY_MS", cfg.Retry.BaseDelay)
	cfg.Retry.MaxDelay = envDurationMillis("AURA_SYNC_RETRY_MAX_DELAY_MS", cfg.Retry.MaxDelay)
	cfg.Retry.JitterFactor = envFloat("AURA_SYNC_RETRY_JITTER", cfg.Retry.JitterFactor)

	cfg.Batching.DefaultBatchSize = envInt("AURA_SYNC_DEFAULT_BATCH_SIZE", cfg.Batching.DefaultBatchSize)
	cfg.Batching.MaxOperationsPerRound = envInt("AURA_SYNC_MAX_OPS_PER_ROUND", cfg.Batching.MaxOperationsPerRound)
	cfg.Batching.MinBatchSize = envInt("AURA_SYNC_MIN_BATCH_SIZE", cfg.Batching.MinBatchSize)
	cfg.Batching.BatchTimeout = envDurationMillis("AURA_SYNC_BATCH_TIMEOUT_MS", cfg.Batching.BatchTimeout)

	cfg.PeerManagement.MaxConcurrentSyncs = envInt("AURA_SYNC_MAX_CONCURRENT_SYNCS", cfg.PeerManagement.MaxConcurrentSyncs)
	cfg.PeerManagement.MinPriorityThreshold = envInt("AURA_SYNC_MIN_PRIORITY_THRESHOLD", cfg.PeerManagement.MinPriorityThreshold)
	cfg.PeerManagement.PendingOperationsBoost = envInt("AURA_SYNC_PENDING_OPS_BOOST", cfg.PeerManagement.PendingOperationsBoost)
	cfg.PeerManagement.FailurePenalty = envInt("AURA_SYNC_FAILURE_PENALTY", cfg.PeerManagement.FailurePenalty)
	cfg.PeerManagement.FailureBackoffDuration = envDurationSecs("AURA_SYNC_FAILURE_BACKOFF_SECS", cfg.PeerManagement.FailureBackoffDuration)

	return cfg
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDurationSecs(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

func envDurationMillis(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
