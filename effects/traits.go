// Package effects exposes Aura's capability-style effect traits: narrow
// interfaces over randomness, time, cryptography, storage, network,
// journal access, flow budgets, secure storage, and rendezvous channels.
// Every subsystem holds a reference to the traits it needs and never
// mutates the handler itself (spec §4.3: "no global mutable state; every
// handler is passed by reference").
//
// Grounded on the teacher's factories.ConfidenceFactory /
// factories.FlatFactory pattern (a small struct holding configuration and
// collaborators, constructed once and handed out by reference) and on
// original_source/crates/aura-runtime/src/effects traits, which define
// this same nine-trait split.
package effects

import (
	"context"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/securestore"
	"github.com/aura-network/aura/transport"
)

// Random produces randomness. Production draws from crypto/rand;
// testing/simulation variants use a seeded deterministic generator so
// byzantine-fault and message-loss decisions replay identically.
type Random interface {
	// Uint64 returns the next pseudo-random value.
	Uint64() uint64
	// Bytes fills buf with random bytes.
	Bytes(buf []byte)
	// Float64 returns a value in [0, 1), used for fault-injection sampling.
	Float64() float64
}

// Time supplies wall-clock readings. Testing/simulation variants are
// frozen or manually advanced rather than tied to the OS clock, so
// time-bound tokens and flow-budget epochs are deterministic in tests.
type Time interface {
	Now() time.Time
}

// Crypto exposes the FROST-Ed25519 operations a session needs without
// binding callers to the concrete frost package types directly, so a
// simulation variant can intercept and fault-inject signing operations.
type Crypto interface {
	Round1Commit() (frost.Nonces, frost.NonceCommitment, error)
	SignShare(share frost.KeyShare, nonces frost.Nonces, commitments map[frost.Identifier]frost.NonceCommitment, pkg frost.PublicKeyPackage, message []byte) (frost.SignatureShare, error)
	Aggregate(commitments map[frost.Identifier]frost.NonceCommitment, shares []frost.SignatureShare, pkg frost.PublicKeyPackage, message []byte) (frost.Signature, error)
	Verify(group frost.GroupPublicKey, message []byte, sig frost.Signature) bool
}

// Storage is a generic namespaced byte key-value store, the same shape
// journal.KVStore requires for Persist/Load, exposed as an effect so
// protocols can be handed a Storage without importing journal directly.
type Storage interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
}

// Network is the effect-system view of the byte transport boundary.
type Network interface {
	Open(channel aid.ChannelId, peer aid.DeviceId) error
	Send(channel aid.ChannelId, peer aid.DeviceId, payload []byte) error
	Recv(channel aid.ChannelId, handler transport.Handler)
	Broadcast(channel aid.ChannelId, payload []byte) error
	IsConnected(channel aid.ChannelId, peer aid.DeviceId) bool
	Close(channel aid.ChannelId) error
}

// Journal is the effect-system view of the semilattice journal operations
// the guard chain and choreographies drive.
type Journal interface {
	MergeFacts(delta journal.Facts)
	AppendCommitFact(cf journal.CommitFact) error
	RefineCaps(delta journal.Caps)
	Caps() journal.Caps
	MergeTreeCommitment(epoch uint64, root aid.Hash32)
}

// FlowBudget is the effect-system view of journal's flow-charging
// operation, isolated into its own trait per spec §4.3's naming.
type FlowBudget interface {
	ChargeFlow(ctx aid.ContextId, src, dst aid.AuthorityId, cost uint64) (journal.Receipt, error)
	GetFlowBudget(ctx aid.ContextId, subject aid.AuthorityId) journal.Budget
}

// SecureStorage is the effect-system view of securestore.Store.
type SecureStorage interface {
	Put(loc securestore.Location, caps []securestore.Capability, plaintext []byte) error
	Get(loc securestore.Location, caps []securestore.Capability) ([]byte, error)
	IssueTimeBoundToken(loc securestore.Location, caps []securestore.Capability, validFor time.Duration) (securestore.Token, error)
	Redeem(token securestore.Token, caps []securestore.Capability) ([]byte, error)
}

// AmpChannel is a bidirectional rendezvous-style channel abstraction used
// by the recovery and rendezvous choreographies to exchange framed
// messages without depending on the concrete transport implementation.
type AmpChannel interface {
	Send(ctx context.Context, payload []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}
