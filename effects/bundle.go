package effects

import (
	"time"

	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/securestore"
	"github.com/aura-network/aura/transport"
)

// NewProductionRegistry wires the non-deterministic, real-crypto variant
// of spec §4.3's effect table: crypto/rand randomness, the OS clock,
// real FROST signing, and the in-memory loopback network (the only
// transport implementation in scope per spec's Non-goals).
func NewProductionRegistry(net *transport.Loopback, jrnl *journal.Journal, secure *securestore.MemStore) *Registry {
	random := NewProductionRandom()
	return NewRegistry(
		random,
		NewProductionTime(),
		NewProductionCrypto(),
		NewMemStorage(),
		net,
		jrnl,
		jrnl,
		secure,
		NewChanAmpChannel(16),
	)
}

// NewTestingRegistry wires the deterministic, fixed-seed, frozen-time
// variant used by unit and integration tests.
func NewTestingRegistry(seed int64, start time.Time, net *transport.Loopback, jrnl *journal.Journal, secure *securestore.MemStore) (*Registry, *FrozenClock) {
	random := NewDeterministicRandom(seed)
	clock := NewFrozenClock(start)
	return NewRegistry(
		random,
		clock,
		NewSeededCrypto(random),
		NewMemStorage(),
		net,
		jrnl,
		jrnl,
		secure,
		NewChanAmpChannel(16),
	), clock
}

// NewSimulationRegistry wires the deterministic, fault-injecting variant:
// identical to testing except the network effect is wrapped with
// FaultConfig-governed message loss and byte corruption.
func NewSimulationRegistry(seed int64, start time.Time, net *transport.Loopback, jrnl *journal.Journal, secure *securestore.MemStore, faults FaultConfig) (*Registry, *FrozenClock) {
	random := NewDeterministicRandom(seed)
	clock := NewFrozenClock(start)
	faulty := NewFaultInjectingNetwork(net, random, faults)
	return NewRegistry(
		random,
		clock,
		NewSeededCrypto(random),
		NewMemStorage(),
		faulty,
		jrnl,
		jrnl,
		secure,
		NewChanAmpChannel(16),
	), clock
}
