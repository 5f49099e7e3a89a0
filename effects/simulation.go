package effects

import (
	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/transport"
)

// FaultConfig controls the simulation variant's fault injection, mirroring
// spec §4.3's "simulation: deterministic with configurable fault
// injection" row (message loss, byzantine probabilities) and grounded on
// original_source/crates/aura-testkit/src/mock_effects.rs's seeded,
// fully-deterministic MockEffects.
type FaultConfig struct {
	// MessageLossProbability drops an outbound Send/Broadcast before it
	// reaches the underlying transport, in [0, 1].
	MessageLossProbability float64
	// ByzantineProbability corrupts an outbound payload's first byte
	// before sending, simulating a malicious or buggy peer, in [0, 1].
	ByzantineProbability float64
}

// FaultInjectingNetwork wraps a Network effect with FaultConfig-governed
// message loss and byte corruption, sampled from a Random effect so the
// fault pattern replays identically given the same seed.
type FaultInjectingNetwork struct {
	inner  Network
	random Random
	config FaultConfig
}

// NewFaultInjectingNetwork wraps inner with deterministic fault injection
// driven by random and config.
func NewFaultInjectingNetwork(inner Network, random Random, config FaultConfig) *FaultInjectingNetwork {
	return &FaultInjectingNetwork{inner: inner, random: random, config: config}
}

func (f *FaultInjectingNetwork) Open(channel aid.ChannelId, peer aid.DeviceId) error {
	return f.inner.Open(channel, peer)
}

func (f *FaultInjectingNetwork) Send(channel aid.ChannelId, peer aid.DeviceId, payload []byte) error {
	if f.random.Float64() < f.config.MessageLossProbability {
		return nil
	}
	return f.inner.Send(channel, peer, f.maybeCorrupt(payload))
}

func (f *FaultInjectingNetwork) Recv(channel aid.ChannelId, handler transport.Handler) {
	f.inner.Recv(channel, handler)
}

func (f *FaultInjectingNetwork) Broadcast(channel aid.ChannelId, payload []byte) error {
	if f.random.Float64() < f.config.MessageLossProbability {
		return nil
	}
	return f.inner.Broadcast(channel, f.maybeCorrupt(payload))
}

func (f *FaultInjectingNetwork) IsConnected(channel aid.ChannelId, peer aid.DeviceId) bool {
	return f.inner.IsConnected(channel, peer)
}

func (f *FaultInjectingNetwork) Close(channel aid.ChannelId) error {
	return f.inner.Close(channel)
}

func (f *FaultInjectingNetwork) maybeCorrupt(payload []byte) []byte {
	if len(payload) == 0 || f.random.Float64() >= f.config.ByzantineProbability {
		return payload
	}
	corrupted := make([]byte, len(payload))
	copy(corrupted, payload)
	corrupted[0] ^= 0xFF
	return corrupted
}
