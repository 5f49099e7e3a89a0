// Package transport defines Aura's external byte-transport boundary
// (spec §6: "Open/Send/Recv/Close/Broadcast/IsConnected") and an
// in-memory loopback implementation used by tests and the simulation
// effect variant.
//
// Adapted from the teacher's own transport/interfaces.go: kept its
// "narrow interface plus a Handler callback" shape but replaced the
// consensus-vote message taxonomy with Aura's self-describing byte
// envelopes, since choreography payloads are opaque wire-tagged bodies
// dispatched by choreo, not a fixed message-type enum.
package transport

import (
	"github.com/aura-network/aura/aid"
)

// Envelope is one opaque byte payload exchanged between two channel
// endpoints, addressed by channel and opaque to the transport itself.
type Envelope struct {
	Channel aid.ChannelId
	From    aid.DeviceId
	To      aid.DeviceId
	Payload []byte
}

// Handler processes an inbound envelope.
type Handler func(env Envelope)

// Transport is the byte transport boundary every choreography adapter
// and the syncx anti-entropy engine send and receive through.
type Transport interface {
	// Open establishes (or reuses) a connection to peer over channel.
	Open(channel aid.ChannelId, peer aid.DeviceId) error

	// Send delivers payload to peer over channel.
	Send(channel aid.ChannelId, peer aid.DeviceId, payload []byte) error

	// Recv registers the handler invoked for every envelope addressed to
	// self arriving on channel. Only one handler may be registered per
	// channel; a second call replaces it.
	Recv(channel aid.ChannelId, handler Handler)

	// Broadcast delivers payload to every currently connected peer on
	// channel.
	Broadcast(channel aid.ChannelId, payload []byte) error

	// IsConnected reports whether peer is reachable over channel.
	IsConnected(channel aid.ChannelId, peer aid.DeviceId) bool

	// Close tears down channel, releasing any registered handler.
	Close(channel aid.ChannelId) error
}
