package transport

import (
	"errors"
	"sync"

	"github.com/aura-network/aura/aid"
)

// ErrChannelClosed is returned by operations against a channel after Close.
var ErrChannelClosed = errors.New("transport: channel closed")

// Loopback is an in-memory Transport connecting every Loopback instance
// constructed from the same LoopbackNetwork, used by tests and the
// simulation effect variant in place of real sockets.
type Loopback struct {
	self aid.DeviceId
	net  *LoopbackNetwork
}

// LoopbackNetwork is the shared medium a set of Loopback endpoints send
// through. Construct one per test/simulation run and one Loopback per
// simulated device.
type LoopbackNetwork struct {
	mu       sync.Mutex
	peers    map[aid.DeviceId]*Loopback
	channels map[aid.ChannelId]map[aid.DeviceId]struct{} // open participants
	handlers map[aid.ChannelId]map[aid.DeviceId]Handler
	closed   map[aid.ChannelId]bool
}

// NewLoopbackNetwork returns an empty shared medium.
func NewLoopbackNetwork() *LoopbackNetwork {
	return &LoopbackNetwork{
		peers:    make(map[aid.DeviceId]*Loopback),
		channels: make(map[aid.ChannelId]map[aid.DeviceId]struct{}),
		handlers: make(map[aid.ChannelId]map[aid.DeviceId]Handler),
		closed:   make(map[aid.ChannelId]bool),
	}
}

// Endpoint returns (creating if necessary) the Loopback Transport for
// device self on this network.
func (n *LoopbackNetwork) Endpoint(self aid.DeviceId) *Loopback {
	n.mu.Lock()
	defer n.mu.Unlock()
	if lb, ok := n.peers[self]; ok {
		return lb
	}
	lb := &Loopback{self: self, net: n}
	n.peers[self] = lb
	return lb
}

func (n *LoopbackNetwork) markOpen(channel aid.ChannelId, device aid.DeviceId) {
	set, ok := n.channels[channel]
	if !ok {
		set = make(map[aid.DeviceId]struct{})
		n.channels[channel] = set
	}
	set[device] = struct{}{}
	delete(n.closed, channel)
}

func (n *Loopback) Open(channel aid.ChannelId, peer aid.DeviceId) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	n.net.markOpen(channel, n.self)
	n.net.markOpen(channel, peer)
	return nil
}

func (n *Loopback) Send(channel aid.ChannelId, peer aid.DeviceId, payload []byte) error {
	n.net.mu.Lock()
	if n.net.closed[channel] {
		n.net.mu.Unlock()
		return ErrChannelClosed
	}
	handler, ok := n.net.handlers[channel][peer]
	n.net.mu.Unlock()
	if !ok {
		return nil // no listener yet; envelope is dropped, matching best-effort transport semantics
	}
	handler(Envelope{Channel: channel, From: n.self, To: peer, Payload: payload})
	return nil
}

func (n *Loopback) Recv(channel aid.ChannelId, handler Handler) {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	set, ok := n.net.handlers[channel]
	if !ok {
		set = make(map[aid.DeviceId]Handler)
		n.net.handlers[channel] = set
	}
	set[n.self] = handler
	n.net.markOpen(channel, n.self)
}

func (n *Loopback) Broadcast(channel aid.ChannelId, payload []byte) error {
	n.net.mu.Lock()
	if n.net.closed[channel] {
		n.net.mu.Unlock()
		return ErrChannelClosed
	}
	participants := n.net.channels[channel]
	handlers := n.net.handlers[channel]
	targets := make([]aid.DeviceId, 0, len(participants))
	for device := range participants {
		if device == n.self {
			continue
		}
		targets = append(targets, device)
	}
	n.net.mu.Unlock()

	for _, device := range targets {
		if handler, ok := handlers[device]; ok {
			handler(Envelope{Channel: channel, From: n.self, To: device, Payload: payload})
		}
	}
	return nil
}

func (n *Loopback) IsConnected(channel aid.ChannelId, peer aid.DeviceId) bool {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	if n.net.closed[channel] {
		return false
	}
	_, ok := n.net.channels[channel][peer]
	return ok
}

func (n *Loopback) Close(channel aid.ChannelId) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	n.net.closed[channel] = true
	delete(n.net.handlers[channel], n.self)
	delete(n.net.channels[channel], n.self)
	return nil
}
