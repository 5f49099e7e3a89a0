// Package rendezvous implements descriptor publish/resolve for
// previously unknown peers (spec §4.8, wire shape per spec §6): a
// RendezvousDescriptor is published at a location derived from the
// relationship context and resolved by context+authority lookup.
// protocols/rendezvous drives the actual two-/three-party channel
// bring-up choreography (descriptor offer -> answer -> handshake init ->
// complete) on top of what this package publishes and resolves.
//
// Grounded on
// original_source/crates/aura-rendezvous/src/discovery.rs's
// derive_location_hash pattern only: that file's DiscoveryService also
// implements multi-level query-pattern/timing anonymization and a rich
// advertisement access-policy engine, which spec §6's plain descriptor
// shape does not call for, so only the location-hash derivation and the
// publish/resolve-by-context shape are carried over here.
package rendezvous

import (
	"time"

	"github.com/aura-network/aura/aid"
)

// Descriptor is the wire shape spec §6 fixes exactly: {authority_id,
// context_id, transport_hints[], psk_commitment(32), valid_from,
// valid_until, nonce(32), nickname?}.
type Descriptor struct {
	AuthorityID    aid.AuthorityId
	ContextID      aid.ContextId
	TransportHints []string
	PSKCommitment  [32]byte
	ValidFrom      time.Time
	ValidUntil     time.Time
	Nonce          [32]byte
	Nickname       string
}

// ValidAt reports whether d is within its validity window at t.
func (d Descriptor) ValidAt(t time.Time) bool {
	return !t.Before(d.ValidFrom) && t.Before(d.ValidUntil)
}

// Validate checks d's structural invariants, independent of wall-clock
// validity.
func (d Descriptor) Validate() error {
	if !d.ValidFrom.Before(d.ValidUntil) {
		return ErrInvalidWindow
	}
	if len(d.TransportHints) == 0 {
		return ErrNoTransportHints
	}
	var zero [32]byte
	if d.PSKCommitment == zero {
		return ErrMissingCommitment
	}
	if d.Nonce == zero {
		return ErrMissingNonce
	}
	return nil
}
