// Package rendezvous drives channel bring-up (spec §4.8/§6) as a
// choreography over choreo.Adapter: a two-party exchange of descriptor
// offer, answer, handshake init and complete, plus a three-party
// relayed variant for when the two sides cannot reach each other
// directly and must bounce frames through a relay that already has a
// path to both.
package rendezvous

import (
	"context"
	"fmt"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/journal"
	domain "github.com/aura-network/aura/rendezvous"
)

const (
	ActionOffer     journal.Action = "rendezvous.offer"
	ActionAnswer    journal.Action = "rendezvous.answer"
	ActionHandshake journal.Action = "rendezvous.handshake"
	ActionComplete  journal.Action = "rendezvous.complete"
	ActionRelay     journal.Action = "rendezvous.relay"

	CostOffer     uint64 = 1
	CostAnswer    uint64 = 1
	CostHandshake uint64 = 1
	CostComplete  uint64 = 1
	CostRelay     uint64 = 1
)

var errHandshakeFailed = fmt.Errorf("rendezvous: peer failed to prove knowledge of the pre-shared secret")

// ProveKnowledge produces a proof, over a freshly chosen nonce, that the
// caller holds the secret committed to by a descriptor's PSKCommitment.
// VerifyKnowledge checks such a proof against the same expectation. Both
// sides of a bring-up must be built from the same underlying secret for
// the handshake to succeed; how that secret was established (guardian
// relationship, prior pairing, out-of-band exchange) is outside this
// package's concern.
type ProveKnowledge func(nonce [32]byte) aid.Hash32
type VerifyKnowledge func(nonce [32]byte, proof aid.Hash32) bool

// RunInitiator drives the initiator's half of a direct two-party
// bring-up: offer, await answer, handshake init, await complete.
// It returns the responder's descriptor once the handshake is verified.
func RunInitiator(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	peer choreo.Role,
	local domain.Descriptor,
	nonce [32]byte,
	prove ProveKnowledge,
	verify VerifyKnowledge,
) (domain.Descriptor, error) {
	adapter.Enqueue(peer, OfferMsg{Descriptor: local})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionOffer, CostOffer); err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: send offer: %w", err)
	}

	msg, err := adapter.Recv(ctx, peer)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: recv answer: %w", err)
	}
	answer, ok := msg.(AnswerMsg)
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: unexpected message type, want answer")
	}

	adapter.Enqueue(peer, HandshakeInitMsg{Nonce: nonce, Proof: prove(nonce)})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionHandshake, CostHandshake); err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: send handshake init: %w", err)
	}

	msg, err = adapter.Recv(ctx, peer)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: recv complete: %w", err)
	}
	complete, ok := msg.(CompleteMsg)
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: unexpected message type, want complete")
	}
	if !verify(complete.Nonce, complete.Proof) {
		return domain.Descriptor{}, errHandshakeFailed
	}

	return answer.Descriptor, nil
}

// RunResponder drives the responder's half of a direct two-party
// bring-up: await offer, answer, await handshake init (rejecting on bad
// proof before ever sending complete), complete.
func RunResponder(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	peer choreo.Role,
	local domain.Descriptor,
	nonce [32]byte,
	prove ProveKnowledge,
	verify VerifyKnowledge,
) (domain.Descriptor, error) {
	msg, err := adapter.Recv(ctx, peer)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: recv offer: %w", err)
	}
	offer, ok := msg.(OfferMsg)
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: unexpected message type, want offer")
	}

	adapter.Enqueue(peer, AnswerMsg{Descriptor: local})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionAnswer, CostAnswer); err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: send answer: %w", err)
	}

	msg, err = adapter.Recv(ctx, peer)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: recv handshake init: %w", err)
	}
	handshake, ok := msg.(HandshakeInitMsg)
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: unexpected message type, want handshake init")
	}
	if !verify(handshake.Nonce, handshake.Proof) {
		return domain.Descriptor{}, errHandshakeFailed
	}

	adapter.Enqueue(peer, CompleteMsg{Nonce: nonce, Proof: prove(nonce)})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionComplete, CostComplete); err != nil {
		return domain.Descriptor{}, fmt.Errorf("rendezvous: send complete: %w", err)
	}

	return offer.Descriptor, nil
}

// RunRelay drives the three-party variant: a relay with live transport
// paths to both initiator and responder but no interest in the
// bring-up's content forwards each of the four messages in turn,
// alternating source and destination, never decoding past the
// choreo.Message boundary. It is used when RunInitiator/RunResponder
// cannot reach each other directly.
func RunRelay(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	initiator, responder choreo.Role,
) error {
	hops := []struct {
		from, to choreo.Role
		action   journal.Action
	}{
		{initiator, responder, ActionOffer},
		{responder, initiator, ActionAnswer},
		{initiator, responder, ActionHandshake},
		{responder, initiator, ActionComplete},
	}

	for _, hop := range hops {
		msg, err := adapter.Recv(ctx, hop.from)
		if err != nil {
			return fmt.Errorf("rendezvous: relay recv from %s: %w", hop.from, err)
		}
		adapter.Enqueue(hop.to, msg)
		if err := adapter.Send(ctx, sessionCtx, hop.to, ActionRelay, CostRelay); err != nil {
			return fmt.Errorf("rendezvous: relay forward to %s: %w", hop.to, err)
		}
	}

	return nil
}
