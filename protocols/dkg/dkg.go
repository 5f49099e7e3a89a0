// Package dkg implements Aura's dealer-free distributed key generation as
// a choreography over choreo.Adapter: every participant deals itself a
// Feldman-VSS polynomial, sends each peer its private share alongside the
// dealer's public commitments, and combines the shares it receives back
// into its joint-secret KeyShare (spec §4.5's choreographic runtime
// driving spec §4.1's "consumers must re-run DKG... before signing in the
// new epoch" requirement).
//
// Grounded on frost.Deal/VerifyDealerShare/CombineShares (a standard
// Feldman VSS construction, see frost/dkg.go) for the cryptography, driven
// here by a single round-trip choreography: one Send per peer, one Recv
// per peer, then a local combine.
package dkg

import (
	"context"
	"fmt"
	"io"

	"filippo.io/edwards25519"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/journal"
)

// ActionDeal is the capability action a participant's adapter journal
// must grant for any peer in the DKG round.
const ActionDeal journal.Action = "dkg.deal"

// CostDeal is the flow cost charged per dealt message.
const CostDeal uint64 = 1

// RegisterMessages installs this package's message decoder into registry,
// required before running a DKG session over an adapter built with it.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagDeal, DecodeDeal)
}

// Run drives one DKG round to completion: self deals a fresh polynomial
// to every peer, waits for every peer's own deal, verifies each against
// its Feldman commitments (inside frost.CombineShares), and combines the
// accepted shares into a joint KeyShare tagged with epoch.
//
// peers maps each remote participant's adapter role to its identifier;
// the adapter's role map must already resolve every key to the matching
// authority ID.
func Run(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	self frost.Identifier,
	peers map[choreo.Role]frost.Identifier,
	threshold int,
	epoch uint64,
	rng io.Reader,
) (frost.KeyShare, frost.GroupPublicKey, error) {
	participants := make([]frost.Identifier, 0, len(peers)+1)
	participants = append(participants, self)
	for _, id := range peers {
		participants = append(participants, id)
	}

	_, own, err := frost.Deal(self, threshold, participants, rng)
	if err != nil {
		return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("dkg: deal: %w", err)
	}

	for role, id := range peers {
		deal := DealMessage{Dealer: self, Commitments: own.Commitments, Share: own.SharesFor[id]}
		adapter.Enqueue(role, deal)
		if err := adapter.Send(ctx, sessionCtx, role, ActionDeal, CostDeal); err != nil {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("dkg: send to %s: %w", role, err)
		}
	}

	received := map[frost.Identifier]*edwards25519.Scalar{self: own.SharesFor[self]}
	packages := map[frost.Identifier]frost.DealerPackage{self: own}

	for role, id := range peers {
		msg, err := adapter.Recv(ctx, role)
		if err != nil {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("dkg: recv from %s: %w", role, err)
		}
		deal, ok := msg.(DealMessage)
		if !ok {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("dkg: unexpected message type from %s", role)
		}
		if deal.Dealer != id {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("dkg: role %s claimed dealer %s, expected %s", role, deal.Dealer, id)
		}
		received[id] = deal.Share
		packages[id] = frost.DealerPackage{Dealer: deal.Dealer, Commitments: deal.Commitments}
	}

	return frost.CombineShares(self, received, packages, epoch)
}
