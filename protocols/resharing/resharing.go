// Package resharing implements Aura's proactive resharing ceremony as a
// choreography over choreo.Adapter: members of an old quorum sub-deal
// their own Lagrange-reweighted share of the group secret to a new
// committee, which combines the sub-shares back into fresh per-member
// shares of the *same* group secret under a new epoch and (optionally)
// a new threshold — spec §3's "rotated on tree mutation, resharing, or
// explicit key rotation" and §4.1's "consumers must re-run DKG or
// resharing before signing in the new epoch", exercised end-to-end by
// spec §8's guardian-recovery property ("resharing produces new leaf;
// epoch advances; old shares are rejected").
//
// Grounded on the standard Pedersen/CHURP-style proactive resharing
// construction (sub-deal a Lagrange-reweighted share rather than a fresh
// random secret, so the reconstructed constant term is provably
// unchanged): frost.NewPolynomialWithSecret and frost.DealWithPolynomial
// were added to the frost package specifically to support this ceremony
// alongside protocols/dkg's fresh-secret Deal.
package resharing

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
// must grant for any peer in a resharing ceremony.
const ActionDeal journal.Action = "resharing.deal"

// CostDeal is the flow cost charged per dealt message.
const CostDeal uint64 = 1

// Run drives one resharing ceremony from self's point of view.
//
// If oldShare is non-nil, self is a member of oldQuorum (the old
// threshold-sized set of dealers reconstructing the group secret) and
// sub-deals its Lagrange-reweighted share to every peer in
// recipientRoles (the rest of the new committee; self's own
// contribution is folded in locally, without a network round-trip). If
// oldShare is nil, self is a pure new joiner and only collects.
//
// Every participant, dealer or not, then receives one DealMessage from
// each peer in dealerRoles (the rest of oldQuorum) and combines the
// accepted sub-shares into self's fresh KeyShare under newEpoch.
func Run(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	self frost.Identifier,
	oldQuorum []frost.Identifier,
	oldShare *edwards25519.Scalar,
	dealerRoles map[choreo.Role]frost.Identifier,
	recipientRoles map[choreo.Role]frost.Identifier,
	newThreshold int,
	newEpoch uint64,
	rng io.Reader,
) (frost.KeyShare, frost.GroupPublicKey, error) {
	received := map[frost.Identifier]*edwards25519.Scalar{}
	packages := map[frost.Identifier]frost.DealerPackage{}

	if oldShare != nil {
		lambda := frost.LagrangeCoefficient(self, oldQuorum)
		subSecret := edwards25519.NewScalar().Multiply(lambda, oldShare)

		poly, err := frost.NewPolynomialWithSecret(subSecret, newThreshold-1, rng)
		if err != nil {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("resharing: sub-polynomial: %w", err)
		}

		allRecipients := make([]frost.Identifier, 0, len(recipientRoles)+1)
		allRecipients = append(allRecipients, self)
		for _, id := range recipientRoles {
			allRecipients = append(allRecipients, id)
		}

		ownPkg := frost.DealWithPolynomial(self, poly, allRecipients)

		for role, id := range recipientRoles {
			deal := DealMessage{Dealer: self, Commitments: ownPkg.Commitments, Share: ownPkg.SharesFor[id]}
			adapter.Enqueue(role, deal)
			if err := adapter.Send(ctx, sessionCtx, role, ActionDeal, CostDeal); err != nil {
				return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("resharing: send to %s: %w", role, err)
			}
		}

		received[self] = ownPkg.SharesFor[self]
		packages[self] = ownPkg
	}

	for role, id := range dealerRoles {
		msg, err := adapter.Recv(ctx, role)
		if err != nil {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("resharing: recv from %s: %w", role, err)
		}
		deal, ok := msg.(DealMessage)
		if !ok {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("resharing: unexpected message type from %s", role)
		}
		if deal.Dealer != id {
			return frost.KeyShare{}, frost.GroupPublicKey{}, fmt.Errorf("resharing: role %s claimed dealer %s, expected %s", role, deal.Dealer, id)
		}
		received[id] = deal.Share
		packages[id] = frost.DealerPackage{Dealer: deal.Dealer, Commitments: deal.Commitments}
	}

	return frost.CombineShares(self, received, packages, newEpoch)
}
