// Package journalsync drives one anti-entropy sync round (spec §4.7) as
// a two-party choreography over choreo.Adapter: commit to a head set,
// reveal it, then exchange bounded delta batches against the peer's
// revealed heads until both sides report nothing left to send.
//
// The round is symmetric — both participants run the identical Run
// function, each addressing the other by a single peer Role — unlike
// protocols/dkg and protocols/resharing's asymmetric dealer/recipient
// role sets, matching journal_sync_choreography.rs's two-participant
// VectorClockCommitment/Reveal/AutomergeSync flow (the lottery-selection
// and cover-traffic stages of that choreography are peer-selection and
// traffic-shaping concerns already covered by syncx.PeerManager and
// spec's explicit non-goal on metadata-hiding transports, not part of
// this package).
package journalsync

import (
	"context"
	"fmt"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/syncx"
)

// Flow actions and costs charged by the guard chain for each message
// kind a round sends.
const (
	ActionCommit journal.Action = "journalsync.commit"
	ActionReveal journal.Action = "journalsync.reveal"
	ActionDelta  journal.Action = "journalsync.delta"

	CostCommit uint64 = 1
	CostReveal uint64 = 1
	CostDelta  uint64 = 1
)

// Run drives one sync round between self and peer over jrnl, bounded by
// cfg's batching limits. It returns a Summary describing what moved and
// whether the two sides ran the exchange to natural completion (neither
// side had anything left to send) rather than hitting the round budget
// (spec §4.7: "the round runs until heads converge or the round budget
// is spent").
//
// nonce must be freshly random per round; it is the commit-reveal nonce
// this side proves its revealed heads are consistent with.
func Run(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	peerID aid.AuthorityId,
	peer choreo.Role,
	jrnl *journal.Journal,
	cfg syncx.SyncConfig,
	nonce [32]byte,
) (syncx.Summary, error) {
	localHeads := syncx.Heads(jrnl.Snapshot())
	commitment := syncx.CommitHeads(localHeads, nonce)

	adapter.Enqueue(peer, CommitMsg{Commitment: commitment})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionCommit, CostCommit); err != nil {
		return syncx.Summary{}, fmt.Errorf("journalsync: send commit to %s: %w", peer, err)
	}

	peerCommitMsg, err := adapter.Recv(ctx, peer)
	if err != nil {
		return syncx.Summary{}, fmt.Errorf("journalsync: recv commit from %s: %w", peer, err)
	}
	peerCommit, ok := peerCommitMsg.(CommitMsg)
	if !ok {
		return syncx.Summary{}, fmt.Errorf("journalsync: unexpected message type from %s during commit", peer)
	}

	adapter.Enqueue(peer, RevealMsg{Heads: localHeads, Nonce: nonce})
	if err := adapter.Send(ctx, sessionCtx, peer, ActionReveal, CostReveal); err != nil {
		return syncx.Summary{}, fmt.Errorf("journalsync: send reveal to %s: %w", peer, err)
	}

	peerRevealMsg, err := adapter.Recv(ctx, peer)
	if err != nil {
		return syncx.Summary{}, fmt.Errorf("journalsync: recv reveal from %s: %w", peer, err)
	}
	peerReveal, ok := peerRevealMsg.(RevealMsg)
	if !ok {
		return syncx.Summary{}, fmt.Errorf("journalsync: unexpected message type from %s during reveal", peer)
	}
	if !syncx.VerifyReveal(peerCommit.Commitment, peerReveal.Heads, peerReveal.Nonce) {
		return syncx.Summary{}, syncx.ErrByzantineReveal
	}

	peerHeads := syncx.HeadSet(peerReveal.Heads)
	limit := cfg.Batching.DefaultBatchSize
	maxTotal := cfg.Batching.MaxOperationsPerRound

	sent, received := 0, 0
	converged := false
	for sent < maxTotal && received < maxTotal {
		batch, moreToSend := syncx.ComputeDelta(jrnl.Snapshot(), peerHeads, limit)

		adapter.Enqueue(peer, DeltaBatchMsg{Entries: batch, More: moreToSend})
		if err := adapter.Send(ctx, sessionCtx, peer, ActionDelta, CostDelta); err != nil {
			return syncx.Summary{}, fmt.Errorf("journalsync: send delta to %s: %w", peer, err)
		}
		sent += len(batch)
		for _, e := range batch {
			// Mark these sent so a multi-round exchange never resends a
			// batch the peer has already been given.
			peerHeads[e.Hash] = struct{}{}
		}

		msg, err := adapter.Recv(ctx, peer)
		if err != nil {
			return syncx.Summary{}, fmt.Errorf("journalsync: recv delta from %s: %w", peer, err)
		}
		incoming, ok := msg.(DeltaBatchMsg)
		if !ok {
			return syncx.Summary{}, fmt.Errorf("journalsync: unexpected message type from %s during delta exchange", peer)
		}
		syncx.ApplyDelta(jrnl, incoming.Entries)
		received += len(incoming.Entries)

		if !moreToSend && !incoming.More {
			converged = true
			break
		}
	}

	summary := syncx.Summary{
		Peer:            peerID,
		EntriesSent:     sent,
		EntriesReceived: received,
		Converged:       converged,
	}
	syncx.RecordSummary(jrnl, summary)
	return summary, nil
}
