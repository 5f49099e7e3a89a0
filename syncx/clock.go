package syncx

import (
	"sort"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

// Heads returns the content-addressed frontier of snap's facts: the
// sorted set of every FactEntry hash currently recorded. Because a
// FactRegister is a flat grow-only set with no dependency edges, this
// plays the role Automerge's Vec<ChangeHash> plays in the original
// protocol's commit-reveal envelope (spec §9's "grow-only delta CRDT"
// substitution) — two journals have converged exactly when their head
// sets are equal.
func Heads(snap journal.Snapshot) []aid.Hash32 {
	var heads []aid.Hash32
	for _, key := range snap.Facts.Keys() {
		for _, entry := range snap.Facts.Get(key).Entries() {
			heads = append(heads, entry.Hash)
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].Compare(heads[j]) < 0 })
	return heads
}

// HeadSet is Heads as a lookup set, used while computing deltas.
func HeadSet(heads []aid.Hash32) map[aid.Hash32]struct{} {
	set := make(map[aid.Hash32]struct{}, len(heads))
	for _, h := range heads {
		set[h] = struct{}{}
	}
	return set
}

// CommitHeads computes the commitment a peer publishes before revealing
// its actual head set (spec §4.7 step 1: "commit to their vector clock
// H(vc || nonce)"), grounded on
// journal_sync_choreography.rs's VectorClockCommitment (Blake3 of the
// serialised vector clock plus a nonce).
func CommitHeads(heads []aid.Hash32, nonce [32]byte) aid.Hash32 {
	return aid.Hash("SYNC_VC_COMMIT_V1", flattenHeads(heads), nonce[:])
}

// VerifyReveal reports whether heads/nonce are consistent with a
// previously published commitment. A mismatch is byzantine behaviour
// (spec §4.7: "commitment/reveal mismatch is treated as byzantine
// behaviour").
func VerifyReveal(commitment aid.Hash32, heads []aid.Hash32, nonce [32]byte) bool {
	return CommitHeads(heads, nonce) == commitment
}

func flattenHeads(heads []aid.Hash32) []byte {
	buf := make([]byte, 0, len(heads)*32)
	for _, h := range heads {
		buf = append(buf, h[:]...)
	}
	return buf
}
