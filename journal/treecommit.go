package journal

import (
	"bytes"
	"sort"

	"github.com/aura-network/aura/aid"
)

// TreeCommitments is the per-epoch ratchet-tree root-commitment piece of the
// journal (spec §3): monotone in epoch, one entry per epoch once the
// authority has computed that epoch's root_commitment.
type TreeCommitments struct {
	byEpoch map[uint64]aid.Hash32
}

// NewTreeCommitments returns an empty piece.
func NewTreeCommitments() TreeCommitments {
	return TreeCommitments{byEpoch: make(map[uint64]aid.Hash32)}
}

// Get returns the commitment recorded for epoch, if any.
func (t TreeCommitments) Get(epoch uint64) (aid.Hash32, bool) {
	h, ok := t.byEpoch[epoch]
	return h, ok
}

// MaxEpoch returns the highest epoch recorded, or 0 if empty.
func (t TreeCommitments) MaxEpoch() uint64 {
	var max uint64
	for e := range t.byEpoch {
		if e > max {
			max = e
		}
	}
	return max
}

func (t TreeCommitments) clone() TreeCommitments {
	out := make(map[uint64]aid.Hash32, len(t.byEpoch)+1)
	for k, v := range t.byEpoch {
		out[k] = v
	}
	return TreeCommitments{byEpoch: out}
}

// With records the commitment for epoch.
func (t TreeCommitments) With(epoch uint64, commitment aid.Hash32) TreeCommitments {
	out := t.clone()
	if existing, ok := out.byEpoch[epoch]; ok {
		out.byEpoch[epoch] = joinCommitment(existing, commitment)
	} else {
		out.byEpoch[epoch] = commitment
	}
	return out
}

// Merge joins two TreeCommitments pieces. Two honest authorities always
// compute the same root_commitment for a given epoch (it's a pure function
// of the tree's public state), so a same-epoch mismatch only arises from a
// byzantine authority; joinCommitment resolves it deterministically
// (bytewise max) so the merge stays a well-defined, commutative,
// associative, idempotent operation rather than ignoring the conflict.
func (t TreeCommitments) Merge(delta TreeCommitments) TreeCommitments {
	out := t.clone()
	for epoch, h := range delta.byEpoch {
		if existing, ok := out.byEpoch[epoch]; ok {
			out.byEpoch[epoch] = joinCommitment(existing, h)
		} else {
			out.byEpoch[epoch] = h
		}
	}
	return out
}

func joinCommitment(a, b aid.Hash32) aid.Hash32 {
	if bytes.Compare(a[:], b[:]) >= 0 {
		return a
	}
	return b
}

// Epochs returns all epochs with a recorded commitment, ascending.
func (t TreeCommitments) Epochs() []uint64 {
	out := make([]uint64, 0, len(t.byEpoch))
	for e := range t.byEpoch {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
