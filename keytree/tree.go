// Package keytree implements Aura's ratchet tree: a binary tree over a
// device's leaves whose commitments parameterise FROST signing sessions,
// with forward secrecy on every epoch rotation (spec §4.1).
//
// Grounded on the teacher's threshold/unary_threshold.go and
// threshold/poly_threshold.go for the "structural mutation bumps a
// monotonically increasing counter and invalidates cached state" shape,
// generalized from confidence counters to epochs and FROST key shares.
package keytree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aura-network/aura/aid"
)

// Errors returned by Tree operations, matching spec §4.1's failure semantics.
// ErrAlreadyRemoved wraps ErrNotFound, so removing a tombstoned leaf
// satisfies errors.Is(err, ErrNotFound) whether or not its slot has been
// compacted away.
var (
	ErrNotFound        = errors.New("keytree: leaf not found")
	ErrAlreadyRemoved  = fmt.Errorf("keytree: leaf already tombstoned: %w", ErrNotFound)
	ErrInvalidThreshold = errors.New("keytree: threshold must be in (0, active_leaves]")
)

// Leaf holds one device's public key material in the tree.
type Leaf struct {
	ID         aid.LeafId
	PublicKey  []byte
	RoleTag    string
	Tombstoned bool
}

// Tree is a binary tree over leaves in insertion order. Internal-node
// commitments are recomputed bottom-up on every structural change; this
// implementation recomputes the whole commitment on each mutation rather
// than tracking a dirty path incrementally, trading the teacher's
// dirty-path optimization for simplicity at the scale (device counts per
// authority, not validator-set sizes) Aura's ratchet tree operates at.
type Tree struct {
	leaves    []Leaf // index = insertion slot; tombstoned slots stay until rebalance
	byID      map[aid.LeafId]int
	epoch     uint64
	threshold int
}

// New returns an empty ratchet tree at epoch 0.
func New() *Tree {
	return &Tree{byID: make(map[aid.LeafId]int)}
}

// Epoch returns the tree's current epoch.
func (t *Tree) Epoch() uint64 { return t.epoch }

// Threshold returns the signing threshold currently configured.
func (t *Tree) Threshold() int { return t.threshold }

// activeLeaves returns non-tombstoned leaves.
func (t *Tree) activeLeaves() []Leaf {
	out := make([]Leaf, 0, len(t.leaves))
	for _, l := range t.leaves {
		if !l.Tombstoned {
			out = append(out, l)
		}
	}
	return out
}

// ActiveLeafCount reports the number of live (non-tombstoned) leaves.
func (t *Tree) ActiveLeafCount() int { return len(t.activeLeaves()) }

// AddDevice inserts a new leaf, using the next free (tombstoned or
// past-the-end) slot, bumps the epoch, and invalidates cached FROST key
// shares for the tree's consumers (spec §4.1 step 3).
func (t *Tree) AddDevice(publicKey []byte, roleTag string) aid.LeafId {
	leafID := aid.Derive128("LEAF_ID_V1", publicKey, []byte(roleTag), epochBytes(t.epoch))

	slot := t.firstFreeSlot()
	leaf := Leaf{ID: leafID, PublicKey: publicKey, RoleTag: roleTag}
	if slot == len(t.leaves) {
		t.leaves = append(t.leaves, leaf)
	} else {
		delete(t.byID, t.leaves[slot].ID)
		t.leaves[slot] = leaf
	}
	t.byID[leafID] = slot

	t.bumpEpoch()
	return leafID
}

func (t *Tree) firstFreeSlot() int {
	for i, l := range t.leaves {
		if l.Tombstoned {
			return i
		}
	}
	return len(t.leaves)
}

// RemoveDevice tombstones the leaf, rebalancing (compacting tombstoned
// slots) if fragmentation exceeds one level over optimal depth, per spec
// §4.1's structural-change rules.
func (t *Tree) RemoveDevice(leaf aid.LeafId) error {
	slot, ok := t.byID[leaf]
	if !ok {
		return ErrNotFound
	}
	if t.leaves[slot].Tombstoned {
		return ErrAlreadyRemoved
	}
	t.leaves[slot].Tombstoned = true

	if t.fragmented() {
		t.rebalance()
	}

	t.bumpEpoch()
	return nil
}

// fragmented reports whether the tree's actual depth exceeds the optimal
// depth for its active leaf count by more than one level.
func (t *Tree) fragmented() bool {
	active := t.ActiveLeafCount()
	if active == 0 {
		return len(t.leaves) > 0
	}
	optimal := depthFor(active)
	actual := depthFor(len(t.leaves))
	return actual > optimal+1
}

func depthFor(n int) int {
	if n <= 1 {
		return 0
	}
	depth := 0
	size := 1
	for size < n {
		size *= 2
		depth++
	}
	return depth
}

// rebalance compacts tombstoned slots out of the leaf array, preserving
// relative order of the surviving leaves.
func (t *Tree) rebalance() {
	compact := make([]Leaf, 0, len(t.leaves))
	for _, l := range t.leaves {
		if !l.Tombstoned {
			compact = append(compact, l)
		}
	}
	t.leaves = compact
	t.byID = make(map[aid.LeafId]int, len(compact))
	for i, l := range compact {
		t.byID[l.ID] = i
	}
}

// RotateEpoch bumps the epoch without a structural change (an explicit key
// rotation), invalidating cached FROST key shares exactly as a structural
// mutation does.
func (t *Tree) RotateEpoch() {
	t.bumpEpoch()
}

func (t *Tree) bumpEpoch() {
	t.epoch++
}

// UpdateThreshold sets the signing threshold. A threshold of 0 or greater
// than the number of active leaves is rejected (spec §4.1 failure
// semantics: "update_threshold(0) or > active_leaves returns invalid").
func (t *Tree) UpdateThreshold(threshold int) error {
	if threshold <= 0 || threshold > t.ActiveLeafCount() {
		return ErrInvalidThreshold
	}
	t.threshold = threshold
	return nil
}

// LeafPublicKey returns the public key material for a live leaf.
func (t *Tree) LeafPublicKey(leaf aid.LeafId) ([]byte, error) {
	slot, ok := t.byID[leaf]
	if !ok || t.leaves[slot].Tombstoned {
		return nil, ErrNotFound
	}
	return t.leaves[slot].PublicKey, nil
}

// RootPublicKey derives a tree-wide public value from every active leaf's
// key material and the current epoch. Spec §4.1 does not fix this formula
// (only root_commitment's is given explicitly); this implementation treats
// it as a convenience digest over the same sorted leaf set root_commitment
// uses, domain-separated from LEAF_COMMITMENT/TREE_COMMITMENT so it can
// never be confused with either (see DESIGN.md open-question resolution).
func (t *Tree) RootPublicKey() []byte {
	sorted := t.sortedActiveLeaves()
	var buf []byte
	buf = append(buf, epochBytes(t.epoch)...)
	for _, l := range sorted {
		buf = append(buf, l.ID[:]...)
		buf = append(buf, l.PublicKey...)
	}
	h := aid.Hash("TREE_ROOT_PUBLIC_KEY_V1", buf)
	return h[:]
}

func (t *Tree) sortedActiveLeaves() []Leaf {
	active := t.activeLeaves()
	sort.Slice(active, func(i, j int) bool { return active[i].ID.Compare(active[j].ID) < 0 })
	return active
}

// RootCommitment computes the exact hash spec §4.1 specifies:
//
//	H("TREE_COMMITMENT_V1" || epoch || threshold || leaf_count || merkle_root(leaf_commitments))
//
// where leaf_commitments are sorted by LeafId and each leaf commitment is
//
//	H("LEAF_COMMITMENT_V1" || leaf_id || pubkey || role_tag).
func (t *Tree) RootCommitment() aid.Hash32 {
	sorted := t.sortedActiveLeaves()
	leafCommitments := make([][]byte, len(sorted))
	for i, l := range sorted {
		h := aid.Hash("LEAF_COMMITMENT_V1", l.ID[:], l.PublicKey, []byte(l.RoleTag))
		leafCommitments[i] = h[:]
	}
	root := merkleRoot(leafCommitments)

	return aid.Hash("TREE_COMMITMENT_V1",
		epochBytes(t.epoch),
		intBytes(t.threshold),
		intBytes(len(sorted)),
		root,
	)
}

// merkleRoot computes a binary Merkle root over already-hashed leaves,
// duplicating the last element when a level has an odd count (the standard
// Bitcoin-style padding rule).
func merkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		empty := aid.Hash("EMPTY_MERKLE_ROOT_V1")
		return empty[:]
	}
	level := leaves
	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				h := aid.Hash("MERKLE_NODE_V1", level[i], level[i+1])
				next = append(next, h[:])
			} else {
				h := aid.Hash("MERKLE_NODE_V1", level[i], level[i])
				next = append(next, h[:])
			}
		}
		level = next
	}
	return level[0]
}

func epochBytes(epoch uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(epoch >> (8 * i))
	}
	return b
}

func intBytes(v int) []byte {
	return epochBytes(uint64(v))
}
