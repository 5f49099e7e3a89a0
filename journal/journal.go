package journal

import (
	"fmt"
	"sync"

	"github.com/aura-network/aura/aid"
)

// Journal is an authority's replicated state: the four semilattice pieces of
// spec §3 plus the flow-budget charging operation and receipt chains.
//
// Mutating operations acquire a single writer fence (a mutex), matching
// spec §3's "Ownership model": the journal is exclusively owned by the
// agent runtime; writers are serialised by a global writer fence. Readers
// call Snapshot, which returns an immutable copy-on-write view — the Go
// equivalent of a reader lease, since the four pieces are persistent
// (structural-sharing) value types and never mutated in place.
type Journal struct {
	mu sync.Mutex // the writer fence

	facts Facts
	caps  Caps
	flow  FlowBudgets
	tree  TreeCommitments

	// receiptChains tracks, per (context, src, epoch), the last issued
	// receipt's hash and nonce so ChargeFlow can extend the chain; a new
	// epoch starts a new chain at nonce 0.
	receiptChains map[chainKey]chainTip
}

type chainKey struct {
	Context aid.ID256
	Src     aid.ID256
	Epoch   uint64
}

type chainTip struct {
	LastHash  aid.Hash32
	NextNonce uint64
}

// New returns an empty Journal.
func New() *Journal {
	return &Journal{
		facts:         NewFacts(),
		caps:          NewCaps(),
		flow:          NewFlowBudgets(),
		tree:          NewTreeCommitments(),
		receiptChains: make(map[chainKey]chainTip),
	}
}

// Snapshot is an immutable point-in-time view of the journal, including the
// prestate hash of the state it represents (spec §6 "Persisted state
// layout": "Snapshots include prestate_hash of the state they represent").
type Snapshot struct {
	Facts        Facts
	Caps         Caps
	Flow         FlowBudgets
	Tree         TreeCommitments
	PrestateHash aid.Hash32
}

// Snapshot returns a consistent, immutable view of the journal. Because
// Facts/Caps/FlowBudgets/TreeCommitments are persistent value types, no copy
// is needed beyond taking the fence briefly to read the four field values.
func (j *Journal) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		Facts:        j.facts,
		Caps:         j.caps,
		Flow:         j.flow,
		Tree:         j.tree,
		PrestateHash: prestateHash(j.facts),
	}
}

// prestateHash hashes the subset of facts preceding an operation: the
// canonical, order-independent digest of every fact entry currently
// recorded. A CommitFact's PrestateHash must match this value (taken before
// the fact is added) for the fact to be accepted on merge (spec §3
// "Causality" invariant).
func prestateHash(f Facts) aid.Hash32 {
	var buf []byte
	for _, key := range f.Keys() {
		buf = append(buf, []byte(key.Kind)...)
		buf = append(buf, key.Subject[:]...)
		for _, entry := range f.Get(key).Entries() {
			buf = append(buf, entry.Hash[:]...)
		}
	}
	return aid.Hash("JOURNAL_PRESTATE_V1", buf)
}

// PrestateHash returns the current prestate hash without building a full
// snapshot, used by the consensus engine's Execute step to compute the hash
// it will ask witnesses to compare against their own local view.
func (j *Journal) PrestateHash() aid.Hash32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return prestateHash(j.facts)
}

// MergeFacts merges delta into the journal's facts piece. This is the raw
// CRDT join used by anti-entropy sync for fact kinds with no causal
// ordering requirement; CommitFacts must go through AppendCommitFact, which
// additionally enforces spec §3's causality invariant.
func (j *Journal) MergeFacts(delta Facts) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.facts = j.facts.Merge(delta)
}

// AppendCommitFact merges a single CommitFact into the journal's facts,
// rejecting it if its PrestateHash does not match the hash of the facts
// that preceded it (spec §3's causality invariant: "a CommitFact whose
// prestate_hash does not match the hash of the subset of facts preceding it
// must be rejected on merge").
func (j *Journal) AppendCommitFact(cf CommitFact) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if before := prestateHash(j.facts); cf.PrestateHash != before {
		return fmt.Errorf("journal: commit fact %s has stale prestate hash: causality violation", cf.ConsensusID)
	}

	j.facts = j.facts.With(cf.FactKey(), cf.CanonicalBytes())
	return nil
}

// RefineCaps narrows the journal's caps toward delta ⊓ caps, enforcing
// spec §4.2's "never broadens" guarantee directly in the operation (as
// opposed to Caps.Merge, which is the raw lattice join used only when
// processing a signed grant fact).
func (j *Journal) RefineCaps(delta Caps) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caps = j.caps.Refine(delta)
}

// GrantCaps broadens the journal's caps by joining in delta. Callers must
// have already verified delta is backed by a signed grant fact. The guard
// chain itself only reads caps (CapGuard calls Caps().Allows).
func (j *Journal) GrantCaps(delta Caps) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caps = j.caps.Merge(delta)
}

// Caps returns the current capability lattice node.
func (j *Journal) Caps() Caps {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.caps
}

// GetFlowBudget returns the current budget for (ctx, authority).
func (j *Journal) GetFlowBudget(ctx, authority aid.ID256) Budget {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flow.Get(BudgetKey{Context: ctx, Authority: authority})
}

// SetFlowLimit installs or raises the limit for (ctx, authority) at the
// given epoch, the operation a resharing/rotation ceremony uses to
// (re)authorize flow after an epoch bump discards prior spend.
func (j *Journal) SetFlowLimit(ctx, authority aid.ID256, limit, epoch uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := BudgetKey{Context: ctx, Authority: authority}
	current := j.flow.Get(key)
	if epoch < current.Epoch {
		return // epoch monotonicity: never move backward (spec §8).
	}
	if epoch > current.Epoch {
		current = Budget{Limit: limit, Spent: 0, Epoch: epoch}
	} else {
		current.Limit = limit
	}
	j.flow = j.flow.With(key, current)
}

// ChargeFlow is the single canonical way to consume flow (spec §4.2):
//  1. load the current budget;
//  2. fail with ErrBudgetExhausted if spent+cost would exceed the limit;
//  3. otherwise atomically update spent and emit a chained Receipt.
func (j *Journal) ChargeFlow(ctx, src, dst aid.ID256, cost uint64) (Receipt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	key := BudgetKey{Context: ctx, Authority: src}
	budget := j.flow.Get(key)
	if budget.Spent+cost > budget.Limit {
		return Receipt{}, ErrBudgetExhausted
	}

	budget.Spent += cost
	j.flow = j.flow.With(key, budget)

	chain := chainKey{Context: ctx, Src: src, Epoch: budget.Epoch}
	tip := j.receiptChains[chain]

	receipt := Receipt{
		Context: ctx,
		Src:     src,
		Dst:     dst,
		Epoch:   budget.Epoch,
		Cost:    cost,
		Nonce:   tip.NextNonce,
		Prev:    tip.LastHash,
	}
	j.receiptChains[chain] = chainTip{LastHash: receipt.Hash(), NextNonce: tip.NextNonce + 1}

	j.facts = j.facts.With(FactKey{Kind: "receipt", Subject: dst}, receiptRecordedBytes(receipt))

	return receipt, nil
}

func receiptRecordedBytes(r Receipt) []byte {
	var nonceBuf, epochBuf, costBuf [8]byte
	putUint64(nonceBuf[:], r.Nonce)
	putUint64(epochBuf[:], r.Epoch)
	putUint64(costBuf[:], r.Cost)
	var buf []byte
	buf = append(buf, r.Context[:]...)
	buf = append(buf, r.Src[:]...)
	buf = append(buf, r.Dst[:]...)
	buf = append(buf, epochBuf[:]...)
	buf = append(buf, costBuf[:]...)
	buf = append(buf, nonceBuf[:]...)
	buf = append(buf, r.Prev[:]...)
	return buf
}

// MergeTreeCommitment records a new epoch's ratchet-tree root commitment.
func (j *Journal) MergeTreeCommitment(epoch uint64, commitment aid.Hash32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tree = j.tree.With(epoch, commitment)
}

// TreeCommitments returns the tree-commitments piece.
func (j *Journal) TreeCommitments() TreeCommitments {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tree
}

// MergeRemote joins an entire remote snapshot into this journal, the
// operation anti-entropy sync (syncx) drives after a successful delta
// exchange (spec §4.7 step 2 convergence).
func (j *Journal) MergeRemote(remote Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.facts = j.facts.Merge(remote.Facts)
	j.caps = j.caps.Merge(remote.Caps) // caps only ever grows via verified grant facts upstream of sync
	j.flow = j.flow.Merge(remote.Flow)
	j.tree = j.tree.Merge(remote.Tree)
}
