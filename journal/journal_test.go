package journal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
)

func sampleFacts() (Facts, Facts, Facts) {
	subjA := aid.Derive("S", []byte("a"))
	subjB := aid.Derive("S", []byte("b"))
	a := NewFacts().With(FactKey{Kind: "device_name", Subject: subjA}, []byte("alice"))
	b := NewFacts().With(FactKey{Kind: "device_name", Subject: subjB}, []byte("bob"))
	c := NewFacts().With(FactKey{Kind: "device_name", Subject: subjA}, []byte("alice-renamed"))
	return a, b, c
}

func TestFactsSemilatticeLaws(t *testing.T) {
	a, b, c := sampleFacts()

	// Associativity
	require.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))

	// Commutativity
	require.Equal(t, a.Merge(b), b.Merge(a))

	// Idempotence
	require.Equal(t, a, a.Merge(a))

	// Monotonicity: a <= a ⊔ b, i.e. a.Merge(aMergeB) == aMergeB
	merged := a.Merge(b)
	require.Equal(t, merged, a.Merge(merged))
	require.Equal(t, merged, b.Merge(merged))
}

func TestBudgetMergeSemilatticeLaws(t *testing.T) {
	a := Budget{Limit: 100, Spent: 10, Epoch: 1}
	b := Budget{Limit: 100, Spent: 40, Epoch: 1}
	c := Budget{Limit: 200, Spent: 5, Epoch: 2}

	require.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	require.Equal(t, a.Merge(b), b.Merge(a))
	require.Equal(t, a, a.Merge(a))
}

func TestBudgetEpochBumpDiscardsSpend(t *testing.T) {
	old := Budget{Limit: 100, Spent: 90, Epoch: 1}
	bumped := Budget{Limit: 100, Spent: 0, Epoch: 2}
	require.Equal(t, bumped, old.Merge(bumped))
}

func TestCapsNeverBroadensOnRefine(t *testing.T) {
	subj := aid.Derive("S", []byte("x"))
	wide := CapsFrom(Grant{Subject: subj, Action: "read"}, Grant{Subject: subj, Action: "write"})
	narrow := CapsFrom(Grant{Subject: subj, Action: "read"})

	refined := wide.Refine(narrow)
	require.True(t, refined.LessEqual(wide))
	require.False(t, refined.Allows(subj, "write"))
	require.True(t, refined.Allows(subj, "read"))
}

func TestChargeFlowExhaustion(t *testing.T) {
	j := New()
	ctx := aid.Derive("CTX", []byte("ctx1"))
	src := aid.Derive("AUTH", []byte("a"))
	dst := aid.Derive("AUTH", []byte("b"))

	j.SetFlowLimit(ctx, src, 100, 0)

	_, err := j.ChargeFlow(ctx, src, dst, 50)
	require.NoError(t, err)

	_, err = j.ChargeFlow(ctx, src, dst, 60)
	require.ErrorIs(t, err, ErrBudgetExhausted)

	budget := j.GetFlowBudget(ctx, src)
	require.Equal(t, uint64(50), budget.Spent) // unchanged by the failed charge

	// Rotate epoch: spend resets, so the same send now succeeds.
	j.SetFlowLimit(ctx, src, 100, 1)
	receipt, err := j.ChargeFlow(ctx, src, dst, 60)
	require.NoError(t, err)
	require.Equal(t, uint64(0), receipt.Nonce)
}

func TestReceiptChainLinks(t *testing.T) {
	j := New()
	ctx := aid.Derive("CTX", []byte("ctx1"))
	src := aid.Derive("AUTH", []byte("a"))
	dst := aid.Derive("AUTH", []byte("b"))
	j.SetFlowLimit(ctx, src, 1000, 0)

	r1, err := j.ChargeFlow(ctx, src, dst, 10)
	require.NoError(t, err)
	r2, err := j.ChargeFlow(ctx, src, dst, 10)
	require.NoError(t, err)

	require.Equal(t, uint64(0), r1.Nonce)
	require.Equal(t, uint64(1), r2.Nonce)
	require.Equal(t, r1.Hash(), r2.Prev)
}

func TestAppendCommitFactRejectsStalePrestate(t *testing.T) {
	j := New()
	cf := CommitFact{
		ConsensusID:  aid.Derive("C", []byte("1")),
		PrestateHash: aid.Derive("WRONG", []byte("hash")),
	}
	err := j.AppendCommitFact(cf)
	require.Error(t, err)
}

func TestAppendCommitFactAcceptsMatchingPrestate(t *testing.T) {
	j := New()
	before := j.PrestateHash()
	cf := CommitFact{
		ConsensusID:  aid.Derive("C", []byte("1")),
		PrestateHash: before,
	}
	require.NoError(t, j.AppendCommitFact(cf))
}

func TestPersistRoundTrip(t *testing.T) {
	store := newMemStore()
	authority := aid.Derive("AUTH", []byte("a"))
	ctx := aid.Derive("CTX", []byte("c"))

	j := New()
	j.SetFlowLimit(ctx, authority, 100, 0)
	_, err := j.ChargeFlow(ctx, authority, authority, 10)
	require.NoError(t, err)
	j.MergeTreeCommitment(0, aid.Derive("ROOT", []byte("x")))

	require.NoError(t, j.Persist(store, "aura", authority))

	loaded := New()
	require.NoError(t, loaded.Load(store, "aura", authority))

	require.Equal(t, j.GetFlowBudget(ctx, authority), loaded.GetFlowBudget(ctx, authority))
	require.Equal(t, j.TreeCommitments().Epochs(), loaded.TreeCommitments().Epochs())
}

type memStore struct{ data map[string][]byte }

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Put(key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}
