package syncx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

func TestComputeDeltaSkipsKnownHeadsAndRespectsLimit(t *testing.T) {
	j := journal.New()
	j.MergeFacts(journal.NewFacts().With(journal.FactKey{Kind: "widget", Subject: aid.ID256{1}}, []byte("a")))
	j.MergeFacts(journal.NewFacts().With(journal.FactKey{Kind: "widget", Subject: aid.ID256{2}}, []byte("b")))
	j.MergeFacts(journal.NewFacts().With(journal.FactKey{Kind: "widget", Subject: aid.ID256{3}}, []byte("c")))

	snap := j.Snapshot()
	allHeads := Heads(snap)
	peerHeads := HeadSet(allHeads[:1]) // peer already has one entry

	entries, more := ComputeDelta(snap, peerHeads, 1)
	require.Len(t, entries, 1)
	require.True(t, more, "two entries remain outstanding but limit was 1")

	entries, more = ComputeDelta(snap, peerHeads, 10)
	require.Len(t, entries, 2)
	require.False(t, more)
}

func TestApplyDeltaConvergesTwoJournals(t *testing.T) {
	source := journal.New()
	source.MergeFacts(journal.NewFacts().With(journal.FactKey{Kind: "widget", Subject: aid.ID256{1}}, []byte("a")))
	source.MergeFacts(journal.NewFacts().With(journal.FactKey{Kind: "widget", Subject: aid.ID256{2}}, []byte("b")))

	dest := journal.New()

	entries, more := ComputeDelta(source.Snapshot(), HeadSet(Heads(dest.Snapshot())), 1000)
	require.False(t, more)
	ApplyDelta(dest, entries)

	require.Equal(t, Heads(source.Snapshot()), Heads(dest.Snapshot()))
}

func TestApplyDeltaNoopOnEmptyEntries(t *testing.T) {
	dest := journal.New()
	before := Heads(dest.Snapshot())
	ApplyDelta(dest, nil)
	require.Equal(t, before, Heads(dest.Snapshot()))
}
