package syncx

import (
	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

// DeltaEntry is one fact entry in transit during the exchange phase of a
// sync round.
type DeltaEntry struct {
	Key   journal.FactKey
	Value []byte
	Hash  aid.Hash32
}

// ComputeDelta returns up to limit entries from snap absent from
// peerHeads, plus whether more entries remain beyond limit (spec §4.7
// step 2: "exchange sync deltas... until budget spent").
func ComputeDelta(snap journal.Snapshot, peerHeads map[aid.Hash32]struct{}, limit int) (entries []DeltaEntry, more bool) {
	for _, key := range snap.Facts.Keys() {
		for _, e := range snap.Facts.Get(key).Entries() {
			if _, present := peerHeads[e.Hash]; present {
				continue
			}
			if len(entries) >= limit {
				more = true
				continue
			}
			entries = append(entries, DeltaEntry{Key: key, Value: e.Value, Hash: e.Hash})
		}
	}
	return entries, more
}

// ApplyDelta merges received entries into j as a single Facts delta.
func ApplyDelta(j *journal.Journal, entries []DeltaEntry) {
	if len(entries) == 0 {
		return
	}
	delta := journal.NewFacts()
	for _, e := range entries {
		delta = delta.With(e.Key, e.Value)
	}
	j.MergeFacts(delta)
}
