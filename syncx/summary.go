package syncx

import (
	"encoding/binary"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

// Summary is the "ConsensusResult-less summary fact of what moved" spec
// §4.7 step 3 calls for: it records round outcome without going through
// consensus, since anti-entropy merges are unilateral CRDT joins, not
// agreed-upon operations.
type Summary struct {
	Peer            aid.AuthorityId
	EntriesSent     int
	EntriesReceived int
	Converged       bool
	TimestampMillis int64
}

// Bytes is Summary's canonical encoding, used both as the fact value
// recorded in the journal and for logging/metrics.
func (s Summary) Bytes() []byte {
	buf := make([]byte, 0, 32+8+8+1+8)
	buf = append(buf, s.Peer[:]...)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(s.EntriesSent))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], uint64(s.EntriesReceived))
	buf = append(buf, tmp[:]...)
	if s.Converged {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	binary.BigEndian.PutUint64(tmp[:], uint64(s.TimestampMillis))
	buf = append(buf, tmp[:]...)
	return buf
}

// RecordSummary appends s to the journal as a "sync_summary" fact keyed
// by the peer it synced with, so local operators can audit recent sync
// activity without it ever entering consensus.
func RecordSummary(j *journal.Journal, s Summary) {
	delta := journal.NewFacts().With(journal.FactKey{Kind: "sync_summary", Subject: s.Peer}, s.Bytes())
	j.MergeFacts(delta)
}
