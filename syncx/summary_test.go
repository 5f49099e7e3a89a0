package syncx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

func TestSummaryBytesEncodesFields(t *testing.T) {
	s := Summary{
		Peer:            aid.AuthorityId{9},
		EntriesSent:     3,
		EntriesReceived: 5,
		Converged:       true,
		TimestampMillis: 1000,
	}
	b := s.Bytes()
	require.Len(t, b, 32+8+8+1+8)
	require.Equal(t, byte(1), b[32+8+8])
}

func TestRecordSummaryAppendsFact(t *testing.T) {
	j := journal.New()
	peer := aid.AuthorityId{9}
	RecordSummary(j, Summary{Peer: peer, EntriesSent: 1, TimestampMillis: 5})

	snap := j.Snapshot()
	reg := snap.Facts.Get(journal.FactKey{Kind: "sync_summary", Subject: peer})
	require.Equal(t, 1, reg.Len())
}
