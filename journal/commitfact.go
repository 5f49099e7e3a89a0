package journal

import "github.com/aura-network/aura/aid"

// CommitFact is the signed record of an agreed operation produced by the
// consensus engine (spec §3). Field order here is the canonical encoding
// order spec §6 requires: two independent aggregators given identical
// (prestate, operation, threshold, witnesses, shares, group_key) must
// produce byte-identical encodings excluding Timestamp (spec §8 "CommitFact
// determinism").
type CommitFact struct {
	ConsensusID        aid.ID256
	PrestateHash       aid.Hash32
	OperationHash      aid.Hash32
	OperationBytes     []byte
	ThresholdSignature []byte
	GroupPublicKey     []byte
	Participants       []aid.ID256 // sorted ascending; see consensus.CanonicalParticipants
	Threshold          int
	FastPath           bool
	TimestampUnixMilli int64
}

// CanonicalBytes returns the deterministic encoding used for hashing and for
// the equality comparisons spec §8 requires, explicitly excluding the
// wall-clock timestamp.
func (c CommitFact) CanonicalBytes() []byte {
	var buf []byte
	buf = append(buf, c.ConsensusID[:]...)
	buf = append(buf, c.PrestateHash[:]...)
	buf = append(buf, c.OperationHash[:]...)
	buf = append(buf, lengthPrefixed(c.OperationBytes)...)
	buf = append(buf, lengthPrefixed(c.ThresholdSignature)...)
	buf = append(buf, lengthPrefixed(c.GroupPublicKey)...)
	var threshBuf [8]byte
	putUint64(threshBuf[:], uint64(c.Threshold))
	buf = append(buf, threshBuf[:]...)
	for _, p := range c.Participants {
		buf = append(buf, p[:]...)
	}
	if c.FastPath {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func lengthPrefixed(b []byte) []byte {
	var lenBuf [8]byte
	putUint64(lenBuf[:], uint64(len(b)))
	out := make([]byte, 0, 8+len(b))
	out = append(out, lenBuf[:]...)
	out = append(out, b...)
	return out
}

// FactKey returns the journal fact key under which this CommitFact is
// recorded: kind "commit", subject = the consensus_id.
func (c CommitFact) FactKey() FactKey {
	return FactKey{Kind: "commit", Subject: c.ConsensusID}
}
