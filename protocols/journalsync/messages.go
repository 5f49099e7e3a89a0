package journalsync

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/syncx"
)

// Wire tags for the three message types a journal-sync round exchanges.
const (
	TagCommit = "journalsync.commit"
	TagReveal = "journalsync.reveal"
	TagDelta  = "journalsync.delta"
)

// CommitMsg is the first message of a sync round: a blake3 commitment to
// the sender's current head set, sent before either side learns the
// other's actual facts (spec §4.7 step 1).
type CommitMsg struct {
	Commitment aid.Hash32
}

func (m CommitMsg) Tag() string { return TagCommit }

func (m CommitMsg) Encode() []byte {
	return append([]byte(nil), m.Commitment[:]...)
}

func decodeCommit(body []byte) (choreo.Message, error) {
	if len(body) != 32 {
		return nil, fmt.Errorf("journalsync: malformed commit body")
	}
	var m CommitMsg
	copy(m.Commitment[:], body)
	return m, nil
}

// RevealMsg opens a previously sent CommitMsg: the sender's actual head
// set and the nonce it committed under (spec §4.7 step 1).
type RevealMsg struct {
	Heads []aid.Hash32
	Nonce [32]byte
}

func (m RevealMsg) Tag() string { return TagReveal }

func (m RevealMsg) Encode() []byte {
	var buf []byte
	buf = protowire.AppendVarint(buf, uint64(len(m.Heads)))
	for _, h := range m.Heads {
		buf = protowire.AppendBytes(buf, h[:])
	}
	buf = protowire.AppendBytes(buf, m.Nonce[:])
	return buf
}

func decodeReveal(body []byte) (choreo.Message, error) {
	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("journalsync: malformed reveal head count")
	}
	body = body[n:]

	heads := make([]aid.Hash32, 0, count)
	for i := uint64(0); i < count; i++ {
		hb, n := protowire.ConsumeBytes(body)
		if n < 0 || len(hb) != 32 {
			return nil, fmt.Errorf("journalsync: malformed reveal head %d", i)
		}
		body = body[n:]
		var h aid.Hash32
		copy(h[:], hb)
		heads = append(heads, h)
	}

	nonceBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(nonceBytes) != 32 {
		return nil, fmt.Errorf("journalsync: malformed reveal nonce")
	}
	var m RevealMsg
	m.Heads = heads
	copy(m.Nonce[:], nonceBytes)
	return m, nil
}

// DeltaBatchMsg carries one bounded batch of fact entries absent from
// the recipient's revealed head set (spec §4.7 step 2), plus whether the
// sender has more entries queued beyond this batch.
type DeltaBatchMsg struct {
	Entries []syncx.DeltaEntry
	More    bool
}

func (m DeltaBatchMsg) Tag() string { return TagDelta }

func (m DeltaBatchMsg) Encode() []byte {
	var buf []byte
	buf = protowire.AppendVarint(buf, uint64(len(m.Entries)))
	for _, e := range m.Entries {
		buf = protowire.AppendString(buf, string(e.Key.Kind))
		buf = protowire.AppendBytes(buf, e.Key.Subject[:])
		buf = protowire.AppendBytes(buf, e.Value)
		buf = protowire.AppendBytes(buf, e.Hash[:])
	}
	more := uint64(0)
	if m.More {
		more = 1
	}
	buf = protowire.AppendVarint(buf, more)
	return buf
}

func decodeDelta(body []byte) (choreo.Message, error) {
	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("journalsync: malformed delta entry count")
	}
	body = body[n:]

	entries := make([]syncx.DeltaEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		kind, n := protowire.ConsumeString(body)
		if n < 0 {
			return nil, fmt.Errorf("journalsync: malformed delta %d kind", i)
		}
		body = body[n:]

		subjectBytes, n := protowire.ConsumeBytes(body)
		if n < 0 || len(subjectBytes) != 32 {
			return nil, fmt.Errorf("journalsync: malformed delta %d subject", i)
		}
		body = body[n:]
		var subject aid.ID256
		copy(subject[:], subjectBytes)

		value, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, fmt.Errorf("journalsync: malformed delta %d value", i)
		}
		body = body[n:]

		hashBytes, n := protowire.ConsumeBytes(body)
		if n < 0 || len(hashBytes) != 32 {
			return nil, fmt.Errorf("journalsync: malformed delta %d hash", i)
		}
		body = body[n:]
		var hash aid.Hash32
		copy(hash[:], hashBytes)

		entries = append(entries, syncx.DeltaEntry{
			Key:   journal.FactKey{Kind: journal.FactKind(kind), Subject: subject},
			Value: append([]byte(nil), value...),
			Hash:  hash,
		})
	}

	more, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("journalsync: malformed delta more flag")
	}

	return DeltaBatchMsg{Entries: entries, More: more != 0}, nil
}

// RegisterMessages installs this package's message decoders into
// registry, required before running a journal-sync round over an
// adapter built with it.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagCommit, decodeCommit)
	registry.Register(TagReveal, decodeReveal)
	registry.Register(TagDelta, decodeDelta)
}
