package consensus

import (
	"fmt"

	"filippo.io/edwards25519"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
)

// Wire tags for the five message kinds of the state machine (spec §4.6).
// Framing reuses choreo's tagged-envelope convention (choreo.EncodeEnvelope /
// choreo.MessageRegistry) even though the engine drives its own broadcast /
// collect loop directly over transport.Transport rather than a
// choreo.Adapter: consensus is an N-of-N collection protocol, not a
// sequential per-role script, but there is no reason to reinvent wire
// self-description for it.
const (
	TagExecute        = "consensus.execute"
	TagNonceCommit    = "consensus.nonce_commit"
	TagSignRequest    = "consensus.sign_request"
	TagSignShare      = "consensus.sign_share"
	TagConflictReport = "consensus.conflict_report"
	TagResult         = "consensus.result"
)

// ExecuteMsg is the coordinator's opening broadcast. A non-empty
// CachedCommitments enables the fast path (spec §4.6): witnesses that find
// their own identifier in the map skip straight to producing a SignShare.
type ExecuteMsg struct {
	ConsensusID       aid.ID256
	Coordinator       aid.DeviceId
	PrestateHash      aid.Hash32
	OperationHash     aid.Hash32
	OperationBytes    []byte
	CachedCommitments map[frost.Identifier]frost.NonceCommitment
}

func (m ExecuteMsg) Tag() string { return TagExecute }

func (m ExecuteMsg) Encode() []byte {
	var buf []byte
	buf = append(buf, m.ConsensusID[:]...)
	buf = append(buf, m.Coordinator[:]...)
	buf = append(buf, m.PrestateHash[:]...)
	buf = protowire.AppendBytes(buf, m.OperationHash[:])
	buf = protowire.AppendBytes(buf, m.OperationBytes)
	buf = protowire.AppendVarint(buf, uint64(len(m.CachedCommitments)))
	for id, c := range m.CachedCommitments {
		buf = append(buf, id[:]...)
		buf = append(buf, c.Bytes()...)
	}
	return buf
}

// RegisterMessages installs every message decoder this package defines
// into registry.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagExecute, decodeExecuteMsg)
	registry.Register(TagNonceCommit, decodeNonceCommit)
	registry.Register(TagSignRequest, decodeSignRequest)
	registry.Register(TagSignShare, decodeSignShare)
	registry.Register(TagConflictReport, decodeConflictReport)
	registry.Register(TagResult, decodeResult)
}

func decodeExecuteMsg(body []byte) (choreo.Message, error) {
	if len(body) < 96 {
		return nil, fmt.Errorf("consensus: malformed execute header")
	}
	var m ExecuteMsg
	copy(m.ConsensusID[:], body[:32])
	copy(m.Coordinator[:], body[32:64])
	copy(m.PrestateHash[:], body[64:96])
	body = body[96:]

	opHashBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(opHashBytes) != 32 {
		return nil, fmt.Errorf("consensus: malformed operation hash")
	}
	copy(m.OperationHash[:], opHashBytes)
	body = body[n:]

	opBytes, n := protowire.ConsumeBytes(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed operation bytes")
	}
	m.OperationBytes = append([]byte(nil), opBytes...)
	body = body[n:]

	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed cached commitment count")
	}
	body = body[n:]

	if count > 0 {
		m.CachedCommitments = make(map[frost.Identifier]frost.NonceCommitment, count)
	}
	for i := uint64(0); i < count; i++ {
		if len(body) < 32+64 {
			return nil, fmt.Errorf("consensus: truncated cached commitment %d", i)
		}
		var id frost.Identifier
		copy(id[:], body[:32])
		c, err := decodeCommitment(body[32 : 32+64])
		if err != nil {
			return nil, fmt.Errorf("consensus: cached commitment %d: %w", i, err)
		}
		m.CachedCommitments[id] = c
		body = body[96:]
	}
	return m, nil
}

func decodeCommitment(b []byte) (frost.NonceCommitment, error) {
	hiding, err := edwards25519.NewIdentityPoint().SetBytes(b[:32])
	if err != nil {
		return frost.NonceCommitment{}, fmt.Errorf("invalid hiding point: %w", err)
	}
	binding, err := edwards25519.NewIdentityPoint().SetBytes(b[32:64])
	if err != nil {
		return frost.NonceCommitment{}, fmt.Errorf("invalid binding point: %w", err)
	}
	return frost.NonceCommitment{Hiding: hiding, Binding: binding}, nil
}

// NonceCommitMsg is a witness's round-1 public commitment.
type NonceCommitMsg struct {
	ConsensusID aid.ID256
	Signer      frost.Identifier
	Commitment  frost.NonceCommitment
}

func (m NonceCommitMsg) Tag() string { return TagNonceCommit }

func (m NonceCommitMsg) Encode() []byte {
	var buf []byte
	buf = append(buf, m.ConsensusID[:]...)
	buf = append(buf, m.Signer[:]...)
	buf = append(buf, m.Commitment.Bytes()...)
	return buf
}

func decodeNonceCommit(body []byte) (choreo.Message, error) {
	if len(body) != 32+32+64 {
		return nil, fmt.Errorf("consensus: malformed nonce commit")
	}
	var m NonceCommitMsg
	copy(m.ConsensusID[:], body[:32])
	copy(m.Signer[:], body[32:64])
	c, err := decodeCommitment(body[64:])
	if err != nil {
		return nil, fmt.Errorf("consensus: nonce commit: %w", err)
	}
	m.Commitment = c
	return m, nil
}

// SignRequestMsg carries the aggregated round-1 commitments a witness signs
// against.
type SignRequestMsg struct {
	ConsensusID aid.ID256
	Commitments map[frost.Identifier]frost.NonceCommitment
}

func (m SignRequestMsg) Tag() string { return TagSignRequest }

func (m SignRequestMsg) Encode() []byte {
	var buf []byte
	buf = append(buf, m.ConsensusID[:]...)
	buf = protowire.AppendVarint(buf, uint64(len(m.Commitments)))
	for id, c := range m.Commitments {
		buf = append(buf, id[:]...)
		buf = append(buf, c.Bytes()...)
	}
	return buf
}

func decodeSignRequest(body []byte) (choreo.Message, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("consensus: malformed sign request header")
	}
	var m SignRequestMsg
	copy(m.ConsensusID[:], body[:32])
	body = body[32:]

	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed sign request count")
	}
	body = body[n:]

	m.Commitments = make(map[frost.Identifier]frost.NonceCommitment, count)
	for i := uint64(0); i < count; i++ {
		if len(body) < 96 {
			return nil, fmt.Errorf("consensus: truncated sign request commitment %d", i)
		}
		var id frost.Identifier
		copy(id[:], body[:32])
		c, err := decodeCommitment(body[32:96])
		if err != nil {
			return nil, fmt.Errorf("consensus: sign request commitment %d: %w", i, err)
		}
		m.Commitments[id] = c
		body = body[96:]
	}
	return m, nil
}

// SignShareMsg is a witness's round-2 contribution. NextCommitment is an
// opportunistically generated round-1 commitment for the *next* instance
// with this witness set, piggy-backed to enable the fast path (spec §4.6).
type SignShareMsg struct {
	ConsensusID    aid.ID256
	Share          frost.SignatureShare
	NextCommitment *frost.NonceCommitment
}

func (m SignShareMsg) Tag() string { return TagSignShare }

func (m SignShareMsg) Encode() []byte {
	var buf []byte
	buf = append(buf, m.ConsensusID[:]...)
	buf = append(buf, m.Share.Identifier[:]...)
	buf = append(buf, m.Share.Z.Bytes()...)
	if m.NextCommitment != nil {
		buf = append(buf, 1)
		buf = append(buf, m.NextCommitment.Bytes()...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodeSignShare(body []byte) (choreo.Message, error) {
	if len(body) < 32+32+32+1 {
		return nil, fmt.Errorf("consensus: malformed sign share")
	}
	var m SignShareMsg
	copy(m.ConsensusID[:], body[:32])
	copy(m.Share.Identifier[:], body[32:64])
	z, err := edwards25519.NewScalar().SetCanonicalBytes(body[64:96])
	if err != nil {
		return nil, fmt.Errorf("consensus: invalid share scalar: %w", err)
	}
	m.Share.Z = z
	body = body[96:]

	hasNext := body[0]
	body = body[1:]
	if hasNext == 1 {
		if len(body) < 64 {
			return nil, fmt.Errorf("consensus: truncated next commitment")
		}
		c, err := decodeCommitment(body[:64])
		if err != nil {
			return nil, fmt.Errorf("consensus: next commitment: %w", err)
		}
		m.NextCommitment = &c
	}
	return m, nil
}

// ConflictReportMsg is sent by a witness whose local prestate hash does not
// match the coordinator's Execute (spec §4.6 failure semantics).
type ConflictReportMsg struct {
	ConsensusID       aid.ID256
	Reporter          frost.Identifier
	LocalPrestateHash aid.Hash32
}

func (m ConflictReportMsg) Tag() string { return TagConflictReport }

func (m ConflictReportMsg) Encode() []byte {
	var buf []byte
	buf = append(buf, m.ConsensusID[:]...)
	buf = append(buf, m.Reporter[:]...)
	buf = append(buf, m.LocalPrestateHash[:]...)
	return buf
}

func decodeConflictReport(body []byte) (choreo.Message, error) {
	if len(body) != 96 {
		return nil, fmt.Errorf("consensus: malformed conflict report")
	}
	var m ConflictReportMsg
	copy(m.ConsensusID[:], body[:32])
	copy(m.Reporter[:], body[32:64])
	copy(m.LocalPrestateHash[:], body[64:96])
	return m, nil
}

// ResultMsg is the coordinator's terminal broadcast carrying the completed
// CommitFact (spec §4.6 step 6).
type ResultMsg struct {
	Fact FactWire
}

// FactWire is the wire encoding of a journal.CommitFact; kept separate from
// journal.CommitFact itself so this package does not need to know the
// journal's canonical-bytes layout, only its own framing.
type FactWire struct {
	ConsensusID        aid.ID256
	PrestateHash       aid.Hash32
	OperationHash      aid.Hash32
	OperationBytes     []byte
	ThresholdSignature []byte
	GroupPublicKey     []byte
	Participants       []aid.ID256
	Threshold          int
	FastPath           bool
	TimestampUnixMilli int64
}

func (m ResultMsg) Tag() string { return TagResult }

func (m ResultMsg) Encode() []byte {
	f := m.Fact
	var buf []byte
	buf = append(buf, f.ConsensusID[:]...)
	buf = append(buf, f.PrestateHash[:]...)
	buf = append(buf, f.OperationHash[:]...)
	buf = protowire.AppendBytes(buf, f.OperationBytes)
	buf = protowire.AppendBytes(buf, f.ThresholdSignature)
	buf = protowire.AppendBytes(buf, f.GroupPublicKey)
	buf = protowire.AppendVarint(buf, uint64(f.Threshold))
	buf = protowire.AppendVarint(buf, uint64(len(f.Participants)))
	for _, p := range f.Participants {
		buf = append(buf, p[:]...)
	}
	if f.FastPath {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = protowire.AppendVarint(buf, uint64(f.TimestampUnixMilli))
	return buf
}

func decodeResult(body []byte) (choreo.Message, error) {
	if len(body) < 96 {
		return nil, fmt.Errorf("consensus: malformed result header")
	}
	var f FactWire
	copy(f.ConsensusID[:], body[:32])
	copy(f.PrestateHash[:], body[32:64])
	copy(f.OperationHash[:], body[64:96])
	body = body[96:]

	var n int
	f.OperationBytes, n = consumeBytesCopy(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed operation bytes")
	}
	body = body[n:]

	f.ThresholdSignature, n = consumeBytesCopy(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed threshold signature")
	}
	body = body[n:]

	f.GroupPublicKey, n = consumeBytesCopy(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed group public key")
	}
	body = body[n:]

	threshold, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed threshold")
	}
	f.Threshold = int(threshold)
	body = body[n:]

	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed participant count")
	}
	body = body[n:]

	f.Participants = make([]aid.ID256, count)
	for i := range f.Participants {
		if len(body) < 32 {
			return nil, fmt.Errorf("consensus: truncated participant %d", i)
		}
		copy(f.Participants[i][:], body[:32])
		body = body[32:]
	}

	if len(body) < 1 {
		return nil, fmt.Errorf("consensus: missing fast_path flag")
	}
	f.FastPath = body[0] == 1
	body = body[1:]

	ts, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("consensus: malformed timestamp")
	}
	f.TimestampUnixMilli = int64(ts)

	return ResultMsg{Fact: f}, nil
}

func consumeBytesCopy(body []byte) ([]byte, int) {
	b, n := protowire.ConsumeBytes(body)
	if n < 0 {
		return nil, n
	}
	return append([]byte(nil), b...), n
}
