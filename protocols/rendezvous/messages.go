package rendezvous

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	domain "github.com/aura-network/aura/rendezvous"
)

const (
	TagOffer     = "rendezvous.offer"
	TagAnswer    = "rendezvous.answer"
	TagHandshake = "rendezvous.handshake"
	TagComplete  = "rendezvous.complete"
)

func encodeDescriptor(buf []byte, d domain.Descriptor) []byte {
	buf = protowire.AppendBytes(buf, d.AuthorityID[:])
	buf = protowire.AppendBytes(buf, d.ContextID[:])
	buf = protowire.AppendVarint(buf, uint64(len(d.TransportHints)))
	for _, h := range d.TransportHints {
		buf = protowire.AppendString(buf, h)
	}
	buf = protowire.AppendBytes(buf, d.PSKCommitment[:])
	buf = protowire.AppendVarint(buf, uint64(d.ValidFrom.UnixNano()))
	buf = protowire.AppendVarint(buf, uint64(d.ValidUntil.UnixNano()))
	buf = protowire.AppendBytes(buf, d.Nonce[:])
	buf = protowire.AppendString(buf, d.Nickname)
	return buf
}

func decodeDescriptor(body []byte) (domain.Descriptor, []byte, error) {
	var d domain.Descriptor

	authorityBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(authorityBytes) != 32 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor authority")
	}
	body = body[n:]
	copy(d.AuthorityID[:], authorityBytes)

	contextBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(contextBytes) != 32 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor context")
	}
	body = body[n:]
	copy(d.ContextID[:], contextBytes)

	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor hint count")
	}
	body = body[n:]
	hints := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		h, n := protowire.ConsumeString(body)
		if n < 0 {
			return d, nil, fmt.Errorf("rendezvous: malformed descriptor hint %d", i)
		}
		body = body[n:]
		hints = append(hints, h)
	}
	d.TransportHints = hints

	pskBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(pskBytes) != 32 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor psk commitment")
	}
	body = body[n:]
	copy(d.PSKCommitment[:], pskBytes)

	validFrom, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor valid_from")
	}
	body = body[n:]
	d.ValidFrom = time.Unix(0, int64(validFrom))

	validUntil, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor valid_until")
	}
	body = body[n:]
	d.ValidUntil = time.Unix(0, int64(validUntil))

	nonceBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(nonceBytes) != 32 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor nonce")
	}
	body = body[n:]
	copy(d.Nonce[:], nonceBytes)

	nickname, n := protowire.ConsumeString(body)
	if n < 0 {
		return d, nil, fmt.Errorf("rendezvous: malformed descriptor nickname")
	}
	body = body[n:]
	d.Nickname = nickname

	return d, body, nil
}

// OfferMsg is the initiator's first message: its own descriptor, so the
// responder knows how to reach it.
type OfferMsg struct {
	Descriptor domain.Descriptor
}

func (m OfferMsg) Tag() string    { return TagOffer }
func (m OfferMsg) Encode() []byte { return encodeDescriptor(nil, m.Descriptor) }

func decodeOffer(body []byte) (choreo.Message, error) {
	d, _, err := decodeDescriptor(body)
	if err != nil {
		return nil, err
	}
	return OfferMsg{Descriptor: d}, nil
}

// AnswerMsg is the responder's reply: its own descriptor.
type AnswerMsg struct {
	Descriptor domain.Descriptor
}

func (m AnswerMsg) Tag() string    { return TagAnswer }
func (m AnswerMsg) Encode() []byte { return encodeDescriptor(nil, m.Descriptor) }

func decodeAnswer(body []byte) (choreo.Message, error) {
	d, _, err := decodeDescriptor(body)
	if err != nil {
		return nil, err
	}
	return AnswerMsg{Descriptor: d}, nil
}

// HandshakeInitMsg carries the initiator's proof of PSK knowledge over a
// freshly chosen nonce.
type HandshakeInitMsg struct {
	Nonce [32]byte
	Proof aid.Hash32
}

func (m HandshakeInitMsg) Tag() string { return TagHandshake }

func (m HandshakeInitMsg) Encode() []byte {
	var buf []byte
	buf = protowire.AppendBytes(buf, m.Nonce[:])
	buf = protowire.AppendBytes(buf, m.Proof[:])
	return buf
}

func decodeHandshake(body []byte) (choreo.Message, error) {
	nonceBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(nonceBytes) != 32 {
		return nil, fmt.Errorf("rendezvous: malformed handshake nonce")
	}
	body = body[n:]
	proofBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(proofBytes) != 32 {
		return nil, fmt.Errorf("rendezvous: malformed handshake proof")
	}
	var m HandshakeInitMsg
	copy(m.Nonce[:], nonceBytes)
	copy(m.Proof[:], proofBytes)
	return m, nil
}

// CompleteMsg is the responder's closing proof of PSK knowledge,
// finalizing the channel bring-up.
type CompleteMsg struct {
	Nonce [32]byte
	Proof aid.Hash32
}

func (m CompleteMsg) Tag() string { return TagComplete }

func (m CompleteMsg) Encode() []byte {
	var buf []byte
	buf = protowire.AppendBytes(buf, m.Nonce[:])
	buf = protowire.AppendBytes(buf, m.Proof[:])
	return buf
}

func decodeComplete(body []byte) (choreo.Message, error) {
	nonceBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(nonceBytes) != 32 {
		return nil, fmt.Errorf("rendezvous: malformed complete nonce")
	}
	body = body[n:]
	proofBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(proofBytes) != 32 {
		return nil, fmt.Errorf("rendezvous: malformed complete proof")
	}
	var m CompleteMsg
	copy(m.Nonce[:], nonceBytes)
	copy(m.Proof[:], proofBytes)
	return m, nil
}

// RegisterMessages installs this package's message decoders into
// registry, required before running a rendezvous bring-up (direct or
// relayed) over an adapter built with it.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagOffer, decodeOffer)
	registry.Register(TagAnswer, decodeAnswer)
	registry.Register(TagHandshake, decodeHandshake)
	registry.Register(TagComplete, decodeComplete)
}
