// Package choreo implements the choreographic runtime of spec §4.5: an
// Adapter drives one multi-role protocol session as a deterministic
// sequence of send/recv/resolve_family/resolve_range/select_branch
// operations, wrapping every send in the guard chain and dispatching
// inbound bytes by wire tag.
//
// Grounded on the teacher's dynamic-dispatch-at-boundary shape in
// router.InboundHandler (HandleInbound(context.Context, Message) error,
// with Message itself a narrow interface rather than a closed sum type),
// generalized here into a tag -> decoder registry: each concrete protocol
// message type implements Message, and a session's MessageRegistry maps
// its wire tag back to a decoder, the "(a) sum type with discriminator"
// option, expressed in Go as a tagged union by registry.
package choreo

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is one self-describing choreography payload. Concrete protocol
// message types (DKG round messages, resharing shares, sync deltas, ...)
// implement this directly.
type Message interface {
	// Tag names the message's wire type, used to pick its decoder on
	// the receiving adapter.
	Tag() string
	// Encode serialises the message body, excluding the tag.
	Encode() []byte
}

// Decoder parses a message body (tag already stripped) back into its
// concrete Message type.
type Decoder func(body []byte) (Message, error)

// MessageRegistry maps wire tags to decoders, one per choreography
// session: a protocol registers every message type it sends or receives
// before the session starts.
type MessageRegistry struct {
	decoders map[string]Decoder
}

// NewMessageRegistry returns an empty registry.
func NewMessageRegistry() *MessageRegistry {
	return &MessageRegistry{decoders: make(map[string]Decoder)}
}

// Register installs the decoder for tag, replacing any prior one.
func (r *MessageRegistry) Register(tag string, decode Decoder) {
	r.decoders[tag] = decode
}

// EncodeEnvelope frames msg for the wire: its tag as a length-prefixed
// string followed by its encoded body as a length-prefixed byte string.
func EncodeEnvelope(msg Message) []byte {
	var buf []byte
	buf = protowire.AppendString(buf, msg.Tag())
	buf = protowire.AppendBytes(buf, msg.Encode())
	return buf
}

// DecodeEnvelope splits wire bytes into tag and body and dispatches to
// the registered decoder for that tag.
func (r *MessageRegistry) DecodeEnvelope(wire []byte) (Message, error) {
	tag, n := protowire.ConsumeString(wire)
	if n < 0 {
		return nil, fmt.Errorf("choreo: malformed envelope tag")
	}
	wire = wire[n:]

	body, n := protowire.ConsumeBytes(wire)
	if n < 0 {
		return nil, fmt.Errorf("choreo: malformed envelope body")
	}

	decode, ok := r.decoders[tag]
	if !ok {
		return nil, fmt.Errorf("choreo: unregistered message tag %q", tag)
	}
	return decode(body)
}
