// Package aid defines Aura's opaque, content-derived identifiers.
//
// Every identifier type is a fixed-size, comparable array so it can be used
// as a map key and totally ordered without allocation. Identifiers are
// derived by hashing canonical material with blake3 under a domain tag, so
// that two nodes that independently compute the same logical identity land
// on the same bytes.
package aid

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size256 is the byte width of 256-bit identifiers.
const Size256 = 32

// Size128 is the byte width of 128-bit identifiers.
const Size128 = 16

// ID256 is a 256-bit opaque, totally ordered identifier.
type ID256 [Size256]byte

// ID128 is a 128-bit opaque, totally ordered identifier.
type ID128 [Size128]byte

// AuthorityId identifies a logical identity jointly owned by one or more devices.
type AuthorityId = ID256

// DeviceId identifies a single device within an authority.
type DeviceId = ID256

// ContextId identifies a flow-budget / capability context.
type ContextId = ID256

// SessionId identifies a running consensus or choreography instance.
type SessionId = ID256

// ChannelId identifies a rendezvous channel.
type ChannelId = ID256

// LeafId identifies a leaf in a ratchet tree.
type LeafId = ID128

// Empty256 is the zero-value 256-bit identifier.
var Empty256 = ID256{}

// Empty128 is the zero-value 128-bit identifier.
var Empty128 = ID128{}

func (id ID256) String() string {
	return hex.EncodeToString(id[:])
}

// Compare gives the total order over ID256 used throughout the journal and
// ratchet tree (sorted leaf commitments, sorted fact keys, etc.).
func (id ID256) Compare(other ID256) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsEmpty reports whether id is the zero value.
func (id ID256) IsEmpty() bool { return id == Empty256 }

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ID256) MarshalBinary() ([]byte, error) {
	out := make([]byte, Size256)
	copy(out, id[:])
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID256) UnmarshalBinary(data []byte) error {
	if len(data) != Size256 {
		return fmt.Errorf("aid: ID256 requires %d bytes, got %d", Size256, len(data))
	}
	copy(id[:], data)
	return nil
}

func (id ID128) String() string {
	return hex.EncodeToString(id[:])
}

// Compare gives the total order over ID128 used for ratchet-tree leaf sort.
func (id ID128) Compare(other ID128) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsEmpty reports whether id is the zero value.
func (id ID128) IsEmpty() bool { return id == Empty128 }

// Hash32 is a domain-separated blake3-256 hash, used throughout the journal
// and consensus engine for prestate/operation/commitment hashing.
type Hash32 = ID256

// Hash computes H(tag || parts...) with each part length-prefixed, so that
// concatenation ambiguity ("ab"+"c" vs "a"+"bc") cannot produce a collision
// across differently-shaped inputs.
func Hash(tag string, parts ...[]byte) Hash32 {
	h := blake3.New()
	writeLP(h, []byte(tag))
	for _, p := range parts {
		writeLP(h, p)
	}
	var out Hash32
	copy(out[:], h.Sum(nil)[:Size256])
	return out
}

func writeLP(h *blake3.Hasher, b []byte) {
	var lenBuf [8]byte
	n := uint64(len(b))
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * i))
	}
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(b)
}

// Derive computes a content-derived ID256 from domain-tagged material. Two
// authorities hashing the same canonical material obtain the same AuthorityId.
func Derive(tag string, parts ...[]byte) ID256 {
	return Hash(tag, parts...)
}

// Derive128 computes a content-derived ID128 (used for ratchet-tree LeafIds).
func Derive128(tag string, parts ...[]byte) ID128 {
	full := Hash(tag, parts...)
	var out ID128
	copy(out[:], full[:Size128])
	return out
}
