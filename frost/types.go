// Package frost implements the FROST-Ed25519 threshold Schnorr signature
// scheme used by Aura's consensus engine to produce verifiable CommitFacts.
//
// Grounded on the teacher's threshold quorum package (threshold/*.go) for
// the participant/threshold shape, generalized from "vote counting" to
// "cryptographic share counting": a CommitFact verifies iff exactly
// `threshold` valid signature shares from distinct signers were aggregated
// against the matching group public key.
package frost

import (
	"crypto/rand"
	"fmt"
	"io"
	"sort"

	"filippo.io/edwards25519"

	"github.com/aura-network/aura/aid"
)

// Identifier names a participant (witness) in a FROST signing session. FROST
// requires identifiers to be non-zero scalars; Aura derives them from the
// participant's DeviceId.
type Identifier = aid.ID256

// GroupPublicKey is the aggregate public key of a threshold group.
type GroupPublicKey struct {
	Point *edwards25519.Point
}

// Bytes returns the canonical 32-byte encoding of the group public key.
func (k GroupPublicKey) Bytes() []byte {
	if k.Point == nil {
		return make([]byte, 32)
	}
	return k.Point.Bytes()
}

// KeyShare is a single participant's secret share of the group signing key,
// produced by CombineShares (or a resharing ceremony) and cached in
// keytree.KeyShareCache, tagged with the epoch it was produced in.
type KeyShare struct {
	Identifier Identifier
	Secret     *edwards25519.Scalar
	Public     *edwards25519.Point
	Epoch      uint64
}

// PublicKeyPackage binds every participant's public share to the group key,
// so any aggregator can verify individual signature shares (not just the
// final aggregate).
type PublicKeyPackage struct {
	Group        GroupPublicKey
	Participants map[Identifier]*edwards25519.Point
	Threshold    int
}

// SortedParticipants returns participant identifiers in ascending order, the
// order the Lagrange coefficients and the canonical CommitFact encoding use.
func (pkg PublicKeyPackage) SortedParticipants() []Identifier {
	ids := make([]Identifier, 0, len(pkg.Participants))
	for id := range pkg.Participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// Nonces are a signer's round-1 secret nonce pair (hiding, binding), held in
// memory only for the lifetime of one signing attempt. The scalars are not
// overwritten when the nonces are discarded.
type Nonces struct {
	Hiding  *edwards25519.Scalar
	Binding *edwards25519.Scalar
}

// NonceCommitment is the public commitment to a signer's round-1 nonces,
// broadcast in the consensus engine's NonceCommit phase (or piggy-backed on
// a SignShare message as `next_commitment` for the fast path).
type NonceCommitment struct {
	Hiding  *edwards25519.Point
	Binding *edwards25519.Point
}

// Bytes returns the 64-byte wire encoding (hiding || binding), the standard
// frost-ed25519 serialisation referenced by spec §6.
func (c NonceCommitment) Bytes() []byte {
	out := make([]byte, 64)
	copy(out[:32], c.Hiding.Bytes())
	copy(out[32:], c.Binding.Bytes())
	return out
}

// SignatureShare is a signer's round-2 contribution toward the aggregate
// signature.
type SignatureShare struct {
	Identifier Identifier
	Z          *edwards25519.Scalar
}

// Signature is a completed Ed25519-compatible Schnorr signature: (R, z) such
// that z*G = R + c*Y where c = H(R || Y || message).
type Signature struct {
	R *edwards25519.Point
	Z *edwards25519.Scalar
}

// Bytes returns the standard 64-byte Ed25519 signature encoding.
func (s Signature) Bytes() []byte {
	out := make([]byte, 64)
	copy(out[:32], s.R.Bytes())
	copy(out[32:], s.Z.Bytes())
	return out
}

func randomScalar(rng io.Reader) (*edwards25519.Scalar, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var buf [64]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return nil, fmt.Errorf("frost: read randomness: %w", err)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		return nil, fmt.Errorf("frost: derive scalar: %w", err)
	}
	return s, nil
}
