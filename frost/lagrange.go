package frost

import (
	"github.com/cronokirby/saferith"
	"filippo.io/edwards25519"
)

// groupOrderBytes is the little-endian encoding of the Ed25519 scalar field
// order L = 2^252 + 27742317777372353535851937790883648493, reversed to
// big-endian for saferith.ModulusFromBytes (which expects big-endian).
var groupOrderBytes = []byte{
	0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x14, 0xde, 0xf9, 0xde, 0xa2, 0xf7, 0x9c, 0xd6,
	0x58, 0x12, 0x63, 0x1a, 0x5c, 0xf5, 0xd3, 0xed,
}

var groupOrder = saferith.ModulusFromBytes(groupOrderBytes)

// LagrangeCoefficient exports lagrangeCoefficient for callers outside the
// package that need to re-weight an existing share by its interpolation
// coefficient, e.g. a proactive resharing ceremony collapsing an old
// share into a sub-dealing secret (protocols/resharing).
func LagrangeCoefficient(id Identifier, all []Identifier) *edwards25519.Scalar {
	return lagrangeCoefficient(id, all)
}

// lagrangeCoefficient computes the Lagrange coefficient lambda_i for
// participant `id` interpolating at x=0 over the participant set `all`,
// using saferith's constant-time modular arithmetic over the Ed25519 scalar
// field. This is the same quantity the FROST signer multiplies its signing
// share by before combining additively into the aggregate signature.
func lagrangeCoefficient(id Identifier, all []Identifier) *edwards25519.Scalar {
	numerator := new(saferith.Nat).SetUint64(1)
	denominator := new(saferith.Nat).SetUint64(1)

	xi := identifierToNat(id)

	for _, other := range all {
		if other == id {
			continue
		}
		xj := identifierToNat(other)

		// numerator *= x_j
		numerator = new(saferith.Nat).ModMul(numerator, xj, groupOrder)

		// denominator *= (x_j - x_i)  (mod L)
		diff := new(saferith.Nat).ModSub(xj, xi, groupOrder)
		denominator = new(saferith.Nat).ModMul(denominator, diff, groupOrder)
	}

	denomInv := new(saferith.Nat).ModInverse(denominator, groupOrder)
	lambda := new(saferith.Nat).ModMul(numerator, denomInv, groupOrder)

	return natToScalar(lambda)
}

// identifierToNat maps a 256-bit Aura identifier onto a nonzero element of
// the Ed25519 scalar field. FROST identifiers must be nonzero; Aura avoids
// the zero identifier by construction (aid.Derive never returns the all-zero
// value for non-degenerate input, and the empty identifier is reserved).
func identifierToNat(id Identifier) *saferith.Nat {
	n := new(saferith.Nat).SetBytes(reverse(id[:]))
	return n.Mod(groupOrder)
}

func natToScalar(n *saferith.Nat) *edwards25519.Scalar {
	be := n.Bytes()
	le := make([]byte, 32)
	// saferith.Nat.Bytes is big-endian and may be shorter than 32 bytes;
	// right-align then reverse into the little-endian encoding edwards25519
	// scalars use.
	copy(le[32-len(be):], be)
	reverseInPlace(le)
	s, err := edwards25519.NewScalar().SetCanonicalBytes(le)
	if err != nil {
		// Reduction above guarantees a canonical field element; a failure
		// here indicates a lagrangeCoefficient arithmetic bug, not bad input.
		panic("frost: lagrange coefficient produced non-canonical scalar: " + err.Error())
	}
	return s
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
