package frost

import (
	"fmt"

	"filippo.io/edwards25519"
)

// Aggregate combines exactly `threshold` SignatureShares from distinct
// signers into a final Ed25519-compatible Signature, implementing the
// soundness property of spec §8: the result verifies iff exactly threshold
// valid shares from distinct witnesses were aggregated with the matching
// group public key.
func Aggregate(commitments map[Identifier]NonceCommitment, shares []SignatureShare, pkg PublicKeyPackage, message []byte) (Signature, error) {
	if len(shares) != pkg.Threshold {
		return Signature{}, fmt.Errorf("frost: %d shares, want exactly threshold %d", len(shares), pkg.Threshold)
	}

	seen := make(map[Identifier]struct{}, len(shares))
	z := edwards25519.NewScalar()
	for _, share := range shares {
		if _, dup := seen[share.Identifier]; dup {
			return Signature{}, fmt.Errorf("frost: duplicate signature share from %s", share.Identifier)
		}
		seen[share.Identifier] = struct{}{}

		pub, ok := pkg.Participants[share.Identifier]
		if !ok {
			return Signature{}, fmt.Errorf("frost: unknown signer %s", share.Identifier)
		}
		if !VerifyShare(share, commitments, pub, pkg, message) {
			return Signature{}, fmt.Errorf("frost: invalid signature share from %s", share.Identifier)
		}
		z.Add(z, share.Z)
	}

	r := groupCommitment(commitments, message)
	sig := Signature{R: r, Z: z}
	if !Verify(pkg.Group, message, sig) {
		return Signature{}, fmt.Errorf("frost: aggregated signature failed verification")
	}
	return sig, nil
}

// Verify checks a completed signature against the group public key: the
// single entry point the journal uses to validate a CommitFact's
// threshold_signature field before merging it.
func Verify(group GroupPublicKey, message []byte, sig Signature) bool {
	if sig.R == nil || sig.Z == nil || group.Point == nil {
		return false
	}
	c := edwards25519.NewScalar()
	if _, err := c.SetUniformBytes(challenge(sig.R.Bytes(), group.Bytes(), message)); err != nil {
		return false
	}

	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(sig.Z)

	rhs := edwards25519.NewIdentityPoint().ScalarMult(c, group.Point)
	rhs.Add(rhs, sig.R)

	return lhs.Equal(rhs) == 1
}
