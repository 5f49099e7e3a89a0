package frost

import (
	"fmt"

	"filippo.io/edwards25519"
)

// groupCommitment computes R = sum_i (D_i + rho_i * E_i) over the
// participating signers, where D_i/E_i are the hiding/binding commitments
// and rho_i is that signer's binding factor.
func groupCommitment(commitments map[Identifier]NonceCommitment, message []byte) *edwards25519.Point {
	r := edwards25519.NewIdentityPoint()
	for id, c := range commitments {
		rho := bindingFactor(id, commitments, message)
		term := edwards25519.NewIdentityPoint().ScalarMult(rho, c.Binding)
		term.Add(term, c.Hiding)
		r.Add(r, term)
	}
	return r
}

// SignShare produces witness role step 3 of spec §4.6: a round-2 FROST
// signature share against the aggregated nonce commitments of `commitments`.
// `nonces` are the signer's own round-1 secrets generated by Round1Commit and
// must be discarded by the caller immediately after this call returns
// (FROST nonces are single-use; reuse leaks the secret key share).
func SignShare(share KeyShare, nonces Nonces, commitments map[Identifier]NonceCommitment, pkg PublicKeyPackage, message []byte) (SignatureShare, error) {
	if _, ok := commitments[share.Identifier]; !ok {
		return SignatureShare{}, fmt.Errorf("frost: signer %s has no nonce commitment in this round", share.Identifier)
	}

	r := groupCommitment(commitments, message)
	c := edwards25519.NewScalar()
	if _, err := c.SetUniformBytes(challenge(r.Bytes(), pkg.Group.Bytes(), message)); err != nil {
		return SignatureShare{}, fmt.Errorf("frost: challenge reduction: %w", err)
	}

	rho := bindingFactor(share.Identifier, commitments, message)
	lambda := lagrangeCoefficient(share.Identifier, participantsOf(commitments))

	// z_i = hiding_nonce + (binding_nonce * rho_i) + lambda_i * c * secret_i
	z := edwards25519.NewScalar().Multiply(nonces.Binding, rho)
	z.Add(z, nonces.Hiding)

	lc := edwards25519.NewScalar().Multiply(lambda, c)
	lc.Multiply(lc, share.Secret)
	z.Add(z, lc)

	return SignatureShare{Identifier: share.Identifier, Z: z}, nil
}

// VerifyShare checks a single signature share against the signer's known
// public key share, letting the coordinator attribute a failed aggregation
// to a specific byzantine-suspect witness (spec §4.6 failure semantics).
func VerifyShare(share SignatureShare, commitments map[Identifier]NonceCommitment, participantPublic *edwards25519.Point, pkg PublicKeyPackage, message []byte) bool {
	c, ok := commitments[share.Identifier]
	if !ok {
		return false
	}
	r := groupCommitment(commitments, message)
	challengeScalar := edwards25519.NewScalar()
	if _, err := challengeScalar.SetUniformBytes(challenge(r.Bytes(), pkg.Group.Bytes(), message)); err != nil {
		return false
	}
	rho := bindingFactor(share.Identifier, commitments, message)
	lambda := lagrangeCoefficient(share.Identifier, participantsOf(commitments))

	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(share.Z)

	rhs := edwards25519.NewIdentityPoint().ScalarMult(rho, c.Binding)
	rhs.Add(rhs, c.Hiding)

	lc := edwards25519.NewScalar().Multiply(lambda, challengeScalar)
	term := edwards25519.NewIdentityPoint().ScalarMult(lc, participantPublic)
	rhs.Add(rhs, term)

	return lhs.Equal(rhs) == 1
}

func participantsOf(commitments map[Identifier]NonceCommitment) []Identifier {
	out := make([]Identifier, 0, len(commitments))
	for id := range commitments {
		out = append(out, id)
	}
	return out
}
