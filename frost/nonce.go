package frost

import (
	"io"

	"filippo.io/edwards25519"
)

// Round1Commit generates a fresh (hiding, binding) nonce pair and its public
// commitment. The secret Nonces must never be reused across signing attempts
// and are held only by the witness that generated them, keyed by
// consensus_id in the engine's nonce cache (spec §4.6 witness role, step 2).
func Round1Commit(rng io.Reader) (Nonces, NonceCommitment, error) {
	hiding, err := randomScalar(rng)
	if err != nil {
		return Nonces{}, NonceCommitment{}, err
	}
	binding, err := randomScalar(rng)
	if err != nil {
		return Nonces{}, NonceCommitment{}, err
	}

	commitment := NonceCommitment{
		Hiding:  edwards25519.NewIdentityPoint().ScalarBaseMult(hiding),
		Binding: edwards25519.NewIdentityPoint().ScalarBaseMult(binding),
	}
	return Nonces{Hiding: hiding, Binding: binding}, commitment, nil
}

// bindingFactor computes rho_i = H("FROST_BINDING_V1" || i || commitments || message)
// for participant i, binding that signer's contribution to this exact set of
// commitments and message so that nonce commitments cannot be replayed
// across different signing contexts (the standard FROST binding factor).
func bindingFactor(id Identifier, commitments map[Identifier]NonceCommitment, message []byte) *edwards25519.Scalar {
	sorted := make([]Identifier, 0, len(commitments))
	for pid := range commitments {
		sorted = append(sorted, pid)
	}
	sortIdentifiers(sorted)

	var buf []byte
	buf = append(buf, id[:]...)
	for _, pid := range sorted {
		buf = append(buf, pid[:]...)
		buf = append(buf, commitments[pid].Bytes()...)
	}
	buf = append(buf, message...)

	h := hashToUniform("FROST_BINDING_V1", buf)
	s, err := edwards25519.NewScalar().SetUniformBytes(h)
	if err != nil {
		panic("frost: binding factor hash reduction failed: " + err.Error())
	}
	return s
}

func sortIdentifiers(ids []Identifier) {
	// Small N (witness sets are bounded by the authority's device count), so
	// insertion sort keeps this allocation-free and branch-predictable.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Compare(ids[j-1]) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
