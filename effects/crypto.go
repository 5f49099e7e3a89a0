package effects

import "github.com/aura-network/aura/frost"

// randomReader adapts a Random effect to io.Reader so it can feed
// frost.Round1Commit, letting the testing/simulation variants produce
// deterministic nonces from their seeded Random instead of crypto/rand.
type randomReader struct{ r Random }

func (rr randomReader) Read(p []byte) (int, error) {
	rr.r.Bytes(p)
	return len(p), nil
}

// seededCrypto is the testing/simulation Crypto effect: identical FROST
// math to production, but every call to Round1Commit draws from the
// effect's own Random rather than crypto/rand, so a fixed seed replays
// the same nonces and therefore the same transcript.
type seededCrypto struct {
	random Random
}

// NewSeededCrypto returns a Crypto effect whose randomness is drawn from
// random, used by the testing and simulation variants.
func NewSeededCrypto(random Random) Crypto {
	return seededCrypto{random: random}
}

func (c seededCrypto) Round1Commit() (frost.Nonces, frost.NonceCommitment, error) {
	return frost.Round1Commit(randomReader{c.random})
}

func (seededCrypto) SignShare(share frost.KeyShare, nonces frost.Nonces, commitments map[frost.Identifier]frost.NonceCommitment, pkg frost.PublicKeyPackage, message []byte) (frost.SignatureShare, error) {
	return frost.SignShare(share, nonces, commitments, pkg, message)
}

func (seededCrypto) Aggregate(commitments map[frost.Identifier]frost.NonceCommitment, shares []frost.SignatureShare, pkg frost.PublicKeyPackage, message []byte) (frost.Signature, error) {
	return frost.Aggregate(commitments, shares, pkg, message)
}

func (seededCrypto) Verify(group frost.GroupPublicKey, message []byte, sig frost.Signature) bool {
	return frost.Verify(group, message, sig)
}
