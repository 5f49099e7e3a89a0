package frost

import "github.com/zeebo/blake3"

// hashToUniform returns 64 bytes of domain-separated output suitable for
// edwards25519.Scalar.SetUniformBytes, which requires a wide (>=32, ideally
// 64 byte) uniformly random input to reduce without bias.
func hashToUniform(tag string, data []byte) []byte {
	h := blake3.New()
	_, _ = h.Write([]byte(tag))
	_, _ = h.Write(data)
	out := make([]byte, 64)
	_, _ = h.Digest().Read(out)
	return out
}

// challenge computes the Schnorr challenge c = H("FROST_CHALLENGE_V1" || R || Y || message).
func challenge(r, y []byte, message []byte) []byte {
	buf := make([]byte, 0, len(r)+len(y)+len(message))
	buf = append(buf, r...)
	buf = append(buf, y...)
	buf = append(buf, message...)
	return hashToUniform("FROST_CHALLENGE_V1", buf)
}
