package consensus

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"filippo.io/edwards25519"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/frost"
)

type cryptoRandReader struct{}

func (cryptoRandReader) Read(p []byte) (int, error) { return io.ReadFull(rand.Reader, p) }

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// sortIdentifiers sorts ids ascending, the canonical participant order
// journal.CommitFact.CanonicalBytes requires.
func sortIdentifiers(ids []aid.ID256) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Compare(ids[j-1]) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func decodePoint(b []byte) (*edwards25519.Point, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("consensus: group public key must be 32 bytes, got %d", len(b))
	}
	return edwards25519.NewIdentityPoint().SetBytes(b)
}

func decodeSignature(b []byte) (frost.Signature, error) {
	if len(b) != 64 {
		return frost.Signature{}, fmt.Errorf("consensus: signature must be 64 bytes, got %d", len(b))
	}
	r, err := edwards25519.NewIdentityPoint().SetBytes(b[:32])
	if err != nil {
		return frost.Signature{}, fmt.Errorf("consensus: invalid R point: %w", err)
	}
	z, err := edwards25519.NewScalar().SetCanonicalBytes(b[32:])
	if err != nil {
		return frost.Signature{}, fmt.Errorf("consensus: invalid z scalar: %w", err)
	}
	return frost.Signature{R: r, Z: z}, nil
}
