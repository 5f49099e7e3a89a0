package resharing

import (
	"fmt"

	"filippo.io/edwards25519"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
)

// TagDeal is the wire tag for DealMessage.
const TagDeal = "resharing.deal"

// DealMessage is one old-quorum dealer's sub-dealing of its existing
// share to one new-committee recipient: the dealer's Feldman commitments
// to its sub-polynomial (identical across recipients) and the
// recipient-specific sub-share.
type DealMessage struct {
	Dealer      frost.Identifier
	Commitments []*edwards25519.Point
	Share       *edwards25519.Scalar
}

func (m DealMessage) Tag() string { return TagDeal }

func (m DealMessage) Encode() []byte {
	dealerBytes, _ := m.Dealer.MarshalBinary()

	var buf []byte
	buf = protowire.AppendBytes(buf, dealerBytes)
	buf = protowire.AppendVarint(buf, uint64(len(m.Commitments)))
	for _, c := range m.Commitments {
		buf = protowire.AppendBytes(buf, c.Bytes())
	}
	buf = protowire.AppendBytes(buf, m.Share.Bytes())
	return buf
}

// DecodeDeal parses a DealMessage body, registered against TagDeal.
func DecodeDeal(body []byte) (choreo.Message, error) {
	dealerBytes, n := protowire.ConsumeBytes(body)
	if n < 0 {
		return nil, fmt.Errorf("resharing: malformed dealer id")
	}
	body = body[n:]

	var dealer frost.Identifier
	if err := dealer.UnmarshalBinary(dealerBytes); err != nil {
		return nil, fmt.Errorf("resharing: decode dealer id: %w", err)
	}

	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("resharing: malformed commitment count")
	}
	body = body[n:]

	commitments := make([]*edwards25519.Point, 0, count)
	for i := uint64(0); i < count; i++ {
		cb, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, fmt.Errorf("resharing: malformed commitment %d", i)
		}
		body = body[n:]
		p, err := edwards25519.NewIdentityPoint().SetBytes(cb)
		if err != nil {
			return nil, fmt.Errorf("resharing: invalid commitment point %d: %w", i, err)
		}
		commitments = append(commitments, p)
	}

	shareBytes, n := protowire.ConsumeBytes(body)
	if n < 0 {
		return nil, fmt.Errorf("resharing: malformed share")
	}
	share, err := edwards25519.NewScalar().SetCanonicalBytes(shareBytes)
	if err != nil {
		return nil, fmt.Errorf("resharing: invalid share scalar: %w", err)
	}

	return DealMessage{Dealer: dealer, Commitments: commitments, Share: share}, nil
}

// RegisterMessages installs this package's message decoder into
// registry, required before running a resharing ceremony over an
// adapter built with it.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagDeal, DecodeDeal)
}
