package journal

import "github.com/aura-network/aura/aid"

// Receipt is the signed record that a flow-budget charge occurred (spec §3),
// chained per (context, src) by `Prev` so each authority's receipt log is an
// append-only hash chain within an epoch.
type Receipt struct {
	Context   aid.ID256
	Src       aid.ID256
	Dst       aid.ID256
	Epoch     uint64
	Cost      uint64
	Nonce     uint64
	Prev      aid.Hash32
	Signature []byte
}

// Hash returns the content address used as the next receipt's Prev,
// implementing spec §8's receipt-chain property: receipt_n.prev =
// H(receipt_{n-1}).
func (r Receipt) Hash() aid.Hash32 {
	var nonceBuf, epochBuf, costBuf [8]byte
	putUint64(nonceBuf[:], r.Nonce)
	putUint64(epochBuf[:], r.Epoch)
	putUint64(costBuf[:], r.Cost)
	return aid.Hash("RECEIPT_V1",
		r.Context[:], r.Src[:], r.Dst[:],
		epochBuf[:], costBuf[:], nonceBuf[:], r.Prev[:], r.Signature,
	)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
