package guard

import (
	"context"

	"github.com/aura-network/aura/journal"
)

// FlowGuard is step 2: charges the declared message cost against the
// sender's flow budget for this context, obtaining a receipt (spec §4.4
// step 2). The receipt is attached to send for JournalCoupler and the
// caller to observe.
type FlowGuard struct {
	Journal *journal.Journal
}

func (g *FlowGuard) Apply(ctx context.Context, send *Send) error {
	receipt, err := g.Journal.ChargeFlow(send.Context, send.Self, send.Peer, send.Cost)
	if err != nil {
		return err
	}
	send.Receipt = receipt
	return nil
}
