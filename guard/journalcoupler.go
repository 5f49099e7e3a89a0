package guard

import (
	"context"

	"github.com/aura-network/aura/journal"
)

// JournalCoupler is step 5: after a successful send, records the message's
// designated facts and/or join-merges a peer's remote snapshot into the
// local journal (spec §4.4 step 5). Facts must not be recorded if the send
// failed, which the chain's short-circuit already guarantees by
// construction.
type JournalCoupler struct {
	Journal *journal.Journal
}

func (g *JournalCoupler) Apply(ctx context.Context, send *Send) error {
	if send.JournalFacts != nil {
		g.Journal.MergeFacts(*send.JournalFacts)
	}
	if send.JournalRemote != nil {
		g.Journal.MergeRemote(*send.JournalRemote)
	}
	return nil
}
