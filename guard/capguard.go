package guard

import (
	"context"
	"fmt"

	"github.com/aura-network/aura/journal"
)

// CapGuard is step 1: asserts the local authority holds a capability
// covering the named operation (spec §4.4 step 1). Grants are keyed by
// (subject, action) only; the send's Context is not consulted.
type CapGuard struct {
	Journal *journal.Journal
}

func (g *CapGuard) Apply(ctx context.Context, send *Send) error {
	if !g.Journal.Caps().Allows(send.Self, send.Action) {
		return fmt.Errorf("%w: %s lacks %q", ErrAuthorizationDenied, send.Self, send.Action)
	}
	return nil
}
