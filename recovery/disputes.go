package recovery

import (
	"sync"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

// DefaultDisputeWindow is the interval during which a guardian-approved
// recovery may be contested before it is finalized (spec §4.8: "dispute
// window (default 48 h)").
const DefaultDisputeWindow = 48 * time.Hour

// PendingDispute tracks one threshold-approved request awaiting the
// expiry of its dispute window.
type PendingDispute struct {
	ApprovedAt time.Time
	Window     time.Duration
	Objectors  map[aid.AuthorityId]struct{}
}

// DisputeLog records objections raised against pending recoveries and
// decides when they are safe to finalize.
type DisputeLog struct {
	clock effects.Time

	mu      sync.Mutex
	pending map[aid.Hash32]*PendingDispute
}

// NewDisputeLog returns an empty log reading time through clock.
func NewDisputeLog(clock effects.Time) *DisputeLog {
	return &DisputeLog{clock: clock, pending: make(map[aid.Hash32]*PendingDispute)}
}

// Open starts the dispute window for requestHash, approved at the
// current time.
func (d *DisputeLog) Open(requestHash aid.Hash32, window time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[requestHash] = &PendingDispute{
		ApprovedAt: d.clock.Now(),
		Window:     window,
		Objectors:  make(map[aid.AuthorityId]struct{}),
	}
}

// Object records guardian's objection to requestHash's approval.
func (d *DisputeLog) Object(requestHash aid.Hash32, guardian aid.AuthorityId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[requestHash]
	if !ok {
		return ErrUnknownRequest
	}
	p.Objectors[guardian] = struct{}{}
	return nil
}

// Finalize reports whether requestHash's dispute window has elapsed
// with no recorded objections, and removes it from the log either way
// (a disputed request must be resubmitted, not retried in place).
func (d *DisputeLog) Finalize(requestHash aid.Hash32) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[requestHash]
	if !ok {
		return false, ErrUnknownRequest
	}
	delete(d.pending, requestHash)

	if len(p.Objectors) > 0 {
		return false, nil
	}
	return !d.clock.Now().Before(p.ApprovedAt.Add(p.Window)), nil
}
