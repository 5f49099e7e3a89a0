package recovery

import (
	"sync"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

// DefaultGuardianCooldown is the minimum interval between two successful
// recoveries of the same device by the same guardian set, matching
// spec §8 scenario 4's "cooldown 24 h".
const DefaultGuardianCooldown = 24 * time.Hour

type cooldownKey struct {
	device aid.AuthorityId
	set    aid.Hash32
}

// CooldownTracker enforces spec §4.8's "guardian cooldown forbids
// repeated recovery with the same guardian set within the configured
// interval", reading wall-clock time through effects.Time so tests are
// deterministic under a frozen clock.
type CooldownTracker struct {
	interval time.Duration
	clock    effects.Time

	mu   sync.Mutex
	last map[cooldownKey]time.Time
}

// NewCooldownTracker returns a tracker enforcing interval between
// successful recoveries of the same (device, guardian set) pair.
func NewCooldownTracker(interval time.Duration, clock effects.Time) *CooldownTracker {
	return &CooldownTracker{interval: interval, clock: clock, last: make(map[cooldownKey]time.Time)}
}

// InCooldown reports whether device may not yet start a new recovery
// under set.
func (c *CooldownTracker) InCooldown(device aid.AuthorityId, set GuardianSet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.last[cooldownKey{device: device, set: set.Hash()}]
	if !ok {
		return false
	}
	return c.clock.Now().Before(last.Add(c.interval))
}

// Record marks a successful recovery of device under set as having just
// completed, starting a fresh cooldown window.
func (c *CooldownTracker) Record(device aid.AuthorityId, set GuardianSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[cooldownKey{device: device, set: set.Hash()}] = c.clock.Now()
}
