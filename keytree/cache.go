package keytree

import (
	"sync"

	"github.com/aura-network/aura/frost"
)

// KeyShareCache holds a device's FROST key share alongside the epoch it was
// produced in. A tree mutation bumps the tree's epoch; any cached share
// whose epoch no longer matches is stale and must not be used to sign
// (spec §4.1 step 3: "marks them stale; consumers must re-run DKG or
// resharing before signing in the new epoch").
type KeyShareCache struct {
	mu    sync.RWMutex
	tree  *Tree
	share frost.KeyShare
	group frost.GroupPublicKey
	valid bool
}

// NewKeyShareCache binds a cache to the tree whose epoch governs staleness.
func NewKeyShareCache(tree *Tree) *KeyShareCache {
	return &KeyShareCache{tree: tree}
}

// Install records a freshly produced key share (from DKG or resharing),
// tagged with the tree's epoch at the time it was produced.
func (c *KeyShareCache) Install(share frost.KeyShare, group frost.GroupPublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.share = share
	c.group = group
	c.valid = true
}

// Current returns the cached share if it is still valid for the tree's
// current epoch, or ok=false if the tree has moved on and the share is
// stale.
func (c *KeyShareCache) Current() (frost.KeyShare, frost.GroupPublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.share.Epoch != c.tree.Epoch() {
		return frost.KeyShare{}, frost.GroupPublicKey{}, false
	}
	return c.share, c.group, true
}

// Invalidate explicitly marks the cached share stale, used by a resharing
// ceremony that wants to force re-DKG even though the epoch field would
// otherwise still match (e.g. a detected key compromise).
func (c *KeyShareCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
