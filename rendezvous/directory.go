package rendezvous

import (
	"sync"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

// Directory is a local replica of published descriptors, keyed by
// location hash then publishing authority, so resolution never needs to
// scan every descriptor this replica has ever seen. A real deployment
// gossips entries between replicas over syncx/transport; Directory
// itself is transport-agnostic storage plus validity filtering.
type Directory struct {
	clock effects.Time

	mu      sync.Mutex
	entries map[aid.Hash32]map[aid.AuthorityId]Descriptor
}

// NewDirectory returns an empty directory reading wall-clock time
// through clock.
func NewDirectory(clock effects.Time) *Directory {
	return &Directory{clock: clock, entries: make(map[aid.Hash32]map[aid.AuthorityId]Descriptor)}
}

// Publish stores d at the location its context derives to, replacing
// any prior descriptor this authority published there.
func (d *Directory) Publish(desc Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	loc := DeriveLocation(desc.ContextID)

	d.mu.Lock()
	defer d.mu.Unlock()
	byAuthority, ok := d.entries[loc]
	if !ok {
		byAuthority = make(map[aid.AuthorityId]Descriptor)
		d.entries[loc] = byAuthority
	}
	byAuthority[desc.AuthorityID] = desc
	return nil
}

// Resolve returns the descriptor authority published under context, if
// any and still within its validity window.
func (d *Directory) Resolve(contextID aid.ContextId, authority aid.AuthorityId) (Descriptor, error) {
	loc := DeriveLocation(contextID)

	d.mu.Lock()
	defer d.mu.Unlock()
	byAuthority, ok := d.entries[loc]
	if !ok {
		return Descriptor{}, ErrNotFound
	}
	desc, ok := byAuthority[authority]
	if !ok {
		return Descriptor{}, ErrNotFound
	}
	if !desc.ValidAt(d.clock.Now()) {
		return Descriptor{}, ErrExpired
	}
	return desc, nil
}

// ResolveAll returns every still-valid descriptor published under
// context, across all publishing authorities — the shape a three-party
// relay lookup needs when the recovering peer doesn't yet know which
// authority to address.
func (d *Directory) ResolveAll(contextID aid.ContextId) []Descriptor {
	loc := DeriveLocation(contextID)

	d.mu.Lock()
	defer d.mu.Unlock()
	byAuthority, ok := d.entries[loc]
	if !ok {
		return nil
	}

	now := d.clock.Now()
	out := make([]Descriptor, 0, len(byAuthority))
	for _, desc := range byAuthority {
		if desc.ValidAt(now) {
			out = append(out, desc)
		}
	}
	return out
}
