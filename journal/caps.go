package journal

import (
	"sort"

	"github.com/aura-network/aura/aid"
)

// Action is a single permitted operation tag (e.g. "journal.write",
// "consensus.initiate", "recovery.approve").
type Action string

// Grant is one (subject, action) permission. A Caps lattice node is a set of
// Grants; refinement (a <= b) means b's grant set is a superset of a's.
type Grant struct {
	Subject aid.ID256
	Action  Action
}

// Caps is the capability lattice ordered by refinement: `a <= b` iff b
// permits at least everything a does. The bottom element is the empty set
// (no permissions); join is set union (the least permissive superset of
// both), matching spec §3's "merge is join (least upper bound)".
type Caps struct {
	grants map[Grant]struct{}
}

// NewCaps returns the bottom element (no grants).
func NewCaps() Caps {
	return Caps{grants: make(map[Grant]struct{})}
}

// CapsFrom builds a Caps node from an explicit grant list, the shape a
// signed grant fact decodes into before being joined into the journal.
func CapsFrom(grants ...Grant) Caps {
	c := NewCaps()
	for _, g := range grants {
		c.grants[g] = struct{}{}
	}
	return c
}

// Allows reports whether subject is permitted to perform action.
func (c Caps) Allows(subject aid.ID256, action Action) bool {
	_, ok := c.grants[Grant{Subject: subject, Action: action}]
	return ok
}

// Len reports the number of distinct grants.
func (c Caps) Len() int { return len(c.grants) }

func (c Caps) clone() Caps {
	out := make(map[Grant]struct{}, len(c.grants))
	for g := range c.grants {
		out[g] = struct{}{}
	}
	return Caps{grants: out}
}

// LessEqual implements the refinement partial order: c <= other iff every
// grant in c is also in other.
func (c Caps) LessEqual(other Caps) bool {
	for g := range c.grants {
		if _, ok := other.grants[g]; !ok {
			return false
		}
	}
	return true
}

// Merge is the capability lattice join: set union, broadening permissions.
// Every broadening in the journal's real merge path must be justified by a
// signed grant fact upstream (spec §3 "Capability refinement" invariant);
// Merge itself is the pure lattice operation and does not check that.
func (c Caps) Merge(delta Caps) Caps {
	out := c.clone()
	for g := range delta.grants {
		out.grants[g] = struct{}{}
	}
	return out
}

// Refine intersects c with delta: c ⊓ delta, narrowing toward whichever
// grants both already had. `RefineCaps` in the journal uses this to
// guarantee caps never grows implicitly (spec §4.2: "refine_caps intersects
// with the current caps, never broadens").
func (c Caps) Refine(delta Caps) Caps {
	out := NewCaps()
	for g := range c.grants {
		if _, ok := delta.grants[g]; ok {
			out.grants[g] = struct{}{}
		}
	}
	return out
}

// Grants returns the grant set sorted for deterministic iteration.
func (c Caps) Grants() []Grant {
	out := make([]Grant, 0, len(c.grants))
	for g := range c.grants {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject.Compare(out[j].Subject) < 0
		}
		return out[i].Action < out[j].Action
	})
	return out
}
