// Package journal implements Aura's convergent replicated state: the
// join-semilattice pieces (facts, capabilities, flow budgets, tree
// commitments) every authority merges without a coordinator, plus the
// flow-budget charging operation that produces hash-chained receipts.
//
// Grounded on the teacher's CRDT-adjacent confidence/threshold packages
// (quorum, threshold) for the "accumulate monotonically, never rewind"
// shape, generalized from vote confidence counters to full semilattice
// merges, and on
// original_source/crates/aura-journal/src/capability/unified_manager.rs and
// crates/aura-journal/src/commitment_tree/authority_state.rs for field
// names and merge semantics.
package journal

import (
	"sort"

	"github.com/aura-network/aura/aid"
)

// FactKind names a class of fact (e.g. "commit", "device_name", "guardian").
type FactKind string

// FactKey identifies a fact register: a (kind, subject) pair.
type FactKey struct {
	Kind    FactKind
	Subject aid.ID256
}

// FactEntry is one grow-only addition to a fact register. Entries are
// content-addressed by their own hash so that merging two registers is a
// plain set union: the same entry added by two authorities collapses to one.
type FactEntry struct {
	Hash  aid.Hash32
	Value []byte
}

// FactRegister is a grow-only set of FactEntry, Aura's CRDT register type.
// Facts are never removed, only added to; consumers read the "current"
// value as whatever reduction is appropriate for the fact kind (e.g. a
// CommitFact register has exactly one entry once consensus succeeds).
type FactRegister struct {
	entries map[aid.Hash32]FactEntry
}

// NewFactRegister returns an empty register.
func NewFactRegister() FactRegister {
	return FactRegister{entries: make(map[aid.Hash32]FactEntry)}
}

// Add inserts a new fact value, hashing it to its content address.
func (r FactRegister) Add(value []byte) FactRegister {
	h := aid.Hash("FACT_ENTRY_V1", value)
	out := r.clone()
	out.entries[h] = FactEntry{Hash: h, Value: value}
	return out
}

// Len reports the number of distinct fact entries.
func (r FactRegister) Len() int { return len(r.entries) }

// Entries returns the register's entries sorted by hash, for deterministic
// iteration (snapshotting, hashing, display).
func (r FactRegister) Entries() []FactEntry {
	out := make([]FactEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash.Compare(out[j].Hash) < 0 })
	return out
}

func (r FactRegister) clone() FactRegister {
	out := make(map[aid.Hash32]FactEntry, len(r.entries)+1)
	for k, v := range r.entries {
		out[k] = v
	}
	return FactRegister{entries: out}
}

// Merge is the CRDT join for a single fact register: set union. Merge is
// associative, commutative and idempotent because set union is.
func (r FactRegister) Merge(other FactRegister) FactRegister {
	out := r.clone()
	for k, v := range other.entries {
		out.entries[k] = v
	}
	return out
}

// Facts is the top-level facts piece of the journal: a map from FactKey to
// FactRegister, merged per-key.
type Facts struct {
	byKey map[FactKey]FactRegister
}

// NewFacts returns an empty Facts piece.
func NewFacts() Facts {
	return Facts{byKey: make(map[FactKey]FactRegister)}
}

// Get returns the register for key, or an empty one if absent.
func (f Facts) Get(key FactKey) FactRegister {
	if r, ok := f.byKey[key]; ok {
		return r
	}
	return NewFactRegister()
}

// With returns a new Facts with value appended to key's register.
func (f Facts) With(key FactKey, value []byte) Facts {
	out := f.clone()
	out.byKey[key] = f.Get(key).Add(value)
	return out
}

func (f Facts) clone() Facts {
	out := make(map[FactKey]FactRegister, len(f.byKey)+1)
	for k, v := range f.byKey {
		out[k] = v
	}
	return Facts{byKey: out}
}

// Merge joins two Facts pieces: per-key register merge, a direct product of
// semilattices and therefore itself a semilattice (associative, commutative,
// idempotent — spec §8's "Semilattice laws").
func (f Facts) Merge(delta Facts) Facts {
	out := f.clone()
	for key, reg := range delta.byKey {
		if existing, ok := out.byKey[key]; ok {
			out.byKey[key] = existing.Merge(reg)
		} else {
			out.byKey[key] = reg
		}
	}
	return out
}

// Keys returns all fact keys present, sorted for deterministic snapshotting.
func (f Facts) Keys() []FactKey {
	out := make([]FactKey, 0, len(f.byKey))
	for k := range f.byKey {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Subject.Compare(out[j].Subject) < 0
	})
	return out
}
