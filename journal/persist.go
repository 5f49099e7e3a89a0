package journal

import (
	"fmt"

	"github.com/aura-network/aura/aid"
)

// KVStore is the minimal persistence interface the journal's snapshot hooks
// need; the effects.Storage trait satisfies it in production.
type KVStore interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
}

// namespacedKey implements spec §6's persisted state layout:
// "<namespace>/<authority>/<key>".
func namespacedKey(namespace string, authority aid.ID256, key string) string {
	return fmt.Sprintf("%s/%s/%s", namespace, authority.String(), key)
}

const (
	keyFacts = "facts"
	keyCaps  = "caps"
	keyFlow  = "flow_budgets"
	keyTree  = "tree_commitments"
)

// Persist writes the journal's snapshot under the four keys spec §6
// describes: facts map, caps lattice node, per-(ctx,auth) budgets, and
// per-epoch tree commitment, each namespaced by authority.
func (j *Journal) Persist(store KVStore, namespace string, authority aid.ID256) error {
	snap := j.Snapshot()

	if err := store.Put(namespacedKey(namespace, authority, keyFacts), encodeFacts(snap.Facts)); err != nil {
		return fmt.Errorf("journal: persist facts: %w", err)
	}
	if err := store.Put(namespacedKey(namespace, authority, keyCaps), encodeCaps(snap.Caps)); err != nil {
		return fmt.Errorf("journal: persist caps: %w", err)
	}
	if err := store.Put(namespacedKey(namespace, authority, keyFlow), encodeFlow(snap.Flow)); err != nil {
		return fmt.Errorf("journal: persist flow budgets: %w", err)
	}
	if err := store.Put(namespacedKey(namespace, authority, keyTree), encodeTree(snap.Tree)); err != nil {
		return fmt.Errorf("journal: persist tree commitments: %w", err)
	}
	return nil
}

// Load reads back a snapshot persisted by Persist and merges it into j.
// Loading is a merge, not a replace, so resuming from a snapshot after
// processing live updates never loses data (idempotent per the semilattice
// laws).
func (j *Journal) Load(store KVStore, namespace string, authority aid.ID256) error {
	if bz, ok, err := lookup(store, namespace, authority, keyFacts); err != nil {
		return err
	} else if ok {
		j.MergeFacts(decodeFacts(bz))
	}
	if bz, ok, err := lookup(store, namespace, authority, keyCaps); err != nil {
		return err
	} else if ok {
		j.GrantCaps(decodeCaps(bz))
	}
	if bz, ok, err := lookup(store, namespace, authority, keyFlow); err != nil {
		return err
	} else if ok {
		j.mu.Lock()
		j.flow = j.flow.Merge(decodeFlow(bz))
		j.mu.Unlock()
	}
	if bz, ok, err := lookup(store, namespace, authority, keyTree); err != nil {
		return err
	} else if ok {
		j.mu.Lock()
		j.tree = j.tree.Merge(decodeTree(bz))
		j.mu.Unlock()
	}
	return nil
}

func lookup(store KVStore, namespace string, authority aid.ID256, key string) ([]byte, bool, error) {
	bz, ok, err := store.Get(namespacedKey(namespace, authority, key))
	if err != nil {
		return nil, false, fmt.Errorf("journal: load %s: %w", key, err)
	}
	return bz, ok, nil
}
