package journal

import (
	"errors"
	"sort"

	"github.com/aura-network/aura/aid"
)

// ErrBudgetExhausted is returned by ChargeFlow when a charge would exceed
// the current epoch's limit. It maps to the BudgetExhausted error class of
// spec §7 and is retriable after an epoch bump.
var ErrBudgetExhausted = errors.New("journal: flow budget exhausted")

// BudgetKey identifies a flow budget: a (context, authority) pair.
type BudgetKey struct {
	Context   aid.ID256
	Authority aid.ID256
}

// Budget is the (limit, spent, epoch) tuple of spec §3.
type Budget struct {
	Limit uint64
	Spent uint64
	Epoch uint64
}

// Remaining returns the unspent portion of the current epoch's limit.
func (b Budget) Remaining() uint64 {
	if b.Spent >= b.Limit {
		return 0
	}
	return b.Limit - b.Spent
}

// Merge implements spec §3's flow-budget merge: max spent for the same
// epoch, otherwise the higher epoch wins outright (an epoch bump discards
// prior spend). This is associative, commutative and idempotent: comparing
// (epoch, spent) lexicographically and taking the max is a total, stable
// join over the product order.
func (b Budget) Merge(other Budget) Budget {
	switch {
	case b.Epoch > other.Epoch:
		return b
	case other.Epoch > b.Epoch:
		return other
	default:
		merged := b
		if other.Spent > merged.Spent {
			merged.Spent = other.Spent
		}
		if other.Limit > merged.Limit {
			// Limits should agree within an epoch; if they don't (a
			// misconfiguration or a byzantine proposal), keep the larger so
			// merge stays monotone rather than silently narrowing.
			merged.Limit = other.Limit
		}
		return merged
	}
}

// FlowBudgets is the per-(context,authority) budget piece of the journal.
type FlowBudgets struct {
	byKey map[BudgetKey]Budget
}

// NewFlowBudgets returns an empty piece.
func NewFlowBudgets() FlowBudgets {
	return FlowBudgets{byKey: make(map[BudgetKey]Budget)}
}

// Get returns the budget for key, or the zero Budget if unset (limit 0,
// meaning no flow has ever been authorized for this context/authority).
func (f FlowBudgets) Get(key BudgetKey) Budget {
	return f.byKey[key]
}

func (f FlowBudgets) clone() FlowBudgets {
	out := make(map[BudgetKey]Budget, len(f.byKey)+1)
	for k, v := range f.byKey {
		out[k] = v
	}
	return FlowBudgets{byKey: out}
}

// With returns a new FlowBudgets with key set to budget outright (used by
// ChargeFlow after a successful charge; the write path, not a merge).
func (f FlowBudgets) With(key BudgetKey, budget Budget) FlowBudgets {
	out := f.clone()
	out.byKey[key] = budget
	return out
}

// Merge joins two FlowBudgets pieces per-key via Budget.Merge.
func (f FlowBudgets) Merge(delta FlowBudgets) FlowBudgets {
	out := f.clone()
	for key, b := range delta.byKey {
		if existing, ok := out.byKey[key]; ok {
			out.byKey[key] = existing.Merge(b)
		} else {
			out.byKey[key] = b
		}
	}
	return out
}

// Keys returns all budget keys, sorted for deterministic iteration.
func (f FlowBudgets) Keys() []BudgetKey {
	out := make([]BudgetKey, 0, len(f.byKey))
	for k := range f.byKey {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Context != out[j].Context {
			return out[i].Context.Compare(out[j].Context) < 0
		}
		return out[i].Authority.Compare(out[j].Authority) < 0
	})
	return out
}
