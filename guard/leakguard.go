package guard

import (
	"context"
	"fmt"
	"sync"

	"github.com/aura-network/aura/aid"
)

// LeakKey identifies one per-observer-class leakage budget.
type LeakKey struct {
	Context       aid.ContextId
	ObserverClass string
}

// LeakGuard is step 3, optional: if send is annotated leak(observers...),
// consumes that observer class's leakage budget for this context (spec
// §4.4 step 3), grounded on
// original_source/crates/aura-agent/src/runtime/choreography_adapter.rs's
// `MessageGuardRequirements.leakage_budget` (an optional per-message
// budget layered onto the guard chain after flow, before send).
//
// Unlike FlowGuard, a step with no leak annotation is a no-op: the budget
// is narrower in scope than flow, covering only messages an authority has
// explicitly marked as disclosing information to a named observer class.
type LeakGuard struct {
	mu     sync.Mutex
	limits map[LeakKey]uint64
	spent  map[LeakKey]uint64
}

// NewLeakGuard returns a guard with no configured limits; SetLimit must
// be called before any annotated send against a given (context, class)
// pair, otherwise that class is treated as having zero budget.
func NewLeakGuard() *LeakGuard {
	return &LeakGuard{limits: make(map[LeakKey]uint64), spent: make(map[LeakKey]uint64)}
}

// SetLimit installs the leakage budget limit for one observer class
// within a context.
func (g *LeakGuard) SetLimit(key LeakKey, limit uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits[key] = limit
}

// Remaining reports the unspent leakage budget for key.
func (g *LeakGuard) Remaining(key LeakKey) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	limit := g.limits[key]
	spent := g.spent[key]
	if spent >= limit {
		return 0
	}
	return limit - spent
}

func (g *LeakGuard) Apply(ctx context.Context, send *Send) error {
	if send.ObserverClass == "" {
		return nil
	}
	key := LeakKey{Context: send.Context, ObserverClass: send.ObserverClass}

	g.mu.Lock()
	defer g.mu.Unlock()
	limit := g.limits[key]
	spent := g.spent[key]
	if spent+send.Cost > limit {
		return fmt.Errorf("%w: observer class %q in context %s", ErrLeakBudgetExhausted, send.ObserverClass, send.Context)
	}
	g.spent[key] = spent + send.Cost
	return nil
}
