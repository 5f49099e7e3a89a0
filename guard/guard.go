// Package guard implements the 5-step policy chain every choreographic
// send passes through (spec §4.4): CapGuard, FlowGuard, LeakGuard, Send,
// JournalCoupler, in that fixed order, short-circuiting on the first
// failure.
//
// Grounded on the teacher's router.InboundHandler shape
// (`HandleInbound(context.Context, Message) error`, a narrow interface
// composed by the networking layer) generalized from one inbound handler
// to a fixed sequence of outbound policy steps, each independently
// testable as its own type satisfying Step.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
)

// Errors returned by guard steps, matching spec §4.4's named failure modes.
var (
	ErrAuthorizationDenied = errors.New("guard: authorization denied")
	ErrBudgetExhausted     = journal.ErrBudgetExhausted
	ErrLeakBudgetExhausted = errors.New("guard: leak budget exhausted")
)

// Send is the outbound payload passed through the chain. Fields after
// Cost are optional policy annotations a protocol attaches when building
// the message (spec §4.4 steps 3 and 5).
type Send struct {
	Context aid.ContextId
	Self    aid.AuthorityId
	Peer    aid.AuthorityId
	Action  journal.Action
	Cost    uint64
	Payload []byte
	Channel aid.ChannelId

	ObserverClass string            // non-empty if annotated leak(observers...)
	JournalFacts  *journal.Facts    // non-nil if annotated journal_facts = "..."
	JournalRemote *journal.Snapshot // non-nil if annotated journal_merge(remote)

	// Populated by earlier steps for later steps and the caller to consume.
	Receipt journal.Receipt
}

// Step is one policy step in the chain.
type Step interface {
	Apply(ctx context.Context, send *Send) error
}

// Chain composes Steps in fixed order, short-circuiting on the first
// error (spec §4.4: "ordering is fixed because each later step assumes
// the earlier one succeeded").
type Chain struct {
	steps []Step
}

// NewChain builds the canonical Cap -> Flow -> Leak -> Send ->
// JournalCoupler chain.
func NewChain(cap *CapGuard, flow *FlowGuard, leak *LeakGuard, send *SendStep, coupler *JournalCoupler) *Chain {
	return &Chain{steps: []Step{cap, flow, leak, send, coupler}}
}

// Run applies every step in order, stopping at the first error.
func (c *Chain) Run(ctx context.Context, send *Send) error {
	for i, step := range c.steps {
		if err := step.Apply(ctx, send); err != nil {
			return fmt.Errorf("guard: step %d: %w", i, err)
		}
	}
	return nil
}
