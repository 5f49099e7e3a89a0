// Package recovery drives guardian-threshold recovery (spec §4.8) as a
// choreography over choreo.Adapter: the recovering device broadcasts a
// RecoveryRequest to its guardian set and collects signed approvals,
// while each guardian independently validates and (if a caller-supplied
// policy approves) signs and returns one. The actual threshold/trust/
// cooldown evaluation is recovery.Ceremony's job; this package only
// moves the request and approvals across the wire.
package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/journal"
	domain "github.com/aura-network/aura/recovery"
)

const (
	ActionRequest  journal.Action = "recovery.request"
	ActionApproval journal.Action = "recovery.approval"

	CostRequest  uint64 = 1
	CostApproval uint64 = 1
)

// RunRecoveringDevice broadcasts req to every role in guardianRoles,
// collects one ApprovalMsg from each that responds before ctx is
// cancelled, and evaluates the collected approvals against ceremony.
func RunRecoveringDevice(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	req domain.RecoveryRequest,
	guardianRoles map[choreo.Role]aid.AuthorityId,
	ceremony *domain.Ceremony,
	now time.Time,
) (domain.ThresholdResult, error) {
	for role := range guardianRoles {
		adapter.Enqueue(role, RequestMsg{Request: req})
		if err := adapter.Send(ctx, sessionCtx, role, ActionRequest, CostRequest); err != nil {
			return domain.ThresholdResult{}, fmt.Errorf("recovery: send request to %s: %w", role, err)
		}
	}

	approvals := make([]domain.Approval, 0, len(guardianRoles))
	for role := range guardianRoles {
		msg, err := adapter.Recv(ctx, role)
		if err != nil {
			// A guardian that never responds simply doesn't contribute;
			// the threshold check below decides whether enough did.
			continue
		}
		approval, ok := msg.(ApprovalMsg)
		if !ok {
			return domain.ThresholdResult{}, fmt.Errorf("recovery: unexpected message type from %s", role)
		}
		approvals = append(approvals, approval.Approval)
	}

	return ceremony.Evaluate(req, approvals, now)
}

// RunGuardian receives one RecoveryRequest from deviceRole, asks decide
// whether self approves it, and if so signs the request's hash with
// sign and returns an ApprovalMsg. A false from decide or a cancelled
// context ends the round without sending anything.
func RunGuardian(
	ctx context.Context,
	adapter *choreo.Adapter,
	sessionCtx aid.ContextId,
	self aid.AuthorityId,
	deviceRole choreo.Role,
	decide func(req domain.RecoveryRequest) bool,
	sign func(message []byte) (frost.Signature, error),
) error {
	msg, err := adapter.Recv(ctx, deviceRole)
	if err != nil {
		return fmt.Errorf("recovery: recv request from %s: %w", deviceRole, err)
	}
	request, ok := msg.(RequestMsg)
	if !ok {
		return fmt.Errorf("recovery: unexpected message type from %s", deviceRole)
	}

	if !decide(request.Request) {
		return nil
	}

	reqHash := request.Request.Hash()
	sig, err := sign(reqHash[:])
	if err != nil {
		return fmt.Errorf("recovery: sign approval: %w", err)
	}

	adapter.Enqueue(deviceRole, ApprovalMsg{Approval: domain.Approval{Guardian: self, Signature: sig}})
	if err := adapter.Send(ctx, sessionCtx, deviceRole, ActionApproval, CostApproval); err != nil {
		return fmt.Errorf("recovery: send approval to %s: %w", deviceRole, err)
	}
	return nil
}
