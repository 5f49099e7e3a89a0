package recovery

import (
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/frost"
)

// Ceremony evaluates guardian approvals for recovery requests and tracks
// the cooldown and dispute-window side effects of a successful
// evaluation. It stops short of running the resharing ceremony itself
// (spec §4.8: "the result is a re-sharing ceremony that yields new leaf
// key material and a bumped epoch"). protocols/recovery only carries the
// request and approvals over the wire, and no code in this module starts
// protocols/resharing.Run after Evaluate reports ThresholdMet; callers
// run that step themselves.
type Ceremony struct {
	Set         GuardianSet
	Cooldown    *CooldownTracker
	Disputes    *DisputeLog
	GuardianKeys map[aid.AuthorityId]frost.GroupPublicKey
	Relationships map[aid.AuthorityId]GuardianRelationship
}

// Evaluate validates req against c's cooldown state and every presented
// approval's relationship/trust/freshness constraints and signature,
// then checks whether the valid, distinct approvals meet the guardian
// set's threshold. On success it opens req's dispute window.
func (c *Ceremony) Evaluate(req RecoveryRequest, approvals []Approval, now time.Time) (ThresholdResult, error) {
	if c.Cooldown.InCooldown(req.RequestingDevice, c.Set) {
		return ThresholdResult{}, ErrCooldownActive
	}

	result := ThresholdResult{
		RequiredThreshold: c.Set.Threshold,
		RejectedGuardians: make(map[aid.AuthorityId]error),
	}

	inSet := make(map[aid.AuthorityId]struct{}, len(c.Set.Guardians))
	for _, g := range c.Set.Guardians {
		inSet[g] = struct{}{}
	}

	seen := make(map[aid.AuthorityId]struct{}, len(approvals))
	msg := req.Hash()

	for _, a := range approvals {
		if _, ok := inSet[a.Guardian]; !ok {
			result.RejectedGuardians[a.Guardian] = ErrUnknownRequest
			continue
		}
		if _, dup := seen[a.Guardian]; dup {
			continue
		}
		seen[a.Guardian] = struct{}{}

		rel, ok := c.Relationships[a.Guardian]
		if !ok {
			result.RejectedGuardians[a.Guardian] = ErrUnknownRequest
			continue
		}
		if err := validateRelationship(rel, req, now); err != nil {
			result.RejectedGuardians[a.Guardian] = err
			continue
		}

		group, ok := c.GuardianKeys[a.Guardian]
		if !ok || !frost.Verify(group, msg[:], a.Signature) {
			result.RejectedGuardians[a.Guardian] = ErrThresholdNotMet
			continue
		}

		result.ValidApprovals++
		result.ParticipatingGuardians = append(result.ParticipatingGuardians, a.Guardian)
	}

	result.ThresholdMet = result.ValidApprovals >= c.Set.Threshold
	if !result.ThresholdMet {
		return result, ErrThresholdNotMet
	}

	window := req.DisputeWindow
	if window == 0 {
		window = DefaultDisputeWindow
	}
	c.Disputes.Open(msg, window)
	c.Cooldown.Record(req.RequestingDevice, c.Set)

	return result, nil
}
