// Package recovery implements guardian-threshold device recovery (spec
// §4.8): a lost device collects guardian_threshold signed approvals
// within a dispute window. This package evaluates approvals and tracks
// disputes and cooldowns; it does not itself run the protocols/resharing
// ceremony that mints fresh leaf key material under a bumped epoch, and
// nothing in the module connects the two. Guardian-set cooldown forbids repeating a recovery
// with the same guardian set within a configured interval.
//
// Grounded on
// original_source/crates/aura-protocol/src/handlers/guardian/authorization.rs
// (relationship/trust/threshold validation pipeline, operation
// allow-lists, time-constraint checks) and
// original_source/crates/aura-recovery/tests/guardian_recovery.rs
// (the request/ceremony shape and its three behavioural properties:
// threshold-gated approval, cooldown denial, guardian-side approval).
package recovery

import (
	"encoding/binary"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/frost"
)

// OperationType enumerates the recovery-adjacent operations a guardian
// relationship may be scoped to, matching RecoveryOperationType in
// authorization.rs.
type OperationType string

const (
	OperationDeviceKeyRecovery       OperationType = "device_key_recovery"
	OperationAccountAccessRecovery   OperationType = "account_access_recovery"
	OperationGuardianSetModification OperationType = "guardian_set_modification"
	OperationEmergencyFreeze         OperationType = "emergency_freeze"
	OperationAccountUnfreeze         OperationType = "account_unfreeze"
	OperationThresholdUpdate         OperationType = "threshold_update"
)

// GuardianRelationship is one guardian's standing authorization to
// approve recovery operations for a given device, carrying the
// trust-level and operation allow-list authorization.rs validates
// every approval against.
type GuardianRelationship struct {
	Guardian          aid.AuthorityId
	TrustLevel        float64
	AllowedOperations map[OperationType]struct{}
	EstablishedAt     time.Time
	IsActive          bool
}

// Allows reports whether this relationship is active and scoped to op.
func (r GuardianRelationship) Allows(op OperationType) bool {
	if !r.IsActive {
		return false
	}
	_, ok := r.AllowedOperations[op]
	return ok
}

// GuardianSet is the fixed committee of guardians eligible to approve
// recovery for a device, and the threshold of distinct approvals
// required.
type GuardianSet struct {
	Guardians []aid.AuthorityId
	Threshold int
}

// Hash canonically identifies this guardian set for cooldown bookkeeping
// (spec §4.8: "cooldown forbids repeated recovery with the same
// guardian set").
func (s GuardianSet) Hash() aid.Hash32 {
	buf := make([]byte, 0, len(s.Guardians)*32+4)
	for _, g := range s.Guardians {
		buf = append(buf, g[:]...)
	}
	var t [4]byte
	binary.BigEndian.PutUint32(t[:], uint32(s.Threshold))
	return aid.Hash("RECOVERY_GUARDIAN_SET_V1", buf, t[:])
}

// RecoveryRequest is the recovering device's ask, the object every
// guardian approval is signed over.
type RecoveryRequest struct {
	RequestingDevice aid.AuthorityId
	Account          aid.AuthorityId
	Operation        OperationType
	Justification    string
	IsEmergency      bool
	RequestedAt      time.Time
	DisputeWindow    time.Duration
}

// Hash canonically identifies r, the message guardians sign to approve
// it and the key approvals and disputes are filed under.
func (r RecoveryRequest) Hash() aid.Hash32 {
	var emergency byte
	if r.IsEmergency {
		emergency = 1
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(r.RequestedAt.UnixNano()))
	return aid.Hash("RECOVERY_REQUEST_V1",
		r.RequestingDevice[:], r.Account[:],
		[]byte(r.Operation), []byte(r.Justification),
		[]byte{emergency}, ts[:])
}

// Approval is one guardian's signed vote for a RecoveryRequest.
type Approval struct {
	Guardian  aid.AuthorityId
	Signature frost.Signature
}

// ThresholdResult reports the outcome of evaluating a batch of approvals
// against a GuardianSet's threshold.
type ThresholdResult struct {
	ThresholdMet           bool
	ValidApprovals         int
	RequiredThreshold      int
	ParticipatingGuardians []aid.AuthorityId
	RejectedGuardians      map[aid.AuthorityId]error
}
