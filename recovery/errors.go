package recovery

import "errors"

var (
	// ErrCooldownActive is returned when a device attempts recovery
	// under a guardian set still within its cooldown window.
	ErrCooldownActive = errors.New("recovery: guardian set is within its cooldown window")
	// ErrThresholdNotMet is returned when fewer than GuardianSet.Threshold
	// valid approvals were presented.
	ErrThresholdNotMet = errors.New("recovery: insufficient valid guardian approvals")
	// ErrUnknownRequest is returned by DisputeLog operations on a
	// request hash that was never opened (or already finalized).
	ErrUnknownRequest = errors.New("recovery: unknown or already-finalized request")
)
