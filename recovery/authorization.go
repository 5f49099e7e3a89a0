package recovery

import (
	"fmt"
	"time"
)

// Trust-level minimums below which a guardian's approval is rejected
// regardless of threshold math, taken from authorization.rs's
// non-emergency/emergency split.
const (
	minTrustLevelRegular   = 0.5
	minTrustLevelEmergency = 0.3
)

// Maximum age a request may have when a guardian signs off on it,
// mirroring authorization.rs's validate_time_constraints.
const (
	maxRequestAgeEmergency = 24 * time.Hour
	maxRequestAgeRegular   = 6 * time.Hour
)

// validateRelationship checks rel is authorized to approve req at now,
// independent of whether rel's signature itself verifies.
func validateRelationship(rel GuardianRelationship, req RecoveryRequest, now time.Time) error {
	if !rel.IsActive {
		return fmt.Errorf("recovery: guardian %s relationship is inactive", rel.Guardian)
	}

	minTrust := minTrustLevelRegular
	if req.IsEmergency {
		minTrust = minTrustLevelEmergency
	}
	if rel.TrustLevel < minTrust {
		return fmt.Errorf("recovery: guardian %s trust level %.2f below required %.2f", rel.Guardian, rel.TrustLevel, minTrust)
	}

	if !rel.Allows(req.Operation) {
		return fmt.Errorf("recovery: guardian %s not authorized for operation %s", rel.Guardian, req.Operation)
	}

	maxAge := maxRequestAgeRegular
	if req.IsEmergency {
		maxAge = maxRequestAgeEmergency
	}
	if now.Sub(req.RequestedAt) > maxAge {
		return fmt.Errorf("recovery: request from %s is stale: age %s exceeds %s", req.RequestingDevice, now.Sub(req.RequestedAt), maxAge)
	}
	if req.RequestedAt.After(now) {
		return fmt.Errorf("recovery: request from %s is timestamped in the future", req.RequestingDevice)
	}

	return nil
}
