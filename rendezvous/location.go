package rendezvous

import "github.com/aura-network/aura/aid"

// DeriveLocation computes the blake3 domain-tagged hash peers publish
// and resolve descriptors under, derived from the relationship context
// alone so that two authorities who share a context converge on the
// same location without learning anything about each other first,
// matching discovery.rs's derive_location_hash.
func DeriveLocation(contextID aid.ContextId) aid.Hash32 {
	return aid.Hash("RENDEZVOUS_LOCATION_V1", contextID[:])
}
