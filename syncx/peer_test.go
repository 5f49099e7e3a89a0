package syncx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

func TestPeerManagerScoring(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(0, 0))
	cfg := DefaultSyncConfig().PeerManagement
	pm := NewPeerManager(cfg, clock)

	alice := aid.AuthorityId{1}
	bob := aid.AuthorityId{2}

	require.Equal(t, baseScore, pm.Score(alice))

	pm.RecordPendingOps(alice, 3)
	require.Equal(t, baseScore+cfg.PendingOperationsBoost, pm.Score(alice))

	pm.RecordFailure(bob)
	require.Equal(t, baseScore-cfg.FailurePenalty, pm.Score(bob))
}

func TestPeerManagerSelectPeersOrdersByScore(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(0, 0))
	cfg := DefaultSyncConfig().PeerManagement
	cfg.MaxConcurrentSyncs = 2
	pm := NewPeerManager(cfg, clock)

	alice := aid.AuthorityId{1}
	bob := aid.AuthorityId{2}
	carol := aid.AuthorityId{3}

	pm.RecordPendingOps(alice, 1) // boosted
	pm.RecordFailure(bob)         // in failure cooldown, excluded before the cap applies

	selected := pm.SelectPeers([]aid.AuthorityId{alice, bob, carol})
	require.Len(t, selected, 2)
	require.Equal(t, alice, selected[0]) // highest score first
	require.Contains(t, selected, carol)
	require.NotContains(t, selected, bob)
}

func TestPeerManagerFailureCooldownExpires(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(0, 0))
	cfg := DefaultSyncConfig().PeerManagement
	cfg.FailureBackoffDuration = time.Minute
	pm := NewPeerManager(cfg, clock)

	bob := aid.AuthorityId{2}
	pm.RecordFailure(bob)

	selected := pm.SelectPeers([]aid.AuthorityId{bob})
	require.Empty(t, selected, "peer should be in cooldown immediately after failure")

	clock.Advance(2 * time.Minute)
	selected = pm.SelectPeers([]aid.AuthorityId{bob})
	require.Equal(t, []aid.AuthorityId{bob}, selected, "peer should be selectable once cooldown elapses")
}

func TestPeerManagerRecordSuccessClearsPenalty(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(0, 0))
	cfg := DefaultSyncConfig().PeerManagement
	pm := NewPeerManager(cfg, clock)

	bob := aid.AuthorityId{2}
	pm.RecordFailure(bob)
	require.Equal(t, baseScore-cfg.FailurePenalty, pm.Score(bob))

	pm.RecordSuccess(bob)
	require.Equal(t, baseScore, pm.Score(bob))
}
