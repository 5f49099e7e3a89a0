package syncx

import (
	"sort"
	"sync"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

// peerState tracks the mutable scoring inputs for one remote authority.
type peerState struct {
	pendingOps  int
	lastFailure time.Time
	hasFailure  bool
}

// PeerManager scores and selects sync peers (spec §4.7: "priority score =
// base + boost_if_pending_ops - penalty_if_recent_failure; peers under
// min_priority_threshold are skipped; failed peers enter a
// failure_backoff_duration cooldown. At most max_concurrent_syncs rounds
// run in parallel"), grounded on
// aura-sync/src/core/config.rs's PeerManagementConfig this scoring
// formula was extracted from.
type PeerManager struct {
	cfg   PeerManagementConfig
	clock effects.Time

	mu    sync.Mutex
	peers map[aid.AuthorityId]*peerState
}

// baseScore is the starting priority every peer gets before boosts and
// penalties, chosen equal to min_priority_threshold (default 10) so a
// peer with no pending work and no recent failure just meets it and is
// not skipped.
const baseScore = 10

// NewPeerManager returns a PeerManager reading wall-clock time through
// clock, so failure-backoff cooldowns are deterministic under a frozen
// test clock rather than the OS clock.
func NewPeerManager(cfg PeerManagementConfig, clock effects.Time) *PeerManager {
	return &PeerManager{cfg: cfg, clock: clock, peers: make(map[aid.AuthorityId]*peerState)}
}

func (m *PeerManager) state(id aid.AuthorityId) *peerState {
	s, ok := m.peers[id]
	if !ok {
		s = &peerState{}
		m.peers[id] = s
	}
	return s
}

// RecordPendingOps records how many locally-pending operations concern
// peer id, boosting its priority on the next Score/SelectPeers call.
func (m *PeerManager) RecordPendingOps(id aid.AuthorityId, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state(id).pendingOps = count
}

// RecordFailure marks id as having just failed a sync round, starting its
// failure_backoff_duration cooldown.
func (m *PeerManager) RecordFailure(id aid.AuthorityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(id)
	s.lastFailure = m.clock.Now()
	s.hasFailure = true
}

// RecordSuccess clears id's failure penalty.
func (m *PeerManager) RecordSuccess(id aid.AuthorityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(id)
	s.hasFailure = false
}

// inCooldown reports whether id's failure_backoff_duration has not yet
// elapsed.
func (m *PeerManager) inCooldown(s *peerState) bool {
	if !s.hasFailure {
		return false
	}
	return m.clock.Now().Before(s.lastFailure.Add(m.cfg.FailureBackoffDuration))
}

// Score computes id's current priority score.
func (m *PeerManager) Score(id aid.AuthorityId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(id)

	score := baseScore
	if s.pendingOps > 0 {
		score += m.cfg.PendingOperationsBoost
	}
	if m.inCooldown(s) {
		score -= m.cfg.FailurePenalty
	}
	return score
}

// SelectPeers orders candidates by descending priority score, drops any
// still in their failure cooldown or below min_priority_threshold, and
// caps the result at max_concurrent_syncs.
func (m *PeerManager) SelectPeers(candidates []aid.AuthorityId) []aid.AuthorityId {
	m.mu.Lock()
	type scored struct {
		id    aid.AuthorityId
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, id := range candidates {
		s := m.state(id)
		if m.inCooldown(s) {
			continue
		}
		score := baseScore
		if s.pendingOps > 0 {
			score += m.cfg.PendingOperationsBoost
		}
		if m.inCooldown(s) {
			score -= m.cfg.FailurePenalty
		}
		if score < m.cfg.MinPriorityThreshold {
			continue
		}
		ranked = append(ranked, scored{id: id, score: score})
	}
	m.mu.Unlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id.Compare(ranked[j].id) < 0
	})

	limit := m.cfg.MaxConcurrentSyncs
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]aid.AuthorityId, limit)
	for i := 0; i < limit; i++ {
		out[i] = ranked[i].id
	}
	return out
}
