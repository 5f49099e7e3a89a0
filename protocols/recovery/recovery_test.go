package recovery

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/effects"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	domain "github.com/aura-network/aura/recovery"
	"github.com/aura-network/aura/transport"
)

type soloKey struct {
	share frost.KeyShare
	pub   frost.PublicKeyPackage
	group frost.GroupPublicKey
}

func newSoloKey(t *testing.T, id frost.Identifier) soloKey {
	t.Helper()
	_, pkg, err := frost.Deal(id, 1, []frost.Identifier{id}, rand.Reader)
	require.NoError(t, err)
	share, group, err := frost.CombineShares(id,
		map[frost.Identifier]*edwards25519.Scalar{id: pkg.SharesFor[id]},
		map[frost.Identifier]frost.DealerPackage{id: pkg}, 1)
	require.NoError(t, err)
	pub := frost.PublicKeyPackage{Group: group, Threshold: 1, Participants: map[frost.Identifier]*edwards25519.Point{id: share.Public}}
	return soloKey{share: share, pub: pub, group: group}
}

func (k soloKey) sign(message []byte) (frost.Signature, error) {
	nonces, commitment, err := frost.Round1Commit(rand.Reader)
	if err != nil {
		return frost.Signature{}, err
	}
	commitments := map[frost.Identifier]frost.NonceCommitment{k.share.Identifier: commitment}
	share, err := frost.SignShare(k.share, nonces, commitments, k.pub, message)
	if err != nil {
		return frost.Signature{}, err
	}
	return frost.Aggregate(commitments, []frost.SignatureShare{share}, k.pub, message)
}

func newPartyAdapter(t *testing.T, net *transport.LoopbackNetwork, self choreo.Role, selfID aid.AuthorityId, roleMap map[choreo.Role]aid.AuthorityId, channel aid.ChannelId, sessionCtx aid.ContextId) *choreo.Adapter {
	t.Helper()

	jrnl := journal.New()
	for _, id := range roleMap {
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionRequest}))
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionApproval}))
	}
	jrnl.SetFlowLimit(sessionCtx, selfID, 1000, 1)

	chain := guard.NewChain(
		&guard.CapGuard{Journal: jrnl},
		&guard.FlowGuard{Journal: jrnl},
		guard.NewLeakGuard(),
		&guard.SendStep{Transport: net.Endpoint(selfID), Self: selfID},
		&guard.JournalCoupler{Journal: jrnl},
	)

	registry := choreo.NewMessageRegistry()
	RegisterMessages(registry)

	return choreo.NewAdapter(self, selfID, roleMap, nil, net.Endpoint(selfID), channel, registry, chain)
}

func TestRecoveryRoundCollectsApprovalsAndMeetsThreshold(t *testing.T) {
	deviceID := aid.Derive("D", []byte("device"))
	g1ID := aid.Derive("D", []byte("guardian-1"))
	g2ID := aid.Derive("D", []byte("guardian-2"))
	sessionCtx := aid.Derive("CTX", []byte("recovery-session"))
	channel := aid.Derive("CH", []byte("recovery"))

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Device": deviceID, "G1": g1ID, "G2": g2ID}

	deviceAdapter := newPartyAdapter(t, net, "Device", deviceID, roleMap, channel, sessionCtx)
	g1Adapter := newPartyAdapter(t, net, "G1", g1ID, roleMap, channel, sessionCtx)
	g2Adapter := newPartyAdapter(t, net, "G2", g2ID, roleMap, channel, sessionCtx)

	g1Key := newSoloKey(t, g1ID)
	g2Key := newSoloKey(t, g2ID)

	clock := effects.NewFrozenClock(time.Unix(1_700_000_000, 0))
	set := domain.GuardianSet{Guardians: []aid.AuthorityId{g1ID, g2ID}, Threshold: 2}
	allowed := map[domain.OperationType]struct{}{domain.OperationDeviceKeyRecovery: {}}
	ceremony := &domain.Ceremony{
		Set:      set,
		Cooldown: domain.NewCooldownTracker(domain.DefaultGuardianCooldown, clock),
		Disputes: domain.NewDisputeLog(clock),
		GuardianKeys: map[aid.AuthorityId]frost.GroupPublicKey{
			g1ID: g1Key.group,
			g2ID: g2Key.group,
		},
		Relationships: map[aid.AuthorityId]domain.GuardianRelationship{
			g1ID: {Guardian: g1ID, TrustLevel: 1, AllowedOperations: allowed, IsActive: true},
			g2ID: {Guardian: g2ID, TrustLevel: 1, AllowedOperations: allowed, IsActive: true},
		},
	}

	req := domain.RecoveryRequest{
		RequestingDevice: deviceID,
		Account:          deviceID,
		Operation:        domain.OperationDeviceKeyRecovery,
		RequestedAt:      clock.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		result domain.ThresholdResult
		err    error
	}
	deviceCh := make(chan outcome, 1)

	go func() {
		result, err := RunRecoveringDevice(ctx, deviceAdapter, sessionCtx, req,
			map[choreo.Role]aid.AuthorityId{"G1": g1ID, "G2": g2ID}, ceremony, clock.Now())
		deviceCh <- outcome{result, err}
	}()

	go func() {
		_ = RunGuardian(ctx, g1Adapter, sessionCtx, g1ID, "Device",
			func(domain.RecoveryRequest) bool { return true }, g1Key.sign)
	}()
	go func() {
		_ = RunGuardian(ctx, g2Adapter, sessionCtx, g2ID, "Device",
			func(domain.RecoveryRequest) bool { return true }, g2Key.sign)
	}()

	out := <-deviceCh
	require.NoError(t, out.err)
	require.True(t, out.result.ThresholdMet)
	require.Equal(t, 2, out.result.ValidApprovals)
}
