package dkg

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

func newParticipantAdapter(t *testing.T, net *transport.LoopbackNetwork, self choreo.Role, selfID aid.AuthorityId, roleMap map[choreo.Role]aid.AuthorityId, channel aid.ChannelId, sessionCtx aid.ContextId) *choreo.Adapter {
	t.Helper()

	jrnl := journal.New()
	for _, id := range roleMap {
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionDeal}))
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

type dkgResult struct {
	share frost.KeyShare
	group frost.GroupPublicKey
	err   error
}

func TestRunTwoOfTwoDKGProducesMatchingGroupKey(t *testing.T) {
	aliceID := aid.Derive("D", []byte("alice"))
	bobID := aid.Derive("D", []byte("bob"))
	sessionCtx := aid.Derive("CTX", []byte("dkg-session"))
	channel := aid.Derive("CH", []byte("dkg"))

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Alice": aliceID, "Bob": bobID}

	aliceAdapter := newParticipantAdapter(t, net, "Alice", aliceID, roleMap, channel, sessionCtx)
	bobAdapter := newParticipantAdapter(t, net, "Bob", bobID, roleMap, channel, sessionCtx)

	aliceCh := make(chan dkgResult, 1)
	bobCh := make(chan dkgResult, 1)

	go func() {
		share, group, err := Run(context.Background(), aliceAdapter, sessionCtx, aliceID, map[choreo.Role]frost.Identifier{"Bob": bobID}, 2, 1, rand.Reader)
		aliceCh <- dkgResult{share, group, err}
	}()
	go func() {
		share, group, err := Run(context.Background(), bobAdapter, sessionCtx, bobID, map[choreo.Role]frost.Identifier{"Alice": aliceID}, 2, 1, rand.Reader)
		bobCh <- dkgResult{share, group, err}
	}()

	alice := <-aliceCh
	bob := <-bobCh
	require.NoError(t, alice.err)
	require.NoError(t, bob.err)

	require.Equal(t, alice.group.Bytes(), bob.group.Bytes())
	require.NotEqual(t, alice.share.Secret.Bytes(), bob.share.Secret.Bytes())
}
