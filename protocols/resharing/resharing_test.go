package resharing

import (
	"context"
	"crypto/rand"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

// initialKeygen runs a plain 2-of-2 dealer-free DKG directly against the
// frost package (no choreography), producing the starting shares this
// ceremony then reshares.
func initialKeygen(t *testing.T, alice, bob frost.Identifier) (aliceShare, bobShare frost.KeyShare, group frost.GroupPublicKey) {
	t.Helper()
	participants := []frost.Identifier{alice, bob}

	_, pkgAlice, err := frost.Deal(alice, 2, participants, rand.Reader)
	require.NoError(t, err)
	_, pkgBob, err := frost.Deal(bob, 2, participants, rand.Reader)
	require.NoError(t, err)

	packages := map[frost.Identifier]frost.DealerPackage{alice: pkgAlice, bob: pkgBob}

	aliceShare, group, err = frost.CombineShares(alice,
		map[frost.Identifier]*edwards25519.Scalar{alice: pkgAlice.SharesFor[alice], bob: pkgBob.SharesFor[alice]},
		packages, 1)
	require.NoError(t, err)

	bobShare, group2, err := frost.CombineShares(bob,
		map[frost.Identifier]*edwards25519.Scalar{alice: pkgAlice.SharesFor[bob], bob: pkgBob.SharesFor[bob]},
		packages, 1)
	require.NoError(t, err)
	require.Equal(t, group.Bytes(), group2.Bytes())

	return aliceShare, bobShare, group
}

func TestRunReshareSameCommitteePreservesGroupKey(t *testing.T) {
	aliceID := aid.Derive("D", []byte("alice"))
	bobID := aid.Derive("D", []byte("bob"))
	sessionCtx := aid.Derive("CTX", []byte("resharing-session"))
	channel := aid.Derive("CH", []byte("resharing"))

	aliceShare, bobShare, oldGroup := initialKeygen(t, aliceID, bobID)

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Alice": aliceID, "Bob": bobID}

	aliceAdapter := newAdapter(t, net, "Alice", aliceID, roleMap, channel, sessionCtx)
	bobAdapter := newAdapter(t, net, "Bob", bobID, roleMap, channel, sessionCtx)

	oldQuorum := []frost.Identifier{aliceID, bobID}

	type outcome struct {
		share frost.KeyShare
		group frost.GroupPublicKey
		err   error
	}
	aliceCh := make(chan outcome, 1)
	bobCh := make(chan outcome, 1)

	go func() {
		share, group, err := Run(context.Background(), aliceAdapter, sessionCtx, aliceID,
			oldQuorum, aliceShare.Secret,
			map[choreo.Role]frost.Identifier{"Bob": bobID},
			map[choreo.Role]frost.Identifier{"Bob": bobID},
			2, 2, rand.Reader)
		aliceCh <- outcome{share, group, err}
	}()
	go func() {
		share, group, err := Run(context.Background(), bobAdapter, sessionCtx, bobID,
			oldQuorum, bobShare.Secret,
			map[choreo.Role]frost.Identifier{"Alice": aliceID},
			map[choreo.Role]frost.Identifier{"Alice": aliceID},
			2, 2, rand.Reader)
		bobCh <- outcome{share, group, err}
	}()

	alice := <-aliceCh
	bob := <-bobCh
	require.NoError(t, alice.err)
	require.NoError(t, bob.err)

	require.Equal(t, oldGroup.Bytes(), alice.group.Bytes(), "resharing must preserve the group public key")
	require.Equal(t, oldGroup.Bytes(), bob.group.Bytes())
	require.NotEqual(t, aliceShare.Secret.Bytes(), alice.share.Secret.Bytes(), "resharing must produce a fresh share even when the committee is unchanged")
	require.Equal(t, uint64(2), alice.share.Epoch)
}

func newAdapter(t *testing.T, net *transport.LoopbackNetwork, self choreo.Role, selfID aid.AuthorityId, roleMap map[choreo.Role]aid.AuthorityId, channel aid.ChannelId, sessionCtx aid.ContextId) *choreo.Adapter {
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
