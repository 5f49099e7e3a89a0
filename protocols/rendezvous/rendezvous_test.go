package rendezvous

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	domain "github.com/aura-network/aura/rendezvous"
	"github.com/aura-network/aura/transport"
)

func newPartyAdapter(t *testing.T, net *transport.LoopbackNetwork, self choreo.Role, selfID aid.AuthorityId, roleMap map[choreo.Role]aid.AuthorityId, channel aid.ChannelId, sessionCtx aid.ContextId) *choreo.Adapter {
	t.Helper()

	jrnl := journal.New()
	for _, id := range roleMap {
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionOffer}))
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionAnswer}))
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionHandshake}))
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionComplete}))
		jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: id, Action: ActionRelay}))
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

func sharedSecretProbe(secret []byte) (ProveKnowledge, VerifyKnowledge) {
	derive := func(nonce [32]byte) aid.Hash32 {
		return aid.Hash("RENDEZVOUS_HANDSHAKE_TEST_V1", secret, nonce[:])
	}
	return derive, func(nonce [32]byte, proof aid.Hash32) bool {
		return derive(nonce) == proof
	}
}

func descriptorFor(id aid.AuthorityId, ctx aid.ContextId) domain.Descriptor {
	return domain.Descriptor{
		AuthorityID:    id,
		ContextID:      ctx,
		TransportHints: []string{"tcp://127.0.0.1:9000"},
		PSKCommitment:  [32]byte{9, 9, 9},
		ValidFrom:      time.Unix(1_700_000_000, 0),
		ValidUntil:     time.Unix(1_700_000_000, 0).Add(time.Hour),
		Nonce:          [32]byte{1, 2, 3},
		Nickname:       "peer",
	}
}

func TestDirectBringUpExchangesDescriptorsAndVerifiesHandshake(t *testing.T) {
	aliceID := aid.Derive("D", []byte("alice"))
	bobID := aid.Derive("D", []byte("bob"))
	sessionCtx := aid.Derive("CTX", []byte("rendezvous-session"))
	channel := aid.Derive("CH", []byte("rendezvous"))
	relContext := aid.Derive("CTX", []byte("alice-bob-relationship"))

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Initiator": aliceID, "Responder": bobID}

	aliceAdapter := newPartyAdapter(t, net, "Initiator", aliceID, roleMap, channel, sessionCtx)
	bobAdapter := newPartyAdapter(t, net, "Responder", bobID, roleMap, channel, sessionCtx)

	prove, verify := sharedSecretProbe([]byte("shared-psk"))

	aliceDescriptor := descriptorFor(aliceID, relContext)
	bobDescriptor := descriptorFor(bobID, relContext)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		descriptor domain.Descriptor
		err        error
	}
	aliceCh := make(chan outcome, 1)
	bobCh := make(chan outcome, 1)

	go func() {
		d, err := RunInitiator(ctx, aliceAdapter, sessionCtx, "Responder", aliceDescriptor, [32]byte{0xA1}, prove, verify)
		aliceCh <- outcome{d, err}
	}()
	go func() {
		d, err := RunResponder(ctx, bobAdapter, sessionCtx, "Initiator", bobDescriptor, [32]byte{0xB1}, prove, verify)
		bobCh <- outcome{d, err}
	}()

	aliceOut := <-aliceCh
	bobOut := <-bobCh

	require.NoError(t, aliceOut.err)
	require.NoError(t, bobOut.err)
	require.Equal(t, bobDescriptor, aliceOut.descriptor)
	require.Equal(t, aliceDescriptor, bobOut.descriptor)
}

func TestDirectBringUpFailsOnMismatchedSecret(t *testing.T) {
	aliceID := aid.Derive("D", []byte("alice2"))
	bobID := aid.Derive("D", []byte("bob2"))
	sessionCtx := aid.Derive("CTX", []byte("rendezvous-session-2"))
	channel := aid.Derive("CH", []byte("rendezvous-2"))
	relContext := aid.Derive("CTX", []byte("alice-bob-relationship-2"))

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Initiator": aliceID, "Responder": bobID}

	aliceAdapter := newPartyAdapter(t, net, "Initiator", aliceID, roleMap, channel, sessionCtx)
	bobAdapter := newPartyAdapter(t, net, "Responder", bobID, roleMap, channel, sessionCtx)

	aliceProve, _ := sharedSecretProbe([]byte("alices-secret"))
	_, bobVerify := sharedSecretProbe([]byte("bobs-different-secret"))
	bobProve, aliceVerify := sharedSecretProbe([]byte("shared-other-direction"))

	aliceDescriptor := descriptorFor(aliceID, relContext)
	bobDescriptor := descriptorFor(bobID, relContext)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		descriptor domain.Descriptor
		err        error
	}
	aliceCh := make(chan outcome, 1)
	bobCh := make(chan outcome, 1)

	go func() {
		d, err := RunInitiator(ctx, aliceAdapter, sessionCtx, "Responder", aliceDescriptor, [32]byte{0xA2}, aliceProve, aliceVerify)
		aliceCh <- outcome{d, err}
	}()
	go func() {
		d, err := RunResponder(ctx, bobAdapter, sessionCtx, "Initiator", bobDescriptor, [32]byte{0xB2}, bobProve, bobVerify)
		bobCh <- outcome{d, err}
	}()

	bobOut := <-bobCh
	require.ErrorIs(t, bobOut.err, errHandshakeFailed)

	aliceOut := <-aliceCh
	require.Error(t, aliceOut.err)
}

func TestRelayedBringUpForwardsAllFourMessages(t *testing.T) {
	aliceID := aid.Derive("D", []byte("alice-relay"))
	bobID := aid.Derive("D", []byte("bob-relay"))
	relayID := aid.Derive("D", []byte("relay"))
	sessionCtx := aid.Derive("CTX", []byte("rendezvous-relay-session"))
	channel := aid.Derive("CH", []byte("rendezvous-relay"))
	relContext := aid.Derive("CTX", []byte("alice-bob-relay-relationship"))

	net := transport.NewLoopbackNetwork()
	roleMap := map[choreo.Role]aid.AuthorityId{"Initiator": aliceID, "Responder": bobID, "Relay": relayID}

	aliceAdapter := newPartyAdapter(t, net, "Initiator", aliceID, roleMap, channel, sessionCtx)
	bobAdapter := newPartyAdapter(t, net, "Responder", bobID, roleMap, channel, sessionCtx)
	relayAdapter := newPartyAdapter(t, net, "Relay", relayID, roleMap, channel, sessionCtx)

	prove, verify := sharedSecretProbe([]byte("relay-shared-psk"))

	aliceDescriptor := descriptorFor(aliceID, relContext)
	bobDescriptor := descriptorFor(bobID, relContext)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		descriptor domain.Descriptor
		err        error
	}
	aliceCh := make(chan outcome, 1)
	bobCh := make(chan outcome, 1)
	relayErrCh := make(chan error, 1)

	go func() {
		d, err := RunInitiator(ctx, aliceAdapter, sessionCtx, "Relay", aliceDescriptor, [32]byte{0xC1}, prove, verify)
		aliceCh <- outcome{d, err}
	}()
	go func() {
		d, err := RunResponder(ctx, bobAdapter, sessionCtx, "Relay", bobDescriptor, [32]byte{0xC2}, prove, verify)
		bobCh <- outcome{d, err}
	}()
	go func() {
		relayErrCh <- RunRelay(ctx, relayAdapter, sessionCtx, "Initiator", "Responder")
	}()

	aliceOut := <-aliceCh
	bobOut := <-bobCh
	require.NoError(t, <-relayErrCh)

	require.NoError(t, aliceOut.err)
	require.NoError(t, bobOut.err)
	require.Equal(t, bobDescriptor, aliceOut.descriptor)
	require.Equal(t, aliceDescriptor, bobOut.descriptor)
}
