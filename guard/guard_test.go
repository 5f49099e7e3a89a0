package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

func newTestSend(jrnl *journal.Journal, action journal.Action, cost uint64) *Send {
	self := aid.Derive("D", []byte("self"))
	peer := aid.Derive("D", []byte("peer"))
	ctx := aid.Derive("CTX", []byte("test"))
	return &Send{
		Context: ctx,
		Self:    self,
		Peer:    peer,
		Action:  action,
		Cost:    cost,
		Payload: []byte("payload"),
		Channel: aid.Derive("CH", []byte("test")),
	}
}

func TestCapGuardDeniesWithoutGrant(t *testing.T) {
	jrnl := journal.New()
	guard := &CapGuard{Journal: jrnl}
	send := newTestSend(jrnl, "consensus.initiate", 0)

	err := guard.Apply(context.Background(), send)
	require.ErrorIs(t, err, ErrAuthorizationDenied)
}

func TestCapGuardAllowsWithGrant(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "consensus.initiate", 0)
	jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: send.Self, Action: send.Action}))

	guard := &CapGuard{Journal: jrnl}
	require.NoError(t, guard.Apply(context.Background(), send))
}

func TestFlowGuardChargesAndAttachesReceipt(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "msg.send", 10)
	jrnl.SetFlowLimit(send.Context, send.Self, 100, 1)

	guard := &FlowGuard{Journal: jrnl}
	require.NoError(t, guard.Apply(context.Background(), send))
	require.Equal(t, uint64(10), send.Receipt.Cost)

	budget := jrnl.GetFlowBudget(send.Context, send.Self)
	require.Equal(t, uint64(10), budget.Spent)
}

func TestFlowGuardFailsWhenBudgetExhausted(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "msg.send", 10)
	jrnl.SetFlowLimit(send.Context, send.Self, 5, 1)

	guard := &FlowGuard{Journal: jrnl}
	err := guard.Apply(context.Background(), send)
	require.ErrorIs(t, err, journal.ErrBudgetExhausted)
}

func TestLeakGuardNoOpWithoutAnnotation(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "msg.send", 0)

	guard := NewLeakGuard()
	require.NoError(t, guard.Apply(context.Background(), send))
}

func TestLeakGuardExhaustsBudget(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "msg.send", 6)
	send.ObserverClass = "auditor"
	key := LeakKey{Context: send.Context, ObserverClass: "auditor"}

	guard := NewLeakGuard()
	guard.SetLimit(key, 10)

	require.NoError(t, guard.Apply(context.Background(), send))
	require.Equal(t, uint64(4), guard.Remaining(key))

	send.Cost = 5
	err := guard.Apply(context.Background(), send)
	require.ErrorIs(t, err, ErrLeakBudgetExhausted)
}

func TestSendStepDeliversOverLoopback(t *testing.T) {
	jrnl := journal.New()
	net := transport.NewLoopbackNetwork()

	self := aid.Derive("D", []byte("self"))
	peer := aid.Derive("D", []byte("peer"))
	channel := aid.Derive("CH", []byte("test"))

	selfEndpoint := net.Endpoint(self)
	peerEndpoint := net.Endpoint(peer)

	var got transport.Envelope
	peerEndpoint.Recv(channel, func(env transport.Envelope) { got = env })

	send := newTestSend(jrnl, "msg.send", 0)
	send.Self, send.Peer, send.Channel = self, peer, channel

	step := &SendStep{Transport: selfEndpoint, Self: self}
	require.NoError(t, step.Apply(context.Background(), send))
	require.Equal(t, send.Payload, got.Payload)
	require.Equal(t, self, got.From)
}

func TestJournalCouplerMergesFactsAndRemoteSnapshot(t *testing.T) {
	jrnl := journal.New()
	send := newTestSend(jrnl, "msg.send", 0)

	subject := aid.Derive("S", []byte("subject"))
	facts := journal.NewFacts().With(journal.FactKey{Kind: "device_name", Subject: subject}, []byte("alice"))
	send.JournalFacts = &facts

	remoteJournal := journal.New()
	remoteJournal.GrantCaps(journal.CapsFrom(journal.Grant{Subject: subject, Action: "remote.action"}))
	remoteSnapshot := remoteJournal.Snapshot()
	send.JournalRemote = &remoteSnapshot

	coupler := &JournalCoupler{Journal: jrnl}
	require.NoError(t, coupler.Apply(context.Background(), send))

	require.Equal(t, []byte("alice"), jrnl.Snapshot().Facts.Get(journal.FactKey{Kind: "device_name", Subject: subject}).Entries()[0].Value)
	require.True(t, jrnl.Caps().Allows(subject, "remote.action"))
}

func TestChainShortCircuitsOnCapDenial(t *testing.T) {
	jrnl := journal.New()
	net := transport.NewLoopbackNetwork()
	self := aid.Derive("D", []byte("self"))
	peer := aid.Derive("D", []byte("peer"))
	selfEndpoint := net.Endpoint(self)
	net.Endpoint(peer)

	send := newTestSend(jrnl, "consensus.initiate", 10)
	send.Self, send.Peer = self, peer
	jrnl.SetFlowLimit(send.Context, self, 100, 1) // plenty of budget, should never be touched

	chain := NewChain(
		&CapGuard{Journal: jrnl},
		&FlowGuard{Journal: jrnl},
		NewLeakGuard(),
		&SendStep{Transport: selfEndpoint, Self: self},
		&JournalCoupler{Journal: jrnl},
	)

	err := chain.Run(context.Background(), send)
	require.ErrorIs(t, err, ErrAuthorizationDenied)

	budget := jrnl.GetFlowBudget(send.Context, self)
	require.Equal(t, uint64(0), budget.Spent, "flow must not be charged when capability check fails")
}

func TestChainShortCircuitsOnFlowExhaustion(t *testing.T) {
	jrnl := journal.New()
	net := transport.NewLoopbackNetwork()
	self := aid.Derive("D", []byte("self"))
	peer := aid.Derive("D", []byte("peer"))
	channel := aid.Derive("CH", []byte("test"))

	selfEndpoint := net.Endpoint(self)
	peerEndpoint := net.Endpoint(peer)

	delivered := false
	peerEndpoint.Recv(channel, func(transport.Envelope) { delivered = true })

	send := newTestSend(jrnl, "msg.send", 50)
	send.Self, send.Peer, send.Channel = self, peer, channel
	jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: self, Action: send.Action}))
	jrnl.SetFlowLimit(send.Context, self, 10, 1)

	chain := NewChain(
		&CapGuard{Journal: jrnl},
		&FlowGuard{Journal: jrnl},
		NewLeakGuard(),
		&SendStep{Transport: selfEndpoint, Self: self},
		&JournalCoupler{Journal: jrnl},
	)

	err := chain.Run(context.Background(), send)
	require.ErrorIs(t, err, journal.ErrBudgetExhausted)
	require.False(t, delivered, "transport must not be used when flow charge fails")
}

func TestChainRunsAllStepsOnSuccess(t *testing.T) {
	jrnl := journal.New()
	net := transport.NewLoopbackNetwork()
	self := aid.Derive("D", []byte("self"))
	peer := aid.Derive("D", []byte("peer"))
	channel := aid.Derive("CH", []byte("test"))

	selfEndpoint := net.Endpoint(self)
	peerEndpoint := net.Endpoint(peer)

	var got transport.Envelope
	peerEndpoint.Recv(channel, func(env transport.Envelope) { got = env })

	send := newTestSend(jrnl, "msg.send", 5)
	send.Self, send.Peer, send.Channel = self, peer, channel
	jrnl.GrantCaps(journal.CapsFrom(journal.Grant{Subject: self, Action: send.Action}))
	jrnl.SetFlowLimit(send.Context, self, 10, 1)

	subject := aid.Derive("S", []byte("subject"))
	facts := journal.NewFacts().With(journal.FactKey{Kind: "device_name", Subject: subject}, []byte("alice"))
	send.JournalFacts = &facts

	chain := NewChain(
		&CapGuard{Journal: jrnl},
		&FlowGuard{Journal: jrnl},
		NewLeakGuard(),
		&SendStep{Transport: selfEndpoint, Self: self},
		&JournalCoupler{Journal: jrnl},
	)

	require.NoError(t, chain.Run(context.Background(), send))
	require.Equal(t, send.Payload, got.Payload)
	require.Equal(t, []byte("alice"), jrnl.Snapshot().Facts.Get(journal.FactKey{Kind: "device_name", Subject: subject}).Entries()[0].Value)
}
