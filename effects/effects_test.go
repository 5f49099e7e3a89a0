package effects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/securestore"
	"github.com/aura-network/aura/transport"
)

func TestDeterministicRandomReplaysFromSeed(t *testing.T) {
	a := NewDeterministicRandom(7)
	b := NewDeterministicRandom(7)
	require.Equal(t, a.Uint64(), b.Uint64())
	require.Equal(t, a.Float64(), b.Float64())
}

func TestFrozenClockAdvance(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := NewFrozenClock(start)
	require.Equal(t, start, clock.Now())
	clock.Advance(time.Minute)
	require.Equal(t, start.Add(time.Minute), clock.Now())
}

func TestSeededCryptoProducesUsableNonceCommitment(t *testing.T) {
	random := NewDeterministicRandom(1)
	crypto := NewSeededCrypto(random)

	nonces, commitment, err := crypto.Round1Commit()
	require.NoError(t, err)
	require.NotNil(t, nonces.Hiding)
	require.NotNil(t, commitment.Hiding)
}

func TestFaultInjectingNetworkDropsAllMessagesAtProbabilityOne(t *testing.T) {
	net := transport.NewLoopbackNetwork()
	alice := net.Endpoint(aid.Derive("D", []byte("alice")))
	bob := net.Endpoint(aid.Derive("D", []byte("bob")))
	channel := aid.Derive("CH", []byte("test"))
	random := NewDeterministicRandom(3)
	faulty := NewFaultInjectingNetwork(alice, random, FaultConfig{MessageLossProbability: 1})

	var delivered bool
	bob.Recv(channel, func(transport.Envelope) { delivered = true })

	require.NoError(t, faulty.Send(channel, aid.Derive("D", []byte("bob")), []byte("x")))
	require.False(t, delivered)
}

func TestNewTestingRegistryWiresJournalAndSecureStorage(t *testing.T) {
	net := transport.NewLoopbackNetwork().Endpoint(aid.Derive("D", []byte("self")))
	jrnl := journal.New()
	secure, err := securestore.NewMemStore(nil)
	require.NoError(t, err)

	registry, clock := NewTestingRegistry(42, time.Unix(0, 0), net, jrnl, secure)
	require.NotNil(t, registry.Journal)
	require.NotNil(t, registry.FlowBudget)
	require.Equal(t, time.Unix(0, 0), clock.Now())
}

func TestRegistryDispatchRoutesToRegisteredKind(t *testing.T) {
	net := transport.NewLoopbackNetwork().Endpoint(aid.Derive("D", []byte("self")))
	jrnl := journal.New()
	secure, err := securestore.NewMemStore(nil)
	require.NoError(t, err)
	registry, _ := NewTestingRegistry(1, time.Unix(0, 0), net, jrnl, secure)

	registry.RegisterDispatch(KindRandom, func(ctx context.Context, op Op, payload []byte) ([]byte, error) {
		return payload, nil
	})

	out, err := registry.Dispatch(context.Background(), KindRandom, "echo", []byte("hi"))
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), out)
}
