package choreo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

// textMessage is a minimal Message implementation used only by these
// tests, standing in for a concrete protocol message type.
type textMessage struct {
	body string
}

func (m textMessage) Tag() string    { return "text" }
func (m textMessage) Encode() []byte { return []byte(m.body) }

func decodeText(body []byte) (Message, error) {
	return textMessage{body: string(body)}, nil
}

func newTestPair(t *testing.T) (leader *Adapter, witness *Adapter, leaderID, witnessID aid.AuthorityId, sessionCtx aid.ContextId) {
	t.Helper()

	leaderID = aid.Derive("D", []byte("leader"))
	witnessID = aid.Derive("D", []byte("witness"))
	sessionCtx = aid.Derive("CTX", []byte("session"))
	channel := aid.Derive("CH", []byte("session"))

	net := transport.NewLoopbackNetwork()
	leaderTransport := net.Endpoint(leaderID)
	witnessTransport := net.Endpoint(witnessID)

	roleMap := map[Role]aid.AuthorityId{"Leader": leaderID, "Witness": witnessID}

	leaderJournal := journal.New()
	witnessJournal := journal.New()
	for _, j := range []*journal.Journal{leaderJournal, witnessJournal} {
		j.GrantCaps(journal.CapsFrom(
			journal.Grant{Subject: leaderID, Action: "choreo.send"},
			journal.Grant{Subject: witnessID, Action: "choreo.send"},
		))
		j.SetFlowLimit(sessionCtx, leaderID, 1000, 1)
		j.SetFlowLimit(sessionCtx, witnessID, 1000, 1)
	}

	leaderChain := guard.NewChain(
		&guard.CapGuard{Journal: leaderJournal},
		&guard.FlowGuard{Journal: leaderJournal},
		guard.NewLeakGuard(),
		&guard.SendStep{Transport: leaderTransport, Self: leaderID},
		&guard.JournalCoupler{Journal: leaderJournal},
	)
	witnessChain := guard.NewChain(
		&guard.CapGuard{Journal: witnessJournal},
		&guard.FlowGuard{Journal: witnessJournal},
		guard.NewLeakGuard(),
		&guard.SendStep{Transport: witnessTransport, Self: witnessID},
		&guard.JournalCoupler{Journal: witnessJournal},
	)

	leaderRegistry := NewMessageRegistry()
	leaderRegistry.Register("text", decodeText)
	witnessRegistry := NewMessageRegistry()
	witnessRegistry.Register("text", decodeText)

	leader = NewAdapter("Leader", leaderID, roleMap, nil, leaderTransport, channel, leaderRegistry, leaderChain)
	witness = NewAdapter("Witness", witnessID, roleMap, nil, witnessTransport, channel, witnessRegistry, witnessChain)
	return leader, witness, leaderID, witnessID, sessionCtx
}

func TestSendRecvDeliversDecodedMessage(t *testing.T) {
	leader, witness, _, _, sessionCtx := newTestPair(t)

	leader.Enqueue("Witness", textMessage{body: "hello"})
	require.NoError(t, leader.Send(context.Background(), sessionCtx, "Witness", "choreo.send", 1))

	msg, err := witness.Recv(context.Background(), "Leader")
	require.NoError(t, err)
	require.Equal(t, textMessage{body: "hello"}, msg)
}

func TestSendFallsBackToProviderWhenQueueEmpty(t *testing.T) {
	leader, witness, _, _, sessionCtx := newTestPair(t)

	leader.SetProvider(func(ctx context.Context, to Role) (Message, error) {
		return textMessage{body: "from-provider:" + string(to)}, nil
	})

	require.NoError(t, leader.Send(context.Background(), sessionCtx, "Witness", "choreo.send", 1))

	msg, err := witness.Recv(context.Background(), "Leader")
	require.NoError(t, err)
	require.Equal(t, textMessage{body: "from-provider:Witness"}, msg)
}

func TestRecvCancelledByContext(t *testing.T) {
	_, witness, _, _, _ := newTestPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := witness.Recv(ctx, "Leader")
	require.ErrorIs(t, err, ErrCancelled)
}

func TestResolveFamilyAndRange(t *testing.T) {
	leaderID := aid.Derive("D", []byte("leader"))
	witnessA := aid.Derive("D", []byte("wa"))
	witnessB := aid.Derive("D", []byte("wb"))

	families := map[string]Family{
		"Witness": func() []Role { return []Role{"W0", "W1"} },
	}
	roleMap := map[Role]aid.AuthorityId{"Leader": leaderID, "W0": witnessA, "W1": witnessB}

	net := transport.NewLoopbackNetwork()
	channel := aid.Derive("CH", []byte("family"))
	jrnl := journal.New()
	chain := guard.NewChain(
		&guard.CapGuard{Journal: jrnl},
		&guard.FlowGuard{Journal: jrnl},
		guard.NewLeakGuard(),
		&guard.SendStep{Transport: net.Endpoint(leaderID), Self: leaderID},
		&guard.JournalCoupler{Journal: jrnl},
	)

	a := NewAdapter("Leader", leaderID, roleMap, families, net.Endpoint(leaderID), channel, NewMessageRegistry(), chain)

	all, err := a.ResolveFamily("Witness")
	require.NoError(t, err)
	require.Equal(t, []Role{"W0", "W1"}, all)

	slice, err := a.ResolveRange("Witness", 0, 1)
	require.NoError(t, err)
	require.Equal(t, []Role{"W0"}, slice)

	_, err = a.ResolveRange("Witness", 0, 5)
	require.Error(t, err)
}

func TestSelectBranchPrefersFIFOOverDecider(t *testing.T) {
	leaderID := aid.Derive("D", []byte("leader"))
	net := transport.NewLoopbackNetwork()
	channel := aid.Derive("CH", []byte("branch"))
	jrnl := journal.New()
	chain := guard.NewChain(
		&guard.CapGuard{Journal: jrnl},
		&guard.FlowGuard{Journal: jrnl},
		guard.NewLeakGuard(),
		&guard.SendStep{Transport: net.Endpoint(leaderID), Self: leaderID},
		&guard.JournalCoupler{Journal: jrnl},
	)
	a := NewAdapter("Leader", leaderID, map[Role]aid.AuthorityId{"Leader": leaderID}, nil, net.Endpoint(leaderID), channel, NewMessageRegistry(), chain)

	a.SetBranchDecider(func(ctx context.Context, choices []string) (string, error) {
		t.Fatal("decider should not be consulted while the FIFO has a queued branch")
		return "", nil
	})
	a.EnqueueBranch("commit")

	label, err := a.SelectBranch(context.Background(), []string{"commit", "abort"})
	require.NoError(t, err)
	require.Equal(t, "commit", label)

	a.SetBranchDecider(func(ctx context.Context, choices []string) (string, error) {
		return "abort", nil
	})
	label, err = a.SelectBranch(context.Background(), []string{"commit", "abort"})
	require.NoError(t, err)
	require.Equal(t, "abort", label)
}
