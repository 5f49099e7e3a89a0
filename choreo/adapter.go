package choreo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/guard"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

// ErrCancelled is returned by a pending Recv or SelectBranch when its
// context is cancelled, and by Send when the context is already done
// (spec §5: "pending recv calls fail with cancelled, pending sends
// complete or return cancelled atomically").
var ErrCancelled = errors.New("choreo: cancelled")

// Role names one participant slot in a protocol's static role set.
type Role string

// Family resolves a parameterised role family (e.g. Witness[N]) to its
// member roles in a stable, deterministic order.
type Family func() []Role

// MessageProvider supplies an outbound payload for Send when the FIFO
// queue for that peer is empty, used where the payload depends on a
// prior receive.
type MessageProvider func(ctx context.Context, to Role) (Message, error)

// BranchDecider resolves SelectBranch when the branch FIFO is empty.
type BranchDecider func(ctx context.Context, choices []string) (string, error)

const inboxBuffer = 64

// Adapter drives one choreography session (spec §4.5): it resolves roles
// to authority IDs, wraps every outbound message in the guard chain, and
// dispatches inbound bytes to the right peer's Recv by wire tag.
//
// An Adapter is single-threaded cooperative: Send, Recv, ResolveFamily,
// ResolveRange and SelectBranch must be called from one driver goroutine
// at a time. The transport delivery callback registered by NewAdapter
// runs on whatever goroutine the transport invokes it from and only ever
// pushes onto a peer's inbox channel, never reads the adapter's other
// state, so it never races with the driver goroutine.
type Adapter struct {
	self     Role
	selfID   aid.AuthorityId
	roleMap  map[Role]aid.AuthorityId
	idToRole map[aid.AuthorityId]Role
	families map[string]Family

	transport transport.Transport
	channel   aid.ChannelId
	registry  *MessageRegistry
	chain     *guard.Chain

	provider MessageProvider
	decider  BranchDecider

	mu       sync.Mutex
	inboxes  map[Role]chan Message
	outbox   map[Role][]Message
	branches []string
	closed   bool
}

// NewAdapter builds an adapter for self, playing role self with identity
// selfID, over channel, wrapping every send in chain. families are the
// parameterised role groups this session may resolve; roleMap must cover
// every role the protocol addresses directly by name.
func NewAdapter(
	self Role,
	selfID aid.AuthorityId,
	roleMap map[Role]aid.AuthorityId,
	families map[string]Family,
	tr transport.Transport,
	channel aid.ChannelId,
	registry *MessageRegistry,
	chain *guard.Chain,
) *Adapter {
	idToRole := make(map[aid.AuthorityId]Role, len(roleMap))
	for role, id := range roleMap {
		idToRole[id] = role
	}

	a := &Adapter{
		self:      self,
		selfID:    selfID,
		roleMap:   roleMap,
		idToRole:  idToRole,
		families:  families,
		transport: tr,
		channel:   channel,
		registry:  registry,
		chain:     chain,
		inboxes:   make(map[Role]chan Message),
		outbox:    make(map[Role][]Message),
	}

	tr.Recv(channel, a.deliver)
	return a
}

// SetProvider installs the MessageProvider used by Send when a peer's
// FIFO queue is empty.
func (a *Adapter) SetProvider(p MessageProvider) { a.provider = p }

// SetBranchDecider installs the BranchDecider used by SelectBranch when
// the branch FIFO is empty.
func (a *Adapter) SetBranchDecider(d BranchDecider) { a.decider = d }

// Enqueue pushes msg onto the outbound FIFO for to, to be consumed by a
// future Send(ctx, to, ...) call that finds its queue non-empty.
func (a *Adapter) Enqueue(to Role, msg Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outbox[to] = append(a.outbox[to], msg)
}

// EnqueueBranch pushes a pre-decided branch label, consumed by a future
// SelectBranch call ahead of invoking the BranchDecider.
func (a *Adapter) EnqueueBranch(label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.branches = append(a.branches, label)
}

func (a *Adapter) inbox(role Role) chan Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch, ok := a.inboxes[role]
	if !ok {
		ch = make(chan Message, inboxBuffer)
		a.inboxes[role] = ch
	}
	return ch
}

func (a *Adapter) deliver(env transport.Envelope) {
	a.mu.Lock()
	role, ok := a.idToRole[env.From]
	a.mu.Unlock()
	if !ok {
		return // not a participant in this session's role map
	}

	msg, err := a.registry.DecodeEnvelope(env.Payload)
	if err != nil {
		return // malformed or unregistered payload: dropped, not fatal to the session
	}

	select {
	case a.inbox(role) <- msg:
	default:
		// inbox full: the driver goroutine is behind the wire. Dropping
		// here rather than blocking the transport's delivery goroutine
		// matches the "best-effort transport semantics" loopback already
		// assumes; reliable delivery is syncx's job, not choreo's.
	}
}

func (a *Adapter) nextOutbound(ctx context.Context, to Role) (Message, error) {
	a.mu.Lock()
	queue := a.outbox[to]
	if len(queue) > 0 {
		msg := queue[0]
		a.outbox[to] = queue[1:]
		a.mu.Unlock()
		return msg, nil
	}
	a.mu.Unlock()

	if a.provider == nil {
		return nil, fmt.Errorf("choreo: no queued message for %s and no provider installed", to)
	}
	return a.provider(ctx, to)
}

// Send delivers a message to role to, guarded by the chain (spec §4.4),
// charging cost against the context's flow budget under action. The
// payload comes from the per-peer FIFO if non-empty, otherwise from the
// installed MessageProvider.
func (a *Adapter) Send(ctx context.Context, sessionCtx aid.ContextId, to Role, action journal.Action, cost uint64) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	peerID, ok := a.roleMap[to]
	if !ok {
		return fmt.Errorf("choreo: unknown role %s", to)
	}

	msg, err := a.nextOutbound(ctx, to)
	if err != nil {
		return err
	}

	send := &guard.Send{
		Context: sessionCtx,
		Self:    a.selfID,
		Peer:    peerID,
		Action:  action,
		Cost:    cost,
		Payload: EncodeEnvelope(msg),
		Channel: a.channel,
	}
	return a.chain.Run(ctx, send)
}

// Recv blocks until a message tagged for role from arrives, or ctx is
// cancelled.
func (a *Adapter) Recv(ctx context.Context, from Role) (Message, error) {
	select {
	case msg := <-a.inbox(from):
		return msg, nil
	case <-ctx.Done():
		return nil, ErrCancelled
	}
}

// ResolveFamily returns the current membership of role family name.
func (a *Adapter) ResolveFamily(name string) ([]Role, error) {
	family, ok := a.families[name]
	if !ok {
		return nil, fmt.Errorf("choreo: unregistered family %q", name)
	}
	return family(), nil
}

// ResolveRange returns family name's members in [start, end).
func (a *Adapter) ResolveRange(name string, start, end int) ([]Role, error) {
	members, err := a.ResolveFamily(name)
	if err != nil {
		return nil, err
	}
	if start < 0 || end > len(members) || start > end {
		return nil, fmt.Errorf("choreo: range [%d, %d) out of bounds for family %q of size %d", start, end, name, len(members))
	}
	return members[start:end], nil
}

// SelectBranch resolves one of choices, from the branch FIFO if
// non-empty, otherwise from the installed BranchDecider.
func (a *Adapter) SelectBranch(ctx context.Context, choices []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}

	a.mu.Lock()
	if len(a.branches) > 0 {
		label := a.branches[0]
		a.branches = a.branches[1:]
		a.mu.Unlock()
		return label, nil
	}
	a.mu.Unlock()

	if a.decider == nil {
		return "", fmt.Errorf("choreo: no queued branch and no decider installed")
	}
	label, err := a.decider(ctx, choices)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if c == label {
			return label, nil
		}
	}
	return "", fmt.Errorf("choreo: decider returned %q, not among %v", label, choices)
}

// Close ends the session, releasing the transport channel (spec §5's
// "choreography sessions terminate and emit an end_session to release
// transport resources").
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.transport.Close(a.channel)
}
