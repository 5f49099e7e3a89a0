// Package consensus implements the five-phase FROST consensus engine of
// spec §4.6: Execute -> NonceCommit -> Sign -> Result, with a fast path
// that collapses straight from Execute to Sign when the coordinator already
// holds cached round-1 commitments for the witness set.
//
// Grounded on the teacher's beam.Engine (consensus/beam/engine.go): a
// single Engine plays both roles (Propose drives a round as coordinator;
// registered envelope handlers react as a witness), state is held under one
// mutex, and a per-height/per-instance channel signals round completion —
// generalised here from BLS-plus-Ringtail dual-certificate blocks to
// FROST-Ed25519 threshold signature shares over the journal's CommitFact.
package consensus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	"github.com/aura-network/aura/journal"
	"github.com/aura-network/aura/transport"
)

// DefaultTimeout is the instance eviction window of spec §4.6. Instances
// past their deadline are evicted whenever the engine handles an inbound
// message or starts a round with Propose; there is no background cleanup
// timer.
const DefaultTimeout = 10 * time.Second

// Config configures one Engine.
type Config struct {
	Self      frost.Identifier
	Channel   aid.ChannelId
	KeyShare  frost.KeyShare
	PublicKey frost.PublicKeyPackage
	Threshold int
	Timeout   time.Duration
	Rand      io.Reader
}

// Engine runs one authority's view of the consensus protocol: it can
// initiate rounds as coordinator (Propose) and simultaneously answers
// other coordinators' rounds as a witness, over a shared transport.
type Engine struct {
	self      frost.Identifier
	channel   aid.ChannelId
	transport transport.Transport
	journal   *journal.Journal
	keyShare  frost.KeyShare
	pubKeys   frost.PublicKeyPackage
	threshold int
	timeout   time.Duration
	rng       io.Reader

	registry *choreo.MessageRegistry

	mu                sync.Mutex
	instances         map[aid.ID256]*Instance
	witnessNonces     map[aid.ID256]frost.Nonces                 // witness round-1 secrets, keyed by consensus_id, single use
	cachedCommitments map[frost.Identifier]frost.NonceCommitment // coordinator's fast-path cache, keyed by witness identity
	nextNonces        *frost.Nonces                              // this witness's pre-generated secret for the advertised fast-path commitment
	pending           map[aid.ID256]chan roundOutcome             // coordinator's in-flight Propose calls
	byzantineSuspects map[frost.Identifier]struct{}
	conflicts         map[aid.ID256][]ConflictReportMsg
}

type roundOutcome struct {
	fact journal.CommitFact
	err  error
}

// NewEngine constructs an Engine bound to tr over channel, and registers its
// envelope handler.
func NewEngine(cfg Config, jrnl *journal.Journal, tr transport.Transport) *Engine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	registry := choreo.NewMessageRegistry()
	RegisterMessages(registry)

	e := &Engine{
		self:              cfg.Self,
		channel:           cfg.Channel,
		transport:         tr,
		journal:           jrnl,
		keyShare:          cfg.KeyShare,
		pubKeys:           cfg.PublicKey,
		threshold:         cfg.Threshold,
		timeout:           timeout,
		rng:               cfg.Rand,
		registry:          registry,
		instances:         make(map[aid.ID256]*Instance),
		witnessNonces:     make(map[aid.ID256]frost.Nonces),
		cachedCommitments: make(map[frost.Identifier]frost.NonceCommitment),
		pending:           make(map[aid.ID256]chan roundOutcome),
		byzantineSuspects: make(map[frost.Identifier]struct{}),
		conflicts:         make(map[aid.ID256][]ConflictReportMsg),
	}
	tr.Recv(cfg.Channel, e.dispatch)
	return e
}

// ByzantineSuspects returns the identifiers this engine has marked suspect
// after a signature verification failure (spec §4.6 failure semantics).
func (e *Engine) ByzantineSuspects() []frost.Identifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]frost.Identifier, 0, len(e.byzantineSuspects))
	for id := range e.byzantineSuspects {
		out = append(out, id)
	}
	return out
}

func (e *Engine) dispatch(env transport.Envelope) {
	e.mu.Lock()
	e.evictStaleLocked()
	e.mu.Unlock()

	msg, err := e.registry.DecodeEnvelope(env.Payload)
	if err != nil {
		return // malformed envelope; best-effort transport, silently dropped
	}
	switch m := msg.(type) {
	case ExecuteMsg:
		e.onExecute(m, env.From)
	case NonceCommitMsg:
		e.onNonceCommit(m)
	case SignRequestMsg:
		e.onSignRequest(m)
	case SignShareMsg:
		e.onSignShare(m)
	case ConflictReportMsg:
		e.onConflictReport(m)
	case ResultMsg:
		e.onResult(m)
	}
}

func (e *Engine) send(to frost.Identifier, msg choreo.Message) {
	_ = e.transport.Send(e.channel, to, choreo.EncodeEnvelope(msg))
}

func (e *Engine) broadcast(msg choreo.Message) {
	_ = e.transport.Broadcast(e.channel, choreo.EncodeEnvelope(msg))
}

// Propose drives one consensus round as coordinator over operation,
// blocking until the round reaches Result (success or failure) or ctx is
// cancelled. witnesses is the full signer set for this round, including
// the coordinator itself if it also holds a key share.
func (e *Engine) Propose(ctx context.Context, operation []byte, witnesses []frost.Identifier) (journal.CommitFact, error) {
	prestate := e.journal.PrestateHash()
	operationHash := aid.Hash("OP", operation)

	var nonceSeed [32]byte
	if _, err := io.ReadFull(randSource(e.rng), nonceSeed[:]); err != nil {
		return journal.CommitFact{}, fmt.Errorf("consensus: allocate consensus id: %w", err)
	}
	consensusID := aid.Hash("CONSENSUS", prestate[:], operationHash[:], nonceSeed[:])

	e.mu.Lock()
	fastPath := false
	cached := make(map[frost.Identifier]frost.NonceCommitment, len(witnesses))
	for _, w := range witnesses {
		if c, ok := e.cachedCommitments[w]; ok {
			cached[w] = c
		}
	}
	if len(cached) >= e.threshold {
		fastPath = true
	} else {
		cached = nil
	}

	inst := &Instance{
		ConsensusID:    consensusID,
		Role:           RoleCoordinator,
		Phase:          PhaseExecute,
		PrestateHash:   prestate,
		OperationHash:  operationHash,
		OperationBytes: operation,
		Message:        operationHash[:],
		FastPath:       fastPath,
		Coordinator:    e.self,
		Deadline:       time.Now().Add(e.timeout),
		Commitments:    map[frost.Identifier]frost.NonceCommitment{},
		Shares:         map[frost.Identifier]frost.SignatureShare{},
	}
	if fastPath {
		inst.Commitments = cached
		inst.Phase = PhaseSign
	}
	e.instances[consensusID] = inst
	outcome := make(chan roundOutcome, 1)
	e.pending[consensusID] = outcome
	e.evictStaleLocked()
	e.mu.Unlock()

	e.broadcast(ExecuteMsg{
		ConsensusID:       consensusID,
		Coordinator:       e.self,
		PrestateHash:      prestate,
		OperationHash:     operationHash,
		OperationBytes:    operation,
		CachedCommitments: cached,
	})

	select {
	case res := <-outcome:
		return res.fact, res.err
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.instances, consensusID)
		delete(e.pending, consensusID)
		e.mu.Unlock()
		return journal.CommitFact{}, ctx.Err()
	}
}

func randSource(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return cryptoRandReader{}
}

// onExecute is the witness role's entry point (spec §4.6 witness steps 1-2).
func (e *Engine) onExecute(m ExecuteMsg, from frost.Identifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evictStaleLocked()

	local := e.journal.PrestateHash()
	if local != m.PrestateHash {
		e.mu.Unlock()
		e.send(m.Coordinator, ConflictReportMsg{
			ConsensusID:       m.ConsensusID,
			Reporter:          e.self,
			LocalPrestateHash: local,
		})
		e.mu.Lock()
		return
	}

	inst := &Instance{
		ConsensusID:    m.ConsensusID,
		Role:           RoleWitness,
		PrestateHash:   m.PrestateHash,
		OperationHash:  m.OperationHash,
		OperationBytes: m.OperationBytes,
		Message:        m.OperationHash[:],
		Coordinator:    from,
		Deadline:       time.Now().Add(e.timeout),
	}
	e.instances[m.ConsensusID] = inst

	if _, ok := m.CachedCommitments[e.self]; ok && len(m.CachedCommitments) >= e.threshold {
		// Fast path: the coordinator already has our contribution to the
		// aggregated nonce set from a prior round's SignShare; skip
		// straight to producing this round's signature share.
		inst.FastPath = true
		inst.Phase = PhaseSign
		inst.Commitments = m.CachedCommitments
		e.mu.Unlock()
		e.signAndRespond(inst)
		e.mu.Lock()
		return
	}

	nonces, commitment, err := frost.Round1Commit(e.rng)
	if err != nil {
		delete(e.instances, m.ConsensusID)
		return
	}
	inst.Phase = PhaseNonceCommit
	e.witnessNonces[m.ConsensusID] = nonces

	e.mu.Unlock()
	e.send(from, NonceCommitMsg{ConsensusID: m.ConsensusID, Signer: e.self, Commitment: commitment})
	e.mu.Lock()
}

// onNonceCommit is the coordinator role's step 3.
func (e *Engine) onNonceCommit(m NonceCommitMsg) {
	e.mu.Lock()
	inst, ok := e.instances[m.ConsensusID]
	if !ok || inst.Role != RoleCoordinator || inst.Phase != PhaseExecute {
		e.mu.Unlock()
		return
	}
	inst.Commitments[m.Signer] = m.Commitment
	if len(inst.Commitments) < e.threshold {
		e.mu.Unlock()
		return
	}
	if err := inst.transition(PhaseSign); err != nil {
		e.mu.Unlock()
		return
	}
	commitments := cloneCommitments(inst.Commitments)
	e.mu.Unlock()

	e.broadcastSignRequest(m.ConsensusID, commitments)
}

func (e *Engine) broadcastSignRequest(consensusID aid.ID256, commitments map[frost.Identifier]frost.NonceCommitment) {
	req := SignRequestMsg{ConsensusID: consensusID, Commitments: commitments}
	for signer := range commitments {
		if signer == e.self {
			continue
		}
		e.send(signer, req)
	}
}

// onSignRequest is the witness role's step 3.
func (e *Engine) onSignRequest(m SignRequestMsg) {
	e.mu.Lock()
	inst, ok := e.instances[m.ConsensusID]
	if !ok || inst.Role != RoleWitness {
		e.mu.Unlock()
		return
	}
	nonces, ok := e.witnessNonces[m.ConsensusID]
	if !ok {
		e.mu.Unlock()
		return // already consumed or evicted; nonces are strictly single-use
	}
	delete(e.witnessNonces, m.ConsensusID)
	inst.Commitments = m.Commitments
	if err := inst.transition(PhaseSign); err != nil {
		e.mu.Unlock()
		return
	}
	inst.Nonces = nonces
	e.mu.Unlock()

	e.signAndRespond(inst)
}

// signAndRespond produces this witness's signature share for inst. On the
// fast path, inst carries no private Nonces of its own (the round skipped
// NonceCommit entirely) so this reuses the secret half of whatever
// commitment this engine last opportunistically advertised as
// NextCommitment; if none is cached, the coordinator's fast-path claim
// cannot be honoured and the round is silently dropped from this witness's
// side (the coordinator will simply fall short of threshold and retry).
// Either way, a fresh round-1 pair is generated and cached afterward to
// offer as the next round's fast-path commitment.
func (e *Engine) signAndRespond(inst *Instance) {
	nonces := inst.Nonces
	if nonces.Hiding == nil {
		e.mu.Lock()
		cached := e.nextNonces
		e.nextNonces = nil
		e.mu.Unlock()
		if cached == nil {
			return
		}
		nonces = *cached
	}

	share, err := frost.SignShare(e.keyShare, nonces, inst.Commitments, e.pubKeys, inst.Message)
	if err != nil {
		return
	}

	var next *frost.NonceCommitment
	if nextSecret, nextCommitment, err := frost.Round1Commit(e.rng); err == nil {
		e.mu.Lock()
		e.nextNonces = &nextSecret
		e.mu.Unlock()
		next = &nextCommitment
	}

	e.send(inst.Coordinator, SignShareMsg{ConsensusID: inst.ConsensusID, Share: share, NextCommitment: next})
}

// onSignShare is the coordinator role's steps 5-6.
func (e *Engine) onSignShare(m SignShareMsg) {
	e.mu.Lock()
	inst, ok := e.instances[m.ConsensusID]
	if !ok || inst.Role != RoleCoordinator || inst.Phase != PhaseSign {
		e.mu.Unlock()
		return
	}

	pub, known := e.pubKeys.Participants[m.Share.Identifier]
	if !known || !frost.VerifyShare(m.Share, inst.Commitments, pub, e.pubKeys, inst.Message) {
		e.byzantineSuspects[m.Share.Identifier] = struct{}{}
		e.failInstanceLocked(inst, fmt.Errorf("consensus: invalid signature share from %s", m.Share.Identifier))
		e.mu.Unlock()
		return
	}

	if _, dup := inst.Shares[m.Share.Identifier]; dup {
		e.mu.Unlock()
		return
	}
	inst.Shares[m.Share.Identifier] = m.Share
	if m.NextCommitment != nil {
		e.cachedCommitments[m.Share.Identifier] = *m.NextCommitment
	}

	if len(inst.Shares) < e.threshold {
		e.mu.Unlock()
		return
	}

	shares := make([]frost.SignatureShare, 0, len(inst.Shares))
	for _, s := range inst.Shares {
		shares = append(shares, s)
	}
	commitments := cloneCommitments(inst.Commitments)
	message := inst.Message
	e.mu.Unlock()

	sig, err := frost.Aggregate(commitments, shares, e.pubKeys, message)
	if err != nil {
		e.mu.Lock()
		e.failInstanceLocked(inst, err)
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	if err := inst.transition(PhaseResult); err != nil {
		e.mu.Unlock()
		return
	}

	sortedSigners := make([]aid.ID256, 0, len(inst.Shares))
	for id := range inst.Shares {
		sortedSigners = append(sortedSigners, id)
	}
	sortIdentifiers(sortedSigners)

	fact := journal.CommitFact{
		ConsensusID:        inst.ConsensusID,
		PrestateHash:       inst.PrestateHash,
		OperationHash:      inst.OperationHash,
		OperationBytes:     inst.OperationBytes,
		ThresholdSignature: sig.Bytes(),
		GroupPublicKey:     e.pubKeys.Group.Bytes(),
		Participants:       sortedSigners,
		Threshold:          e.threshold,
		FastPath:           inst.FastPath,
		TimestampUnixMilli: nowMillis(),
	}
	inst.CommitFactDone = true
	delete(e.instances, inst.ConsensusID)
	outcome, hasPending := e.pending[inst.ConsensusID]
	delete(e.pending, inst.ConsensusID)
	e.mu.Unlock()

	if appendErr := e.journal.AppendCommitFact(fact); appendErr != nil {
		if hasPending {
			outcome <- roundOutcome{err: appendErr}
		}
		return
	}

	e.broadcast(ResultMsg{Fact: FactWire{
		ConsensusID:        fact.ConsensusID,
		PrestateHash:       fact.PrestateHash,
		OperationHash:      fact.OperationHash,
		OperationBytes:     fact.OperationBytes,
		ThresholdSignature: fact.ThresholdSignature,
		GroupPublicKey:     fact.GroupPublicKey,
		Participants:       fact.Participants,
		Threshold:          fact.Threshold,
		FastPath:           fact.FastPath,
		TimestampUnixMilli: fact.TimestampUnixMilli,
	}})

	if hasPending {
		outcome <- roundOutcome{fact: fact}
	}
}

// failInstanceLocked fails inst's round in place (spec §4.6: "fatal for the
// instance"); e.mu must be held. The caller retries with a fresh
// consensus_id if it wants another attempt.
func (e *Engine) failInstanceLocked(inst *Instance, cause error) {
	delete(e.instances, inst.ConsensusID)
	delete(e.witnessNonces, inst.ConsensusID)
	if outcome, ok := e.pending[inst.ConsensusID]; ok {
		delete(e.pending, inst.ConsensusID)
		outcome <- roundOutcome{err: cause}
	}
}

func (e *Engine) onConflictReport(m ConflictReportMsg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conflicts[m.ConsensusID] = append(e.conflicts[m.ConsensusID], m)
	// Spec §4.6: a conflict report is recorded, not retried in-instance;
	// escalation to the recovery subsystem happens above this layer.
}

// Conflicts returns the conflict reports recorded against consensusID.
func (e *Engine) Conflicts(consensusID aid.ID256) []ConflictReportMsg {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ConflictReportMsg(nil), e.conflicts[consensusID]...)
}

// onResult is the witness role's step 4: verify and drop.
func (e *Engine) onResult(m ResultMsg) {
	f := m.Fact
	fact := journal.CommitFact{
		ConsensusID:        f.ConsensusID,
		PrestateHash:       f.PrestateHash,
		OperationHash:      f.OperationHash,
		OperationBytes:     f.OperationBytes,
		ThresholdSignature: f.ThresholdSignature,
		GroupPublicKey:     f.GroupPublicKey,
		Participants:       f.Participants,
		Threshold:          f.Threshold,
		FastPath:           f.FastPath,
		TimestampUnixMilli: f.TimestampUnixMilli,
	}

	group := frost.GroupPublicKey{}
	point, err := decodePoint(fact.GroupPublicKey)
	if err == nil {
		group.Point = point
	}
	sig, err := decodeSignature(fact.ThresholdSignature)
	if err != nil || !frost.Verify(group, fact.OperationHash[:], sig) {
		e.mu.Lock()
		delete(e.instances, fact.ConsensusID)
		delete(e.witnessNonces, fact.ConsensusID)
		e.mu.Unlock()
		return
	}

	_ = e.journal.AppendCommitFact(fact)

	e.mu.Lock()
	delete(e.instances, fact.ConsensusID)
	delete(e.witnessNonces, fact.ConsensusID)
	e.mu.Unlock()
}

// evictStaleLocked drops instances past their deadline, freeing their nonce
// caches (spec §4.6: "evicted instances free their nonce cache to avoid
// reuse"). e.mu must be held.
func (e *Engine) evictStaleLocked() {
	now := time.Now()
	for id, inst := range e.instances {
		if inst.Deadline.IsZero() || now.Before(inst.Deadline) {
			continue
		}
		delete(e.instances, id)
		delete(e.witnessNonces, id)
		if outcome, ok := e.pending[id]; ok {
			delete(e.pending, id)
			outcome <- roundOutcome{err: fmt.Errorf("consensus: instance %s timed out", id)}
		}
	}
}

func cloneCommitments(m map[frost.Identifier]frost.NonceCommitment) map[frost.Identifier]frost.NonceCommitment {
	out := make(map[frost.Identifier]frost.NonceCommitment, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
