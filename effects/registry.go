package effects

import (
	"context"
	"fmt"
)

// Kind names one of the nine effect traits for dynamic dispatch.
type Kind string

const (
	KindRandom        Kind = "random"
	KindTime          Kind = "time"
	KindCrypto        Kind = "crypto"
	KindStorage       Kind = "storage"
	KindNetwork       Kind = "network"
	KindJournal       Kind = "journal"
	KindFlowBudget    Kind = "flow_budget"
	KindSecureStorage Kind = "secure_storage"
	KindAmpChannel    Kind = "amp_channel"
)

// Op is a handler-defined operation name, scoped within a Kind.
type Op string

// DispatchFunc executes one dynamically-routed operation against its
// handler, taking and returning opaque bytes (spec §4.3: "dispatch(kind,
// op, bytes, ctx) -> bytes ... supports dynamic routing").
type DispatchFunc func(ctx context.Context, op Op, payload []byte) ([]byte, error)

// Registry is a handler built by kind, grounded on the teacher's
// factories.ConfidenceFactory/FlatFactory construction pattern: a small
// struct holding one collaborator per concern, constructed once per
// runtime instance and handed out by reference (never a package-level
// global).
//
// Static call sites should use the typed traits below directly; Registry
// exists for protocol code that receives effect kind/op pairs off the
// wire (choreography message routing) and needs to resolve them without
// a type switch over every possible trait.
type Registry struct {
	Random        Random
	Time          Time
	Crypto        Crypto
	Storage       Storage
	Network       Network
	Journal       Journal
	FlowBudget    FlowBudget
	SecureStorage SecureStorage
	AmpChannel    AmpChannel

	dispatch map[Kind]DispatchFunc
}

// NewRegistry constructs a Registry from the nine concrete handlers.
func NewRegistry(random Random, clock Time, crypto Crypto, storage Storage, network Network, jrnl Journal, flow FlowBudget, secure SecureStorage, amp AmpChannel) *Registry {
	return &Registry{
		Random:        random,
		Time:          clock,
		Crypto:        crypto,
		Storage:       storage,
		Network:       network,
		Journal:       jrnl,
		FlowBudget:    flow,
		SecureStorage: secure,
		AmpChannel:    amp,
		dispatch:      make(map[Kind]DispatchFunc),
	}
}

// RegisterDispatch binds a dynamic-routing function for kind, used by
// protocol code that exposes byte-in/byte-out operations (e.g. choreo
// wire handlers) on top of one of the typed traits above.
func (r *Registry) RegisterDispatch(kind Kind, fn DispatchFunc) {
	r.dispatch[kind] = fn
}

// Dispatch routes (kind, op, payload) to the registered DispatchFunc.
func (r *Registry) Dispatch(ctx context.Context, kind Kind, op Op, payload []byte) ([]byte, error) {
	fn, ok := r.dispatch[kind]
	if !ok {
		return nil, fmt.Errorf("effects: no dispatch registered for kind %q", kind)
	}
	return fn(ctx, op, payload)
}
