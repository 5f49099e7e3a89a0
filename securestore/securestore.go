// Package securestore implements the secure-storage external interface of
// spec §6: capability-gated operations over encrypted-at-rest locations
// with time-bound access tokens. Production backends are platform secure
// enclaves, consumed through this same interface (spec §9: "mock and real
// handlers share one trait"); this package additionally provides the
// in-memory implementation tests and the `testing`/`simulation` effect
// variants use.
package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aura-network/aura/aid"
)

// Capability gates an operation on a SecureStorageLocation.
type Capability string

const (
	CapRead              Capability = "read"
	CapWrite             Capability = "write"
	CapDelete            Capability = "delete"
	CapList              Capability = "list"
	CapDeviceAttestation Capability = "device_attestation"
	CapTimeBound         Capability = "time_bound"
)

// Location names a secure-storage entry, namespace-scoped as spec §6 states.
type Location struct {
	Namespace string
	Key       string
}

func (l Location) String() string { return l.Namespace + "/" + l.Key }

// Errors returned by Store operations.
var (
	ErrDenied    = errors.New("securestore: capability not held for this location")
	ErrNotFound  = errors.New("securestore: location not found")
	ErrIntegrity = errors.New("securestore: integrity checksum mismatch")
	ErrExpired   = errors.New("securestore: time-bound token expired")
)

// TimeSource lets callers inject the Time effect rather than the real-time
// clock, so time-bound tokens expire deterministically in tests (spec §5:
// "time-bound tokens ... expire by wall-clock time supplied by the Time
// effect (not by a real-time clock in tests)").
type TimeSource func() time.Time

// Token is a time-bound access credential for one Location.
type Token struct {
	Location  Location
	ExpiresAt time.Time
	checksum  aid.Hash32
}

// Store is the capability-gated, encrypted-at-rest secure storage trait
// exposed to the effect system as effects.SecureStorage (spec §6).
type Store interface {
	Grant(loc Location, caps ...Capability)
	Put(loc Location, caps []Capability, plaintext []byte) error
	Get(loc Location, caps []Capability) ([]byte, error)
	Delete(loc Location, caps []Capability) error
	List(namespace string, caps []Capability) ([]Location, error)
	IssueTimeBoundToken(loc Location, caps []Capability, validFor time.Duration) (Token, error)
	Redeem(token Token, caps []Capability) ([]byte, error)
}

type entry struct {
	nonce      []byte
	ciphertext []byte
	checksum   aid.Hash32
}

// MemStore is an in-memory, AES-256-GCM encrypted-at-rest implementation
// used by tests and the `testing`/`simulation` effect variants. AES-GCM is
// drawn from the Go standard library rather than a pack dependency: no
// example repo in the retrieved corpus imports a third-party
// authenticated-encryption-at-rest library, and encryption-at-rest is a
// narrow, security-sensitive primitive better served by the vetted stdlib
// implementation than a hand-rolled or loosely-grounded substitute (see
// DESIGN.md).
type MemStore struct {
	mu     sync.Mutex
	key    [32]byte
	data   map[string]entry
	grants map[string]map[Capability]struct{}
	now    TimeSource
}

// NewMemStore returns an empty store encrypting with a fresh random key.
func NewMemStore(now TimeSource) (*MemStore, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("securestore: generate key: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &MemStore{
		key:    key,
		data:   make(map[string]entry),
		grants: make(map[string]map[Capability]struct{}),
		now:    now,
	}, nil
}

// Grant records that the caller holds the given capabilities for loc. In
// production this reflects a platform attestation decision made upstream;
// the in-memory store trusts the caller directly, matching its role as a
// test double.
func (m *MemStore) Grant(loc Location, caps ...Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := loc.String()
	set, ok := m.grants[key]
	if !ok {
		set = make(map[Capability]struct{})
		m.grants[key] = set
	}
	for _, c := range caps {
		set[c] = struct{}{}
	}
}

func (m *MemStore) authorized(loc Location, required []Capability) bool {
	set := m.grants[loc.String()]
	for _, c := range required {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

// withCap returns a copy of caps with extra appended, never aliasing the
// caller's backing array.
func withCap(caps []Capability, extra Capability) []Capability {
	out := make([]Capability, len(caps), len(caps)+1)
	copy(out, caps)
	return append(out, extra)
}

func (m *MemStore) cipher() (cipher.AEAD, error) {
	block, err := aes.NewCipher(m.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Put encrypts and stores plaintext under loc, requiring CapWrite.
func (m *MemStore) Put(loc Location, caps []Capability, plaintext []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authorized(loc, withCap(caps, CapWrite)) {
		return ErrDenied
	}

	aead, err := m.cipher()
	if err != nil {
		return fmt.Errorf("securestore: init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("securestore: generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, []byte(loc.String()))
	checksum := aid.Hash("SECURESTORE_INTEGRITY_V1", []byte(loc.String()), ciphertext)

	m.data[loc.String()] = entry{nonce: nonce, ciphertext: ciphertext, checksum: checksum}
	return nil
}

// Get decrypts and returns the plaintext at loc, requiring CapRead, and
// verifies the location-tied integrity checksum before returning data.
func (m *MemStore) Get(loc Location, caps []Capability) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authorized(loc, withCap(caps, CapRead)) {
		return nil, ErrDenied
	}
	e, ok := m.data[loc.String()]
	if !ok {
		return nil, ErrNotFound
	}
	if got := aid.Hash("SECURESTORE_INTEGRITY_V1", []byte(loc.String()), e.ciphertext); got != e.checksum {
		return nil, ErrIntegrity
	}

	aead, err := m.cipher()
	if err != nil {
		return nil, fmt.Errorf("securestore: init cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, e.nonce, e.ciphertext, []byte(loc.String()))
	if err != nil {
		return nil, fmt.Errorf("securestore: decrypt: %w", err)
	}
	return plaintext, nil
}

// Delete removes loc, requiring CapDelete.
func (m *MemStore) Delete(loc Location, caps []Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authorized(loc, withCap(caps, CapDelete)) {
		return ErrDenied
	}
	delete(m.data, loc.String())
	return nil
}

// List enumerates locations under namespace, requiring CapList.
func (m *MemStore) List(namespace string, caps []Capability) ([]Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	probe := Location{Namespace: namespace}
	if !m.authorized(probe, withCap(caps, CapList)) {
		return nil, ErrDenied
	}

	var out []Location
	for key := range m.data {
		var loc Location
		// keys are "namespace/key"; re-derive rather than storing Location
		// structs redundantly.
		for i := 0; i < len(key); i++ {
			if key[i] == '/' {
				loc = Location{Namespace: key[:i], Key: key[i+1:]}
				break
			}
		}
		if loc.Namespace == namespace {
			out = append(out, loc)
		}
	}
	return out, nil
}

// IssueTimeBoundToken mints a Token valid until m.now()+validFor, requiring
// CapTimeBound, checksummed against the location so a token cannot be
// replayed against a different one.
func (m *MemStore) IssueTimeBoundToken(loc Location, caps []Capability, validFor time.Duration) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authorized(loc, withCap(caps, CapTimeBound)) {
		return Token{}, ErrDenied
	}
	expires := m.now().Add(validFor)
	var expBuf [8]byte
	putInt64(expBuf[:], expires.UnixNano())
	checksum := aid.Hash("SECURESTORE_TOKEN_V1", []byte(loc.String()), expBuf[:])
	return Token{Location: loc, ExpiresAt: expires, checksum: checksum}, nil
}

// Redeem validates a time-bound token (checksum and expiry) and, if valid,
// performs the equivalent of Get against the token's location.
func (m *MemStore) Redeem(token Token, caps []Capability) ([]byte, error) {
	m.mu.Lock()
	now := m.now()
	m.mu.Unlock()

	if now.After(token.ExpiresAt) {
		return nil, ErrExpired
	}
	var expBuf [8]byte
	putInt64(expBuf[:], token.ExpiresAt.UnixNano())
	want := aid.Hash("SECURESTORE_TOKEN_V1", []byte(token.Location.String()), expBuf[:])
	if want != token.checksum {
		return nil, ErrIntegrity
	}
	return m.Get(token.Location, caps)
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}
