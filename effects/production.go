package effects

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// productionRandom draws from crypto/rand, matching spec §4.3's
// "production: non-deterministic" row.
type productionRandom struct{}

// NewProductionRandom returns the real-randomness Random effect.
func NewProductionRandom() Random { return productionRandom{} }

func (productionRandom) Uint64() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (productionRandom) Bytes(buf []byte) { _, _ = rand.Read(buf) }

func (productionRandom) Float64() float64 {
	return float64(productionRandom{}.Uint64()>>11) / float64(1<<53)
}

// productionTime reads the OS clock.
type productionTime struct{}

// NewProductionTime returns the real-clock Time effect.
func NewProductionTime() Time { return productionTime{} }

func (productionTime) Now() time.Time { return time.Now() }

// NewProductionCrypto returns the real-signing Crypto effect, drawing
// nonce randomness from crypto/rand via the production Random effect.
func NewProductionCrypto() Crypto { return NewSeededCrypto(NewProductionRandom()) }

// memStorage is a concurrency-safe in-memory key-value store. The teacher
// does depend directly on github.com/luxfi/database, whose Database
// interface (Has/Get/Put/Delete/NewBatch/NewIterator/Compact/Close/
// HealthCheck) backs engine/dag/state, engine/graph/state and its chain
// block storage — but that interface is wide, and journal/persist.go's
// KVStore only ever needs Get and Put. Rather than vendor the full
// interface for two methods this runtime's snapshot persistence actually
// calls, KVStore is grounded on database.Database's Get/Put subset and
// memStorage backs it with a guarded map (see DESIGN.md for the full
// per-dependency accounting).
type memStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStorage returns an in-memory Storage effect shared by production
// and testing variants.
func NewMemStorage() Storage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *memStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}
