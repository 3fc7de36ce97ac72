package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sociomile-gateway/internal/identity"
)

// Snapshot is the persisted form of a browsing session. It lets a session survive a
// gateway restart or land on another gateway instance.
type Snapshot struct {
	Token     string             `json:"token,omitempty"`
	ExpiresAt time.Time          `json:"expires_at"`
	Identity  *identity.Identity `json:"identity,omitempty"`
}

// ErrInvalidSessionID is returned for empty or malformed browsing session ids.
var ErrInvalidSessionID = errors.New("session: invalid session id")

// SnapshotStore persists snapshots keyed by browsing session id.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (Snapshot, bool, error)
	Save(ctx context.Context, id string, snap Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps snapshots in process memory. Used when Redis is not configured
// and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	clock func() time.Time
}

type memoryItem struct {
	snap      Snapshot
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}, clock: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Snapshot, bool, error) {
	if id == "" {
		return Snapshot{}, false, ErrInvalidSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !m.clock().Before(it.expiresAt) {
		delete(m.items, id)
		return Snapshot{}, false, nil
	}
	return it.snap, true, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, snap Snapshot, ttl time.Duration) error {
	if id == "" {
		return ErrInvalidSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = memoryItem{snap: snap, expiresAt: m.clock().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}
