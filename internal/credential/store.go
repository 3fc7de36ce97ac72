// Package credential holds the bearer credential that proves a browsing session's
// identity to the remote API.
//
// Two variants share one contract: MemoryStore is the client-readable copy owned by a
// browsing session, CookieStore is the HTTP-only cookie written by the auth proxy.
// At most one value is authoritative per store; Set replaces it for every reader.
package credential

import (
	"strings"
	"sync"
	"time"
)

const (
	// CookieName is the fixed name the credential is persisted under.
	CookieName = "auth_token"
	// TTL is the lifetime of a persisted credential.
	TTL = 7 * 24 * time.Hour

	bearerPrefix = "Bearer "
)

// Credential is an opaque bearer token with an absolute expiry.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store is the credential persistence contract.
// Get never fails; a missing or expired credential reads as absent.
// Clear is idempotent.
type Store interface {
	Get() (Credential, bool)
	Set(value string, ttl time.Duration)
	Clear()
}

// Normalize strips an optional "Bearer " prefix. Older deployments persisted the
// header form in the cookie.
func Normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) >= len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		v = strings.TrimSpace(v[len(bearerPrefix):])
	}
	return v
}

// BearerHeader formats a credential value for the Authorization header.
func BearerHeader(value string) string {
	return bearerPrefix + Normalize(value)
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	cred  Credential
	set   bool
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clock: time.Now}
}

// NewMemoryStoreWithClock is used by tests that need deterministic expiry.
func NewMemoryStoreWithClock(clock func() time.Time) *MemoryStore {
	return &MemoryStore{clock: clock}
}

func (s *MemoryStore) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set || s.cred.Expired(s.clock()) {
		return Credential{}, false
	}
	return s.cred, true
}

func (s *MemoryStore) Set(value string, ttl time.Duration) {
	value = Normalize(value)
	if value == "" {
		s.Clear()
		return
	}
	if ttl <= 0 {
		ttl = TTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{Value: value, ExpiresAt: s.clock().Add(ttl)}
	s.set = true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	s.set = false
}
