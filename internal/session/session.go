// Package session owns the per browsing session authentication state.
//
// A *Session is the explicit context object handed to guards and proxy handlers.
// Only its methods mutate the state: SetAuthenticated, Clear, Adopt, Load and Refresh.
// Load and Refresh share one in-flight slot, so a browsing session never has more
// than one identity resolving remote call outstanding.
package session

import (
	"context"
	"log/slog"
	"sync"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/identity"
	"sociomile-gateway/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// Fetcher resolves identities against the remote API.
// *remote.Client satisfies it.
type Fetcher interface {
	Profile(ctx context.Context, token string) (identity.Identity, error)
	Refresh(ctx context.Context, token string) (identity.Grant, error)
}

type Options struct {
	ID          string
	Credentials credential.Store
	Fetcher     Fetcher
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

type Session struct {
	id      string
	creds   credential.Store
	fetcher Fetcher
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	ident   *identity.Identity
	loading bool

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int

	// notifyMu serializes observer delivery so the last delivery carries the latest state.
	notifyMu sync.Mutex

	flight singleflight.Group
}

func New(opts Options) *Session {
	creds := opts.Credentials
	if creds == nil {
		creds = credential.NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:        opts.ID,
		creds:     creds,
		fetcher:   opts.Fetcher,
		metrics:   opts.Metrics,
		log:       log,
		observers: map[int]func(State){},
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current snapshot. The identity is a copy.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{Loading: s.loading}
	if s.ident != nil {
		id := s.ident.Clone()
		st.Identity = &id
	}
	return st
}

// Credential returns the client-readable copy of the current credential.
func (s *Session) Credential() (credential.Credential, bool) {
	return s.creds.Get()
}

// SetAuthenticated installs id and writes token to the credential store.
// Observers see the new state before it returns.
func (s *Session) SetAuthenticated(id identity.Identity, token string) {
	s.mu.Lock()
	s.creds.Set(token, credential.TTL)
	c := id.Clone()
	s.ident = &c
	s.mu.Unlock()

	s.notify()
}

// Clear signs the browsing session out and drops the credential. Idempotent.
func (s *Session) Clear() {
	s.mu.Lock()
	_, hadCred := s.creds.Get()
	changed := hadCred || s.ident != nil
	s.creds.Clear()
	s.ident = nil
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Adopt reconciles a credential presented by the browser. A value different from the
// stored one replaces it and drops the identity, which must then be resolved again.
// It reports whether anything changed.
func (s *Session) Adopt(token string) bool {
	token = credential.Normalize(token)
	if token == "" {
		return false
	}

	s.mu.Lock()
	if cur, ok := s.creds.Get(); ok && cur.Value == token {
		s.mu.Unlock()
		return false
	}
	s.creds.Set(token, credential.TTL)
	s.ident = nil
	s.mu.Unlock()

	s.notify()
	return true
}

// Observe registers fn for every identity or credential change.
// fn must not block for long and must not call back into Observe.
func (s *Session) Observe(fn func(State)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	st := s.State()
	for _, fn := range fns {
		fn(st)
	}
}

// Role accessors over the current state.

func (s *Session) Role() identity.Role          { return s.State().Role() }
func (s *Session) HasRole(r identity.Role) bool { return s.State().IsRole(r) }
func (s *Session) IsSuperAdmin() bool           { return s.State().IsSuperAdmin() }
func (s *Session) IsOrganizationOwner() bool    { return s.State().IsOrganizationOwner() }
func (s *Session) IsOrganizationSales() bool    { return s.State().IsOrganizationSales() }
func (s *Session) IsGuest() bool                { return s.State().IsGuest() }
