package session

import (
	"context"
	"errors"
	"time"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/identity"
	"sociomile-gateway/internal/remote"
)

var (
	// ErrNoCredential means there was nothing to resolve; no remote call was made.
	ErrNoCredential = errors.New("session: no credential")
	// ErrCredentialChanged means the credential was replaced while the flight was
	// outstanding; the stale answer was discarded.
	ErrCredentialChanged = errors.New("session: credential changed during resolution")
	// ErrNoFetcher means the session was built without a remote.
	ErrNoFetcher = errors.New("session: fetcher not configured")
)

const (
	opLoad    = "load"
	opRefresh = "refresh"

	// Load and Refresh share this key: one identity flight per session.
	flightKey = "identity"
)

// Result is the outcome of Load or Refresh. Failures are never returned as errors
// from the session; Err explains why the session ended unauthenticated.
type Result struct {
	Identity *identity.Identity
	// Token is the credential the identity was resolved with, or the renewed one.
	Token string
	Err   error
}

func (r Result) OK() bool { return r.Err == nil && r.Identity != nil }

// Load resolves the current user.
//
//  1. an identity already held is returned without a remote call;
//  2. a load or refresh already in flight is joined and its result shared;
//  3. otherwise the profile is fetched with the current credential. Success
//     authenticates the session, any failure clears it.
//
// The flight is detached from ctx: a caller that gives up stops waiting, the call
// still completes and updates the state.
func (s *Session) Load(ctx context.Context) Result {
	return s.resolve(ctx, opLoad, false)
}

// Refresh exchanges the current credential for a renewed one. It follows the same
// short-circuit and in-flight rules as Load.
func (s *Session) Refresh(ctx context.Context) Result {
	return s.resolve(ctx, opRefresh, false)
}

// Renew is Refresh without the identity short-circuit: the credential is exchanged even
// when the session is already authenticated. It still shares the in-flight slot, so a
// Renew arriving while a Load or Refresh is outstanding receives that flight's result.
func (s *Session) Renew(ctx context.Context) Result {
	return s.resolve(ctx, opRefresh, true)
}

func (s *Session) resolve(ctx context.Context, op string, renew bool) Result {
	if !renew {
		if res, ok := s.current(); ok {
			return res
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		return s.run(detached, op, renew), nil
	})

	select {
	case r := <-ch:
		res := r.Val.(Result)
		if res.Identity != nil {
			// each caller gets its own copy
			id := res.Identity.Clone()
			res.Identity = &id
		}
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// current returns the held identity together with the credential it belongs to.
func (s *Session) current() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ident == nil {
		return Result{}, false
	}
	id := s.ident.Clone()
	res := Result{Identity: &id}
	if cred, ok := s.creds.Get(); ok {
		res.Token = cred.Value
	}
	return res, true
}

func (s *Session) run(ctx context.Context, op string, renew bool) Result {
	// A flight that settled right before this one started may have authenticated.
	if !renew {
		if res, ok := s.current(); ok {
			return res
		}
	}

	s.setLoading(true)
	defer s.setLoading(false)

	start := time.Now()
	var res Result
	if op == opRefresh {
		res = s.refresh(ctx)
	} else {
		res = s.load(ctx)
	}
	s.metrics.ObserveFlight(op, outcome(res.Err), time.Since(start))

	if res.Err != nil {
		s.logFailure(op, res.Err)
	} else {
		s.log.Debug("session identity resolved", "session_id", s.id, "op", op, "user_id", res.Identity.ID, "role", res.Identity.Role)
	}
	return res
}

func (s *Session) load(ctx context.Context) Result {
	cred, ok := s.creds.Get()
	if !ok {
		s.Clear()
		return Result{Err: ErrNoCredential}
	}
	if s.fetcher == nil {
		s.clearIfCurrent(cred.Value)
		return Result{Err: ErrNoFetcher}
	}

	id, err := s.fetcher.Profile(ctx, cred.Value)
	if err != nil {
		s.clearIfCurrent(cred.Value)
		return Result{Err: err}
	}
	if !s.commit(id, cred.Value, "") {
		return Result{Err: ErrCredentialChanged}
	}
	return Result{Identity: &id, Token: cred.Value}
}

func (s *Session) refresh(ctx context.Context) Result {
	cred, ok := s.creds.Get()
	if !ok {
		s.Clear()
		return Result{Err: ErrNoCredential}
	}
	if s.fetcher == nil {
		s.clearIfCurrent(cred.Value)
		return Result{Err: ErrNoFetcher}
	}

	g, err := s.fetcher.Refresh(ctx, cred.Value)
	if err != nil {
		s.clearIfCurrent(cred.Value)
		return Result{Err: err}
	}

	var id identity.Identity
	if g.User != nil {
		id = *g.User
	} else {
		// Older backends answer refresh with {token} only.
		id, err = s.fetcher.Profile(ctx, g.Token)
		if err != nil {
			s.clearIfCurrent(cred.Value)
			return Result{Err: err}
		}
	}

	if !s.commit(id, cred.Value, g.Token) {
		return Result{Err: ErrCredentialChanged}
	}
	return Result{Identity: &id, Token: g.Token}
}

// commit installs id if the credential is still the one the flight used.
// A non-empty renewed token replaces the credential in the same critical section.
func (s *Session) commit(id identity.Identity, used, renewed string) bool {
	s.mu.Lock()
	cur, ok := s.creds.Get()
	if !ok || cur.Value != used {
		s.mu.Unlock()
		return false
	}
	if renewed != "" {
		s.creds.Set(renewed, credential.TTL)
	}
	c := id.Clone()
	s.ident = &c
	s.mu.Unlock()

	s.notify()
	return true
}

// clearIfCurrent fails closed unless a newer credential arrived meanwhile.
func (s *Session) clearIfCurrent(used string) {
	s.mu.Lock()
	cur, ok := s.creds.Get()
	if ok && cur.Value != used {
		s.mu.Unlock()
		return
	}
	changed := ok || s.ident != nil
	s.creds.Clear()
	s.ident = nil
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) logFailure(op string, err error) {
	switch {
	case errors.Is(err, ErrNoCredential):
		s.log.Debug("session has no credential", "session_id", s.id, "op", op)
	case errors.Is(err, ErrCredentialChanged):
		s.log.Debug("session credential changed during resolution", "session_id", s.id, "op", op)
	default:
		if status, _, ok := remote.StatusOf(err); ok && status < 500 {
			s.log.Info("session identity rejected", "session_id", s.id, "op", op, "status", status)
			return
		}
		s.log.Warn("session identity resolution failed", "session_id", s.id, "op", op, "err", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoCredential):
		return "no_credential"
	case errors.Is(err, ErrCredentialChanged):
		return "superseded"
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Unauthorized() || apiErr.Forbidden() {
			return "unauthorized"
		}
		return "rejected"
	}
	if errors.Is(err, remote.ErrMalformedResponse) {
		return "malformed"
	}
	return "error"
}
