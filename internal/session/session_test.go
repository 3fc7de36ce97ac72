package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/identity"
)

// fakeFetcher counts remote calls. When gate is non-nil every call blocks on it.
type fakeFetcher struct {
	mu sync.Mutex

	profile    identity.Identity
	profileErr error
	grant      identity.Grant
	refreshErr error

	gate chan struct{}

	profileCalls atomic.Int32
	refreshCalls atomic.Int32
	lastToken    string
}

func (f *fakeFetcher) Profile(ctx context.Context, token string) (identity.Identity, error) {
	f.profileCalls.Add(1)
	f.mu.Lock()
	f.lastToken = token
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.profileErr != nil {
		return identity.Identity{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeFetcher) Refresh(ctx context.Context, token string) (identity.Grant, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	f.lastToken = token
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.refreshErr != nil {
		return identity.Grant{}, f.refreshErr
	}
	return f.grant, nil
}

func (f *fakeFetcher) token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastToken
}

func guest() identity.Identity {
	return identity.Identity{ID: 4, Email: "customer1@example.com", Name: "Customer", Role: identity.RoleGuest}
}

func TestSession_SetAuthenticatedAndClear(t *testing.T) {
	creds := credential.NewMemoryStore()
	s := New(Options{ID: "s1", Credentials: creds})

	if s.State().IsAuthenticated() {
		t.Fatalf("new session must be unauthenticated")
	}

	s.SetAuthenticated(guest(), "t1")

	st := s.State()
	if !st.IsAuthenticated() || st.Identity.Email != "customer1@example.com" {
		t.Fatalf("unexpected state %+v", st)
	}
	if c, ok := creds.Get(); !ok || c.Value != "t1" {
		t.Fatalf("expected credential t1 in store, got %+v", c)
	}

	s.Clear()
	if s.State().IsAuthenticated() {
		t.Fatalf("expected cleared state")
	}
	if _, ok := creds.Get(); ok {
		t.Fatalf("expected credential cleared")
	}
}

func TestSession_StateIsACopy(t *testing.T) {
	s := New(Options{})
	s.SetAuthenticated(guest(), "t1")

	st := s.State()
	st.Identity.Role = identity.RoleSuperAdmin

	if s.IsSuperAdmin() || !s.IsGuest() {
		t.Fatalf("mutating a snapshot must not change the session")
	}
}

func TestSession_RoleRoundTrip(t *testing.T) {
	for _, r := range identity.Roles {
		s := New(Options{})
		id := guest()
		id.Role = r
		s.SetAuthenticated(id, "t")

		if !s.HasRole(r) || s.Role() != r {
			t.Fatalf("expected role %q to hold", r)
		}
		for _, other := range identity.Roles {
			if other != r && s.HasRole(other) {
				t.Fatalf("role %q must not match %q", r, other)
			}
		}
		if s.HasRole(identity.RoleUnset) {
			t.Fatalf("unset must never match")
		}
	}
}

func TestState_Predicates(t *testing.T) {
	var empty State
	if empty.Role() != identity.RoleUnset || empty.IsGuest() || empty.IsOrganization() {
		t.Fatalf("empty state must match nothing")
	}

	owner := identity.Identity{ID: 2, Role: identity.RoleOrganizationOwner}
	st := State{Identity: &owner}
	if !st.IsOrganization() || !st.IsOrganizationOwner() || st.IsOrganizationSales() {
		t.Fatalf("unexpected owner predicates")
	}
	sales := identity.Identity{ID: 3, Role: identity.RoleOrganizationSales}
	if !(State{Identity: &sales}).IsOrganization() {
		t.Fatalf("sales is an organization role")
	}
}

func TestSession_ObserversSeeChanges(t *testing.T) {
	s := New(Options{})

	var seen []bool
	cancel := s.Observe(func(st State) { seen = append(seen, st.IsAuthenticated()) })

	s.SetAuthenticated(guest(), "t1")
	s.Clear()
	s.Clear() // no change, no notification
	cancel()
	s.SetAuthenticated(guest(), "t2")

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestSession_AdoptReplacesCredentialAndDropsIdentity(t *testing.T) {
	creds := credential.NewMemoryStore()
	s := New(Options{Credentials: creds})
	s.SetAuthenticated(guest(), "t1")

	if s.Adopt("Bearer t1") {
		t.Fatalf("same credential must be a no-op")
	}
	if !s.State().IsAuthenticated() {
		t.Fatalf("identity must survive a no-op adopt")
	}

	if !s.Adopt("t2") {
		t.Fatalf("new credential must be adopted")
	}
	if s.State().IsAuthenticated() {
		t.Fatalf("identity must be dropped after a credential change")
	}
	if c, _ := creds.Get(); c.Value != "t2" {
		t.Fatalf("expected t2, got %q", c.Value)
	}
	if s.Adopt("") {
		t.Fatalf("blank credential must be ignored")
	}
}

func TestResult_OK(t *testing.T) {
	id := guest()
	if !(Result{Identity: &id}).OK() {
		t.Fatalf("expected ok")
	}
	if (Result{Identity: &id, Err: errors.New("x")}).OK() || (Result{}).OK() {
		t.Fatalf("expected not ok")
	}
}
