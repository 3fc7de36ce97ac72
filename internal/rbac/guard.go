// Package rbac decides whether a navigation may enter a view.
//
// Guards consult the browsing session, trigger at most one Load per navigation
// (never a Refresh) and answer proceed or redirect. Authentication failures go to the
// sign-in page, authorization failures to the neutral home page.
package rbac

import (
	"context"

	"sociomile-gateway/internal/identity"
	"sociomile-gateway/internal/session"
)

const (
	PathSignIn = "/signin"
	PathHome   = "/"
)

// Decision is a guard answer. The zero value proceeds.
type Decision struct {
	Redirect string
}

var Proceed = Decision{}

func RedirectTo(path string) Decision { return Decision{Redirect: path} }

func (d Decision) Proceeds() bool { return d.Redirect == "" }

type Guard interface {
	Name() string
	Check(ctx context.Context, s *session.Session) Decision
}

var (
	// Authenticated admits any signed-in user.
	Authenticated Guard = roleGuard{name: "authenticated"}
	// SuperAdmin admits super admins only.
	SuperAdmin Guard = AnyRole("super_admin", identity.RoleSuperAdmin)
	// Organization admits organization owners and sales staff.
	Organization Guard = AnyRole("organization", identity.RoleOrganizationOwner, identity.RoleOrganizationSales)
	// GuestUser admits users holding the guest role.
	GuestUser Guard = AnyRole("guest_user", identity.RoleGuest)
	// GuestRedirect guards public pages: signed-in users are sent to their dashboard.
	GuestRedirect Guard = guestRedirect{}
)

// AnyRole admits signed-in users holding any of roles.
func AnyRole(name string, roles ...identity.Role) Guard {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		if r.Valid() {
			allowed[r] = struct{}{}
		}
	}
	return roleGuard{name: name, allow: func(st session.State) bool {
		_, ok := allowed[st.Role()]
		return ok && st.IsAuthenticated()
	}}
}

type roleGuard struct {
	name  string
	allow func(session.State) bool
}

func (g roleGuard) Name() string { return g.name }

func (g roleGuard) Check(ctx context.Context, s *session.Session) Decision {
	st := resolve(ctx, s)
	if !st.IsAuthenticated() {
		return RedirectTo(PathSignIn)
	}
	if g.allow != nil && !g.allow(st) {
		return RedirectTo(PathHome)
	}
	return Proceed
}

type guestRedirect struct{}

func (guestRedirect) Name() string { return "guest" }

func (guestRedirect) Check(ctx context.Context, s *session.Session) Decision {
	st := resolve(ctx, s)
	if !st.IsAuthenticated() {
		return Proceed
	}
	if path, ok := st.Role().Landing(); ok {
		return RedirectTo(path)
	}
	return Proceed
}

// resolve loads the identity once when the state is not authenticated yet and
// waits for the outstanding flight to settle.
func resolve(ctx context.Context, s *session.Session) session.State {
	st := s.State()
	if st.IsAuthenticated() {
		return st
	}
	s.Load(ctx)
	return s.State()
}
