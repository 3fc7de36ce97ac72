package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sociomile-gateway/internal/credential"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newAttachRouter(reg *Registry, seen **Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Attach(reg, false))
	r.GET("/x", func(c *gin.Context) {
		s, ok := FromGin(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		if fromCtx, ok := From(c.Request.Context()); !ok || fromCtx != s {
			c.Status(http.StatusInternalServerError)
			return
		}
		*seen = s
		c.Status(http.StatusOK)
	})
	return r
}

func TestAttach_IssuesSessionCookie(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	var seen *Session
	r := newAttachRouter(reg, &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var sid *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			sid = c
		}
	}
	if sid == nil || !sid.HttpOnly {
		t.Fatalf("expected http-only session cookie")
	}
	if _, err := uuid.Parse(sid.Value); err != nil {
		t.Fatalf("expected uuid session id, got %q", sid.Value)
	}
	if seen == nil || seen.ID() != sid.Value {
		t.Fatalf("expected handler to see the issued session")
	}
}

func TestAttach_ReusesSessionAndAdoptsCredential(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	sid := uuid.NewString()
	var seen *Session
	r := newAttachRouter(reg, &seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sid})
	req.AddCookie(&http.Cookie{Name: credential.CookieName, Value: "Bearer t1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen == nil || seen != reg.Get(context.Background(), sid) {
		t.Fatalf("expected the registry session for %s", sid)
	}
	if c, ok := seen.Credential(); !ok || c.Value != "t1" {
		t.Fatalf("expected adopted credential t1, got %+v", c)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			t.Fatalf("must not reissue an existing session cookie")
		}
	}
}

func TestAttach_MissingCredentialCookieSignsOut(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	sid := uuid.NewString()
	reg.Get(context.Background(), sid).SetAuthenticated(guest(), "t1")

	var seen *Session
	r := newAttachRouter(reg, &seen)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sid})
	r.ServeHTTP(httptest.NewRecorder(), req)

	if seen.State().IsAuthenticated() {
		t.Fatalf("expected session signed out when the browser dropped the credential")
	}
}

func TestAttach_InvalidSessionIDReplaced(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	var seen *Session
	r := newAttachRouter(reg, &seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(seen.ID()); err != nil {
		t.Fatalf("expected a fresh uuid session id, got %q", seen.ID())
	}
}
