package mockapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sociomile-gateway/internal/config"
	"sociomile-gateway/internal/identity"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	m, err := NewManager(config.MockAPIConfig{JWTSecret: "secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	d := NewDirectory(bcrypt.MinCost)
	if err := d.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewRouter(Options{Tokens: m, Users: d})
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeGrant(t *testing.T, w *httptest.ResponseRecorder) identity.Grant {
	t.Helper()
	var g identity.Grant
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode grant: %v (%s)", err, w.Body.String())
	}
	return g
}

func TestLogin_SeededUsers(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		email string
		role  identity.Role
	}{
		{"admin@sociomile.com", identity.RoleSuperAdmin},
		{"owner@techcorp.com", identity.RoleOrganizationOwner},
		{"alice@techcorp.com", identity.RoleOrganizationSales},
		{"customer1@example.com", identity.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"`+tt.email+`","password":"password123"}`, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			g := decodeGrant(t, w)
			if g.Token == "" || g.User == nil || g.User.Role != tt.role {
				t.Fatalf("unexpected grant: %+v", g)
			}
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"admin@sociomile.com","password":"nope"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid email or password") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestRegister_CreatesGuestAndRejectsDuplicate(t *testing.T) {
	h := newTestRouter(t)
	body := `{"email":"new@example.com","password":"secret1","name":"Newbie"}`

	w := do(t, h, http.MethodPost, "/api/v1/auth/register", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if g := decodeGrant(t, w); g.User.Role != identity.RoleGuest {
		t.Fatalf("expected guest, got %q", g.User.Role)
	}

	w = do(t, h, http.MethodPost, "/api/v1/auth/register", body, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestRegister_ValidatesBody(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/v1/auth/register", `{"email":"bad","password":"1","name":"x"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestProfile_NestedRoleAndOrganization(t *testing.T) {
	h := newTestRouter(t)
	g := decodeGrant(t, do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"owner@techcorp.com","password":"password123"}`, ""))

	w := do(t, h, http.MethodGet, "/api/v1/auth/profile", "", g.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"role":{"name":"organization_owner"}`) {
		t.Fatalf("expected nested role, got %s", w.Body.String())
	}

	var id identity.Identity
	if err := json.Unmarshal(w.Body.Bytes(), &id); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.Role != identity.RoleOrganizationOwner || id.Organization == nil || id.Organization.ID != 1 {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestProfile_RequiresBearer(t *testing.T) {
	h := newTestRouter(t)
	if w := do(t, h, http.MethodGet, "/api/v1/auth/profile", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/auth/profile", "", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestRefresh_ReturnsTokenAndUser(t *testing.T) {
	h := newTestRouter(t)
	g := decodeGrant(t, do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"alice@techcorp.com","password":"password123"}`, ""))

	w := do(t, h, http.MethodPost, "/api/v1/auth/refresh", `{"token":"Bearer `+g.Token+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	next := decodeGrant(t, w)
	if next.Token == "" || next.User == nil || next.User.Email != "alice@techcorp.com" {
		t.Fatalf("unexpected grant: %+v", next)
	}

	if w := do(t, h, http.MethodPost, "/api/v1/auth/refresh", `{"token":"garbage"}`, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/auth/refresh", `{}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
