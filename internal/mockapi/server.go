// Package mockapi is a development implementation of the remote identity API:
// login, register, refresh and profile over an in-memory user directory.
package mockapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"sociomile-gateway/internal/identity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Tokens *Manager
	Users  *Directory
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type server struct {
	tokens *Manager
	users  *Directory
	log    *slog.Logger
	now    func() time.Time
}

// NewRouter mounts the auth endpoints under /api/v1/auth.
func NewRouter(opts Options) http.Handler {
	s := &server{tokens: opts.Tokens, users: opts.Users, log: opts.Logger, now: opts.Now}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(RequireBearer(s.tokens, s.now))
			r.Get("/profile", s.profile)
		})
	})
	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type grantResponse struct {
	Token string            `json:"token"`
	User  identity.Identity `json:"user"`
}

// profileResponse nests the role as {"name": ...}, the shape the production API uses
// for its role relation.
type profileResponse struct {
	ID             uint    `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           roleRef `json:"role"`
	OrganizationID *uint   `json:"organization_id,omitempty"`
}

type roleRef struct {
	Name string `json:"name"`
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validateRegister(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	u, err := s.users.Create(req.Email, req.Password, strings.TrimSpace(req.Name), identity.RoleGuest, nil)
	if errors.Is(err, ErrEmailTaken) {
		writeError(w, http.StatusConflict, err.Error(), "Conflict")
		return
	}
	if err != nil {
		s.log.Error("create user failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create user", "Internal Server Error")
		return
	}

	s.grant(w, http.StatusCreated, u)
	s.log.Info("user registered", "user_id", u.ID)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid request", "email and password are required")
		return
	}

	u, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error(), "Unauthorized")
		return
	}

	s.grant(w, http.StatusOK, u)
	s.log.Info("user logged in", "user_id", u.ID)
}

func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	tok := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Token), bearerPrefix))
	if tok == "" {
		writeError(w, http.StatusBadRequest, "Token is required", "Bad Request")
		return
	}

	next, u, err := s.tokens.Refresh(tok, s.now(), s.users)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token", "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, grantResponse{Token: next, User: s.users.Identity(u)})
}

func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFrom(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated", "Unauthorized")
		return
	}
	u, ok := s.users.ByID(claims.UserID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not authenticated", ErrUserNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           roleRef{Name: string(u.Role)},
		OrganizationID: u.OrganizationID,
	})
}

func (s *server) grant(w http.ResponseWriter, status int, u User) {
	tok, err := s.tokens.Issue(s.now(), u)
	if err != nil {
		s.log.Error("issue token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token", "Internal Server Error")
		return
	}
	writeJSON(w, status, grantResponse{Token: tok, User: s.users.Identity(u)})
}

func validateRegister(req registerRequest) error {
	if _, err := mail.ParseAddress(req.Email); err != nil || strings.TrimSpace(req.Email) == "" {
		return errors.New("email must be a valid address")
	}
	if len(req.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if len(strings.TrimSpace(req.Name)) < 2 {
		return errors.New("name must be at least 2 characters")
	}
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, errText string) {
	writeJSON(w, status, map[string]string{"message": message, "error": errText})
}
