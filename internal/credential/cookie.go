package credential

import (
	"net/http"
	"time"
)

// CookieOptions controls the attributes of the persisted credential cookie.
type CookieOptions struct {
	Secure bool
	// HTTPOnly hides the cookie from scripts. The auth proxy always sets it.
	HTTPOnly bool
	Path     string
}

// CookieStore persists the credential as a cookie on one HTTP exchange.
// It is bound to a single request and must not be shared across requests.
type CookieStore struct {
	w     http.ResponseWriter
	r     *http.Request
	opts  CookieOptions
	clock func() time.Time

	// pending reflects a Set/Clear made earlier in the same exchange.
	pending *Credential
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieStore{w: w, r: r, opts: opts, clock: time.Now}
}

// HTTPOnlyCookie is the store every server-side writer of the credential cookie uses,
// so the attributes never differ between the writes of one browser.
func HTTPOnlyCookie(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return NewCookieStore(w, r, CookieOptions{Secure: secure, HTTPOnly: true, Path: "/"})
}

func (s *CookieStore) Get() (Credential, bool) {
	if s.pending != nil {
		if s.pending.Value == "" || s.pending.Expired(s.clock()) {
			return Credential{}, false
		}
		return *s.pending, true
	}
	c, err := s.r.Cookie(CookieName)
	if err != nil {
		return Credential{}, false
	}
	v := Normalize(c.Value)
	if v == "" {
		return Credential{}, false
	}
	// The browser does not send the expiry back; it only sends live cookies.
	return Credential{Value: v}, true
}

func (s *CookieStore) Set(value string, ttl time.Duration) {
	value = Normalize(value)
	if value == "" {
		s.Clear()
		return
	}
	if ttl <= 0 {
		ttl = TTL
	}
	exp := s.clock().Add(ttl)
	s.pending = &Credential{Value: value, ExpiresAt: exp}
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     s.opts.Path,
		MaxAge:   int(ttl / time.Second),
		Expires:  exp,
		Secure:   s.opts.Secure,
		HttpOnly: s.opts.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) Clear() {
	s.pending = &Credential{}
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     s.opts.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.opts.Secure,
		HttpOnly: s.opts.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
}
