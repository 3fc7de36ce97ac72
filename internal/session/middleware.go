package session

import (
	"context"
	"net/http"

	"sociomile-gateway/internal/credential"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CookieName identifies the browsing session.
const CookieName = "sid"

const ginKey = "session"

type ctxKey struct{}

// WithContext stores sess in ctx.
func WithContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// From returns the session stored by WithContext.
func From(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// FromGin returns the session attached by Attach.
func FromGin(c *gin.Context) (*Session, bool) {
	if v, ok := c.Get(ginKey); ok {
		if s, ok := v.(*Session); ok && s != nil {
			return s, true
		}
	}
	return From(c.Request.Context())
}

// Attach resolves the browsing session of every request, issuing a session cookie
// when the browser has none, and reconciles the credential cookie with the session:
// a new cookie value is adopted, a missing cookie signs the session out.
func Attach(reg *Registry, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := ""
		if ck, err := c.Request.Cookie(CookieName); err == nil {
			if _, err := uuid.Parse(ck.Value); err == nil {
				sid = ck.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(credential.TTL.Seconds()),
				Secure:   secure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		sess := reg.Get(c.Request.Context(), sid)

		if ck, err := c.Request.Cookie(credential.CookieName); err == nil && credential.Normalize(ck.Value) != "" {
			sess.Adopt(ck.Value)
		} else if _, ok := sess.Credential(); ok {
			sess.Clear()
		}

		c.Set(ginKey, sess)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), sess))
		c.Next()
	}
}
