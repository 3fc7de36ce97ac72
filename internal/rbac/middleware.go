package rbac

import (
	"net/http"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/metrics"
	"sociomile-gateway/internal/session"
	"sociomile-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Require runs g before the route handler. It expects session.Attach earlier in the chain.
// secure must match the flag the auth proxy writes the credential cookie with.
func Require(g Guard, m *metrics.Metrics, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not attached"})
			return
		}

		d := g.Check(c.Request.Context(), sess)
		if d.Proceeds() {
			m.GuardDecision(g.Name(), "proceed")
			c.Next()
			return
		}

		if d.Redirect == PathSignIn {
			expireCredential(c, secure)
		}
		m.GuardDecision(g.Name(), "redirect")
		logger.FromGin(c).Debug("navigation redirected",
			"guard", g.Name(),
			"path", c.Request.URL.Path,
			"to", d.Redirect,
			"session_id", sess.ID(),
		)
		c.Redirect(http.StatusFound, d.Redirect)
		c.Abort()
	}
}

// expireCredential drops a credential cookie the session just failed to resolve, so the
// browser stops presenting it on every navigation.
func expireCredential(c *gin.Context, secure bool) {
	if _, err := c.Request.Cookie(credential.CookieName); err != nil {
		return
	}
	credential.HTTPOnlyCookie(c.Writer, c.Request, secure).Clear()
}
