package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"sociomile-gateway/internal/audit"
	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/identity"
	"sociomile-gateway/internal/metrics"
	"sociomile-gateway/internal/remote"
	"sociomile-gateway/internal/session"
	"sociomile-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Remote is the subset of the identity API the proxy endpoints forward to. Refresh is
// not part of it: renewals go through the browsing session's fetcher.
type Remote interface {
	Login(ctx context.Context, req remote.LoginRequest) (identity.Grant, error)
	Register(ctx context.Context, req remote.RegisterRequest) (identity.Grant, error)
	Profile(ctx context.Context, token string) (identity.Identity, error)
}

// AuthHandlers broker browser auth calls to the remote API and keep the HTTP-only
// credential cookie and the browsing session in step.
// Keep these thin: parse/validate input, call the remote, translate the answer.
type AuthHandlers struct {
	Remote  Remote
	Metrics *metrics.Metrics
	Audit   *audit.Service
	// Secure marks the credential cookie Secure.
	Secure bool
}

const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgRefreshFailed  = "Refresh failed"
	msgProfileFailed  = "get profile failed"
	msgUnauthorized   = "Unauthorized"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,min=2"`
}

// Register mounts the endpoints on g (typically /api/auth).
func (h AuthHandlers) Register(g gin.IRouter) {
	g.POST("/login", h.Login)
	g.POST("/register", h.SignUp)
	g.POST("/refresh", h.Refresh)
	g.GET("/profile", h.Profile)
	g.GET("/me", h.Me)
	g.POST("/logout", h.Logout)
}

// Login forwards credentials. Failures surface the remote status and message.
func (h AuthHandlers) Login(c *gin.Context) {
	if h.Remote == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "remote not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Metrics.ProxyRequest("login", "invalid")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"statusCode": http.StatusBadRequest, "message": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	g, err := h.Remote.Login(ctx, remote.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		status, message := failure(err, msgLoginFailed)
		h.Metrics.ProxyRequest("login", "failed")
		h.Audit.Record(ctx, h.event(c, audit.EventTypeLoginFailed, nil, req.Email, message))
		logger.FromGin(c).Info("login rejected", "status", status, "err", err)
		c.AbortWithStatusJSON(status, gin.H{"statusCode": status, "message": message})
		return
	}

	h.authenticate(c, g)
	h.Metrics.ProxyRequest("login", "ok")
	h.Audit.Record(ctx, h.event(c, audit.EventTypeLogin, g.User, req.Email, ""))
	c.JSON(http.StatusOK, g.User)
}

// SignUp forwards a registration. Failures are answered 200 with an error payload,
// never with an error status; the sign-up form reads the flag.
func (h AuthHandlers) SignUp(c *gin.Context) {
	if h.Remote == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "remote not configured"})
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Metrics.ProxyRequest("register", "invalid")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"statusCode": http.StatusBadRequest, "message": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	g, err := h.Remote.Register(ctx, remote.RegisterRequest{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		_, message := failure(err, msgRegisterFailed)
		h.Metrics.ProxyRequest("register", "failed")
		h.Audit.Record(ctx, h.event(c, audit.EventTypeRegisterFailed, nil, req.Email, message))
		logger.FromGin(c).Info("registration rejected", "err", err)
		c.JSON(http.StatusOK, gin.H{"error": true, "message": message})
		return
	}

	h.authenticate(c, g)
	h.Metrics.ProxyRequest("register", "ok")
	h.Audit.Record(ctx, h.event(c, audit.EventTypeRegister, g.User, req.Email, ""))
	c.JSON(http.StatusOK, g.User)
}

// Refresh renews the cookie credential through the browsing session's in-flight slot,
// so it never runs next to a Load of the same session. Every failure is the same 401:
// the remote's reason is logged, never returned.
func (h AuthHandlers) Refresh(c *gin.Context) {
	sess, ok := session.FromGin(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not attached"})
		return
	}
	ctx := c.Request.Context()
	cookies := h.cookies(c)

	fail := func(reason string, err error) {
		cookies.Clear()
		sess.Clear()
		h.Metrics.ProxyRequest("refresh", "failed")
		h.Audit.Record(ctx, h.event(c, audit.EventTypeRefreshFailed, nil, "", reason))
		logger.FromGin(c).Info("refresh rejected", "reason", reason, "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"statusCode": http.StatusUnauthorized, "message": msgRefreshFailed})
	}

	cred, ok := cookies.Get()
	if !ok {
		fail("no credential", nil)
		return
	}
	// Attach already adopted the cookie; this covers a session built without it.
	sess.Adopt(cred.Value)

	res := sess.Renew(ctx)
	if errors.Is(res.Err, session.ErrCredentialChanged) {
		// a login replaced the credential meanwhile; answer for the new one
		res = sess.Load(ctx)
	}
	if !res.OK() {
		fail("remote refresh failed", res.Err)
		return
	}

	cookies.Set(res.Token, credential.TTL)
	h.Metrics.ProxyRequest("refresh", "ok")
	h.Audit.Record(ctx, h.event(c, audit.EventTypeRefresh, res.Identity, "", ""))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Profile forwards the cookie credential as a bearer header.
func (h AuthHandlers) Profile(c *gin.Context) {
	if h.Remote == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "remote not configured"})
		return
	}
	cred, ok := h.cookies(c).Get()
	if !ok {
		h.Metrics.ProxyRequest("profile", "failed")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"statusCode": http.StatusUnauthorized, "message": msgUnauthorized})
		return
	}

	id, err := h.Remote.Profile(c.Request.Context(), cred.Value)
	if err != nil {
		status, message := failure(err, msgProfileFailed)
		h.Metrics.ProxyRequest("profile", "failed")
		c.AbortWithStatusJSON(status, gin.H{"statusCode": status, "message": message})
		return
	}
	h.Metrics.ProxyRequest("profile", "ok")
	c.JSON(http.StatusOK, id)
}

// Me answers with the browsing session's identity, loading it if needed.
func (h AuthHandlers) Me(c *gin.Context) {
	sess, ok := session.FromGin(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not attached"})
		return
	}
	res := sess.Load(c.Request.Context())
	if errors.Is(res.Err, session.ErrCredentialChanged) {
		// a login or refresh replaced the credential meanwhile; answer for the new one
		res = sess.Load(c.Request.Context())
	}
	if !res.OK() {
		h.Metrics.ProxyRequest("me", "failed")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"statusCode": http.StatusUnauthorized, "message": msgUnauthorized})
		return
	}
	h.Metrics.ProxyRequest("me", "ok")
	c.JSON(http.StatusOK, res.Identity)
}

// Logout drops the cookie and signs the browsing session out.
func (h AuthHandlers) Logout(c *gin.Context) {
	var who *identity.Identity
	if sess, ok := session.FromGin(c); ok {
		who = sess.State().Identity
		sess.Clear()
	}
	h.cookies(c).Clear()
	h.Metrics.ProxyRequest("logout", "ok")
	h.Audit.Record(c.Request.Context(), h.event(c, audit.EventTypeLogout, who, "", ""))
	c.Status(http.StatusNoContent)
}

func (h AuthHandlers) authenticate(c *gin.Context, g identity.Grant) {
	h.cookies(c).Set(g.Token, credential.TTL)
	if sess, ok := session.FromGin(c); ok {
		sess.SetAuthenticated(*g.User, g.Token)
	}
}

func (h AuthHandlers) cookies(c *gin.Context) *credential.CookieStore {
	return credential.HTTPOnlyCookie(c.Writer, c.Request, h.Secure)
}

func (h AuthHandlers) event(c *gin.Context, typ audit.EventType, who *identity.Identity, email, message string) audit.Event {
	e := audit.Event{
		Type:      typ,
		Email:     email,
		IPAddress: c.ClientIP(),
		Message:   message,
	}
	if sess, ok := session.FromGin(c); ok {
		e.SessionID = sess.ID()
	}
	if who != nil {
		e.UserID = strconv.FormatUint(uint64(who.ID), 10)
		if e.Email == "" {
			e.Email = who.Email
		}
	}
	return e
}

// failure maps a remote error onto the status and message shown to the browser.
func failure(err error, fallback string) (int, string) {
	status, message, ok := remote.StatusOf(err)
	if !ok || status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = fallback
	}
	return status, message
}
