package main

import (
	"log/slog"
	"net/http"

	"sociomile-gateway/internal/audit"
	"sociomile-gateway/internal/httpapi"
	"sociomile-gateway/internal/metrics"
	"sociomile-gateway/internal/rbac"
	"sociomile-gateway/internal/session"
	"sociomile-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type routerDeps struct {
	Log      *slog.Logger
	Sessions *session.Registry
	Remote   httpapi.Remote
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Audit    *audit.Service
	Secure   bool
}

// newRouter wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(d.Log, "/healthz", "/metrics"))

	// public, no browsing session
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	site := r.Group("/")
	site.Use(session.Attach(d.Sessions, d.Secure))

	// AUTH proxy
	httpapi.AuthHandlers{
		Remote:  d.Remote,
		Metrics: d.Metrics,
		Audit:   d.Audit,
		Secure:  d.Secure,
	}.Register(site.Group("/api/auth"))

	guard := func(g rbac.Guard) gin.HandlerFunc { return rbac.Require(g, d.Metrics, d.Secure) }

	site.GET("/", httpapi.Page("home"))
	site.GET("/signin", guard(rbac.GuestRedirect), httpapi.Page("signin"))
	site.GET("/signup", guard(rbac.GuestRedirect), httpapi.Page("signup"))
	site.GET("/profile", guard(rbac.Authenticated), httpapi.Page("profile"))

	hub := site.Group("/hub", guard(rbac.SuperAdmin))
	hub.GET("/*view", httpapi.Page("hub"))

	org := site.Group("/organization", guard(rbac.Organization))
	org.GET("/*view", httpapi.Page("organization"))

	guest := site.Group("/guest", guard(rbac.GuestUser))
	guest.GET("/*view", httpapi.Page("guest"))

	return r
}
