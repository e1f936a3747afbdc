// Package web exposes the HTTP login and admin API.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/rbac"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// Metrics is the subset of server metrics the web surface reports into.
type Metrics interface {
	LoginSucceeded()
	LoginFailed()
	AdminAction()
}

type noopMetrics struct{}

func (noopMetrics) LoginSucceeded() {}
func (noopMetrics) LoginFailed()    {}
func (noopMetrics) AdminAction()    {}

type handlers struct {
	store   store.DataStore
	metrics Metrics
}

// New builds the HTTP API handler.
func New(st store.DataStore, m Metrics) http.Handler {
	if m == nil {
		m = noopMetrics{}
	}
	h := &handlers{store: st, metrics: m}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	api.POST("/login", h.login)

	authed := api.Group("", h.requireSession)
	authed.POST("/logout", h.logout)
	authed.GET("/profile", h.getProfile)
	authed.PUT("/profile", h.updateProfile)
	authed.GET("/secret", h.getSecret)

	admin := authed.Group("/admin", h.requireAdmin)
	admin.GET("/users", h.listUsers)
	admin.POST("/users/:username/ban", h.toggleBan)
	admin.POST("/users/:username/warn", h.toggleWarn)
	admin.POST("/users/:username/promote", h.promoteUser)
	admin.DELETE("/users/:username", h.deleteUser)
	admin.PUT("/secret", h.updateSecret)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

const ctxUserKey = "blox.user"
const ctxTokenKey = "blox.token"

// sessionToken pulls the token from Authorization: Bearer or X-Session-Token.
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.GetHeader("X-Session-Token")
}

// requireSession resolves the session token to its user and aborts with 401
// on a missing or unknown token, or 403 for a banned user.
func (h *handlers) requireSession(c *gin.Context) {
	token := sessionToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
		return
	}

	username, err := h.store.ResolveSession(token)
	if errors.Is(err, store.ErrSessionNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user, err := h.store.GetUser(username)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return
	}
	if user.Banned {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	c.Set(ctxUserKey, user)
	c.Set(ctxTokenKey, token)
	c.Next()
}

func (h *handlers) requireAdmin(c *gin.Context) {
	user := currentUser(c)
	if !rbac.HasPermission(user.Role, model.PermManageUsers) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(ctxUserKey).(*model.User)
}
