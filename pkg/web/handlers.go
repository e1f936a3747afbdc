package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/auth"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/rbac"
)

// protectedUsername cannot be banned, warned, promoted, or deleted.
const protectedUsername = "admin"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Warned   bool   `json:"warned"`
}

// login authenticates a user and opens a new session. A user whose password
// was never set adopts the submitted password on first login.
func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.store.GetUser(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if user == nil {
		h.metrics.LoginFailed()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.Banned {
		h.metrics.LoginFailed()
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	if user.PasswordHash == "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			h.metrics.LoginFailed()
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
			return
		}
		if err := h.store.SetPasswordHash(user.Username, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		slog.Info("first-login password set", "user", user.Username)
	} else if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.metrics.LoginFailed()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token := auth.NewSessionToken()
	if err := h.store.BindSession(user.Username, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.metrics.LoginSucceeded()
	slog.Info("login", "user", user.Username, "role", user.Role)
	c.JSON(http.StatusOK, loginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role.String(),
		Warned:   user.Warned,
	})
}

// logout revokes the presented session. Live chat connections opened with
// this token stay up until they disconnect on their own.
func (h *handlers) logout(c *gin.Context) {
	token := c.MustGet(ctxTokenKey).(string)
	if err := h.store.UnbindSession(currentUser(c).Username, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) getProfile(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"username": user.Username,
		"role":     user.Role.String(),
		"warned":   user.Warned,
		"profile":  user.Profile,
	})
}

// updateProfile replaces name and email, and changes the password when one is
// supplied.
func (h *handlers) updateProfile(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user := currentUser(c)
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
			return
		}
		if err := h.store.SetPasswordHash(user.Username, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	p := model.Profile{Name: req.Name, Email: req.Email}
	if err := h.store.UpdateProfile(user.Username, p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": p})
}

func (h *handlers) getSecret(c *gin.Context) {
	user := currentUser(c)
	if !rbac.HasPermission(user.Role, model.PermReadSecretInfo) {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	secret, err := h.store.SecretInfo()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret})
}

func (h *handlers) updateSecret(c *gin.Context) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.store.SetSecretInfo(req.Secret); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.adminAction(c, "update_secret", "")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) listUsers(c *gin.Context) {
	users, err := h.store.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// target loads the user named in the URL, rejecting the protected admin
// account and unknown users.
func (h *handlers) target(c *gin.Context) *model.User {
	username := c.Param("username")
	if username == protectedUsername {
		c.JSON(http.StatusForbidden, gin.H{"error": "the admin account cannot be modified"})
		return nil
	}

	user, err := h.store.GetUser(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil
	}
	return user
}

// toggleBan flips the ban flag. Banning does not drop live chat connections;
// the ban takes effect on the next login or connection attempt.
func (h *handlers) toggleBan(c *gin.Context) {
	user := h.target(c)
	if user == nil {
		return
	}

	banned := !user.Banned
	if err := h.store.SetBanned(user.Username, banned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.adminAction(c, "ban", user.Username)
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "banned": banned})
}

func (h *handlers) toggleWarn(c *gin.Context) {
	user := h.target(c)
	if user == nil {
		return
	}

	warned := !user.Warned
	if err := h.store.SetWarned(user.Username, warned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.adminAction(c, "warn", user.Username)
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "warned": warned})
}

// promoteUser raises a user to the admin role. There is no demotion endpoint;
// admins stay admins.
func (h *handlers) promoteUser(c *gin.Context) {
	user := h.target(c)
	if user == nil {
		return
	}
	if user.Role == model.RoleAdmin {
		c.JSON(http.StatusConflict, gin.H{"error": "user is already an admin"})
		return
	}

	if err := h.store.SetRole(user.Username, model.RoleAdmin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.adminAction(c, "promote", user.Username)
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "role": model.RoleAdmin.String()})
}

// deleteUser removes the user and every session bound to them.
func (h *handlers) deleteUser(c *gin.Context) {
	user := h.target(c)
	if user == nil {
		return
	}

	if err := h.store.DeleteUser(user.Username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.adminAction(c, "delete", user.Username)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) adminAction(c *gin.Context, action, target string) {
	h.metrics.AdminAction()
	slog.Info("admin action",
		"admin", currentUser(c).Username,
		"action", action,
		"target", target,
	)
}
