package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/accounts"
)

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates an account and signs the user in.
// POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req accounts.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "register", err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.accounts.Register(ctx, req); err != nil {
		h.fail(c, "register", err)
		return
	}

	session, err := h.accounts.Login(ctx, req.Phone, req.Password)
	if err != nil {
		h.fail(c, "login after register", err)
		return
	}
	h.setSessionCookie(c, session)

	c.JSON(http.StatusCreated, session)
}

// Login verifies credentials and sets the session cookie.
// POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "login", err)
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	h.setSessionCookie(c, session)

	c.JSON(http.StatusOK, session)
}

// Logout clears the session cookie.
// POST /api/auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", h.auth.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) setSessionCookie(c *gin.Context, session *accounts.Session) {
	maxAge := int(session.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, session.Token, maxAge, "/", "", h.auth.SecureCookie, true)
}

// Me returns the authenticated user.
// GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	identity, _ := currentIdentity(c)
	user, err := h.accounts.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUser returns the public profile of a user.
// GET /api/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "get user", err)
		return
	}

	profile, err := h.accounts.PublicProfile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// ListUsers returns all users, optionally filtered by role.
// GET /api/users?role=user.
func (h *Handler) ListUsers(c *gin.Context) {
	role := c.Query("role")
	switch role {
	case "", models.RoleUser, models.RoleAdmin:
	default:
		h.fail(c, "list users", apperror.Validation("invalid role: %s", role))
		return
	}

	users, err := h.accounts.ListUsers(c.Request.Context(), role)
	if err != nil {
		h.fail(c, "list users", err)
		return
	}

	h.log.Debug().Str("role", role).Int("users", len(users)).Msg("Listed users")
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": len(users),
	})
}
