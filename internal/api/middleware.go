package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/accounts"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	identityKey     = "identity"
)

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs each request and records its latency.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		prommetrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// CORS builds the cross-origin policy. Credentials are allowed so the
// session cookie travels with browser requests.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

// RequireAuth resolves the session token from the cookie or a bearer header.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := h.sessionToken(c)
		if token == "" {
			h.abort(c, apperror.Unauthorized("authentication required"))
			return
		}

		identity, err := h.accounts.ParseToken(token)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin role.
// It must run after RequireAuth.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := currentIdentity(c)
		if !ok {
			h.abort(c, apperror.Unauthorized("authentication required"))
			return
		}
		if !identity.IsAdmin() {
			h.abort(c, apperror.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

func (h *Handler) sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(h.auth.CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (h *Handler) abort(c *gin.Context, err error) {
	h.fail(c, "auth", err)
	c.Abort()
}

func currentIdentity(c *gin.Context) (accounts.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return accounts.Identity{}, false
	}
	identity, ok := v.(accounts.Identity)
	return identity, ok
}

// requester converts the identity into the minimal user the services check against.
func requester(identity accounts.Identity) *models.User {
	return &models.User{ID: identity.UserID, Role: identity.Role}
}
