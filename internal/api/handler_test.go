//nolint:noctx // Test file uses http.NewRequest for simplicity
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/accounts"
	"github.com/ecoplant/plant-rewards/internal/service/leaderboard"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// Mock Account Service
type mockAccountService struct {
	tokens map[string]accounts.Identity
	users  map[uint]*models.User
}

func (m *mockAccountService) Register(context.Context, accounts.RegisterInput) (*models.User, error) {
	return nil, apperror.Validation("phone and password are required")
}

func (m *mockAccountService) Login(context.Context, string, string) (*accounts.Session, error) {
	return nil, apperror.Unauthorized("invalid phone or password")
}

func (m *mockAccountService) ParseToken(token string) (accounts.Identity, error) {
	identity, ok := m.tokens[token]
	if !ok {
		return accounts.Identity{}, apperror.Unauthorized("invalid token")
	}
	return identity, nil
}

func (m *mockAccountService) Me(_ context.Context, userID uint) (*models.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	return user, nil
}

func (m *mockAccountService) PublicProfile(context.Context, uint) (*models.PublicProfile, error) {
	return nil, apperror.Storage("load user", errors.New("connection refused"))
}

func (m *mockAccountService) ListUsers(context.Context, string) ([]models.User, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

// Mock Ranking Service
type mockRankingService struct {
	entries   []leaderboard.Entry
	lastLimit int
	lastCity  string
}

func (m *mockRankingService) GetGlobalRanking(_ context.Context, limit int) ([]leaderboard.Entry, error) {
	m.lastLimit = limit
	if len(m.entries) > limit {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func (m *mockRankingService) GetCityRanking(_ context.Context, city string, limit int) ([]leaderboard.Entry, error) {
	m.lastCity = city
	m.lastLimit = limit
	return m.entries, nil
}

func (m *mockRankingService) GetRank(_ context.Context, userID uint, _ string) (leaderboard.Position, error) {
	pos, ok := leaderboard.Find(m.entries, userID)
	if !ok {
		return leaderboard.Position{}, apperror.NotFound("ranked user", userID)
	}
	return pos, nil
}

func (m *mockRankingService) GetMyRank(context.Context, uint) (*leaderboard.MyRank, error) {
	return &leaderboard.MyRank{}, nil
}

func (m *mockRankingService) GetUserStats(_ context.Context, userID uint) (*leaderboard.UserStats, error) {
	return &leaderboard.UserStats{}, nil
}

// Test Setup
func setupTestHandler() (*Handler, *mockAccountService, *mockRankingService) {
	accountService := &mockAccountService{
		tokens: map[string]accounts.Identity{
			"user-token":  {UserID: 1, Role: models.RoleUser},
			"admin-token": {UserID: 2, Role: models.RoleAdmin},
		},
		users: map[uint]*models.User{
			1: {ID: 1, Name: "Alice", Role: models.RoleUser},
			2: {ID: 2, Name: "Root", Role: models.RoleAdmin},
		},
	}
	rankingService := &mockRankingService{
		entries: []leaderboard.Entry{
			{Rank: 1, UserID: 1, Name: "Alice", Points: 2000},
			{Rank: 2, UserID: 3, Name: "Bob", Points: 1000},
			{Rank: 3, UserID: 4, Name: "Carol", Points: 500},
		},
	}

	handler := NewHandler(Services{
		Accounts: accountService,
		Ranking:  rankingService,
	}, &config.AuthConfig{CookieName: "token"}, 2, []HealthCheck{
		{Name: "database", Check: func(context.Context) error { return nil }},
	}, logger.Nop())

	return handler, accountService, rankingService
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(handler, RouterOptions{}, logger.Nop())
}

func perform(router *gin.Engine, method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestGetGlobalRanking(t *testing.T) {
	handler, _, ranking := setupTestHandler()
	router := setupRouter(handler)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
		wantCount int
	}{
		{name: "default limit", query: "", wantCode: http.StatusOK, wantLimit: 2, wantCount: 2},
		{name: "explicit limit", query: "?limit=3", wantCode: http.StatusOK, wantLimit: 3, wantCount: 3},
		{name: "zero limit", query: "?limit=0", wantCode: http.StatusBadRequest},
		{name: "non numeric limit", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "limit too large", query: "?limit=5000", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, "/api/ranking/global"+tt.query, nil)
			assert.Equal(t, tt.wantCode, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, string(apperror.KindValidation), body["code"])
				assert.NotEmpty(t, body["timestamp"])
				return
			}
			assert.Equal(t, tt.wantLimit, ranking.lastLimit)
			assert.Equal(t, float64(tt.wantCount), body["total_entries"])
		})
	}
}

func TestGetCityRanking(t *testing.T) {
	handler, _, ranking := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/api/ranking/city/Almaty?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Almaty", ranking.lastCity)
	assert.Equal(t, 5, ranking.lastLimit)
}

func TestGetUserRank(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/api/users/3/rank", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Position leaderboard.Position `json:"position"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Position.Rank)
	assert.Equal(t, 3, body.Position.Total)

	w = perform(router, http.MethodGet, "/api/users/99/rank", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodGet, "/api/users/abc/rank", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireAuth(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	tests := []struct {
		name     string
		mutate   func(*http.Request)
		wantCode int
	}{
		{name: "no credentials", mutate: nil, wantCode: http.StatusUnauthorized},
		{name: "bad bearer token", mutate: bearer("nope"), wantCode: http.StatusUnauthorized},
		{name: "bearer token", mutate: bearer("user-token"), wantCode: http.StatusOK},
		{
			name: "session cookie",
			mutate: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "token", Value: "user-token"})
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "malformed header",
			mutate:   func(r *http.Request) { r.Header.Set("Authorization", "user-token") },
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, "/api/me", tt.mutate)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/api/users", bearer("user-token"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(router, http.MethodGet, "/api/users", bearer("admin-token"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)

	w = perform(router, http.MethodGet, "/api/users?role=root", bearer("admin-token"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageErrorsAreMasked(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/api/users/1", bearer("user-token"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestLoginFailure(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodPost, "/api/auth/login", func(r *http.Request) {
		r.Body = http.NoBody
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"phone":"1","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestLogoutClearsCookie(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=;")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestHealth(t *testing.T) {
	handler, _, _ := setupTestHandler()
	handler.checks = append(handler.checks, HealthCheck{
		Name:  "redis",
		Check: func(context.Context) error { return errors.New("down") },
	})
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupRouter(handler)

	w := perform(router, http.MethodGet, "/health", func(r *http.Request) {
		r.Header.Set(requestIDHeader, "abc-123")
	})
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = perform(router, http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}
