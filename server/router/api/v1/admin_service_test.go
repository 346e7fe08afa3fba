package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/server/stats"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ts := newTestServer(t)
	for _, target := range []string{"/api/v1/admin/users", "/api/v1/admin/stats", "/api/v1/admin/cache/stats", "/api/v1/admin/logs/chat"} {
		rec := ts.do(http.MethodGet, target, ts.userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestAdminUsers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/users", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]*userResponse](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)

	rec = ts.do(http.MethodGet, "/api/v1/admin/users?limit=1&skip=1", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users = decode[[]*userResponse](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)

	rec = ts.do(http.MethodGet, "/api/v1/admin/users?limit=0", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/admin/users", ts.adminToken, map[string]any{
		"username": "carol",
		"password": "carol-password",
		"role":     "owner",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/admin/users", ts.adminToken, map[string]any{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "carol-password",
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	carol := decode[userResponse](t, rec)
	assert.Equal(t, store.RoleAdmin, carol.Role)

	target := fmt.Sprintf("/api/v1/admin/users/%d", carol.ID)
	rec = ts.do(http.MethodPut, target, ts.adminToken, map[string]any{"username": "alice"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, target, ts.adminToken, map[string]any{
		"role":      "user",
		"is_active": false,
		"password":  "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[userResponse](t, rec)
	assert.Equal(t, store.RoleUser, updated.Role)
	assert.False(t, updated.IsActive)

	rec = ts.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "carol", "password": "new-password"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPut, "/api/v1/admin/users/9999", ts.adminToken, map[string]any{"role": "user"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodPut, "/api/v1/admin/users/abc", ts.adminToken, map[string]any{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", ts.adminID), ts.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, target, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, target, ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/stats", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[stats.Overview](t, rec)
	assert.Equal(t, int64(2), overview.TotalUsers)
	assert.Equal(t, int64(7), overview.TotalKnowledgeItems)

	rec = ts.do(http.MethodGet, "/api/v1/admin/stats/daily", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decode[map[string][]*stats.Day](t, rec)["daily_stats"]
	require.Len(t, daily, stats.DefaultDays)
	assert.Equal(t, int64(2), daily[0].NewUsers)

	rec = ts.do(http.MethodGet, "/api/v1/admin/stats/daily?days=31", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/admin/stats/daily?days=0", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCache(t *testing.T) {
	ts := newTestServer(t)

	ts.do(http.MethodGet, "/api/v1/knowledge/categories", ts.userToken, nil)
	ts.do(http.MethodGet, "/api/v1/flow/versions", ts.userToken, nil)

	rec := ts.do(http.MethodGet, "/api/v1/admin/cache/stats", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	before := decode[cache.Stats](t, rec)
	assert.True(t, before.Available)
	assert.Equal(t, 1, before.Keys[cache.ClassKnowledge])
	assert.Equal(t, 1, before.Keys[cache.ClassFlow])

	rec = ts.do(http.MethodPost, "/api/v1/admin/cache/clear?cache_type=sessions", ts.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/admin/cache/clear?cache_type=knowledge", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["cleared"])
	keys := ts.service.Cache.Manager().Stats(context.Background()).Keys
	assert.Zero(t, keys[cache.ClassKnowledge])
	assert.Equal(t, 1, keys[cache.ClassFlow])

	rec = ts.do(http.MethodPost, "/api/v1/admin/cache/clear?cache_type=all", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, ts.service.Cache.Manager().Stats(context.Background()).Keys[cache.ClassFlow])
}

func TestAdminChatLogs(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	long := strings.Repeat("色", 150)
	_, err := ts.store.CreateChatMessage(ctx, &store.ChatMessage{
		UserID:    ts.userID,
		SessionID: "s1",
		Role:      store.ChatRoleUser,
		Content:   "short question",
		CreatedTs: 1_700_000_000,
	})
	require.NoError(t, err)
	_, err = ts.store.CreateChatMessage(ctx, &store.ChatMessage{
		UserID:         ts.userID,
		SessionID:      "s1",
		Role:           store.ChatRoleAssistant,
		Content:        long,
		ResponseTimeMs: 120,
		CreatedTs:      1_700_000_001,
	})
	require.NoError(t, err)

	rec := ts.do(http.MethodGet, "/api/v1/admin/logs/chat", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[map[string][]*chatLogResponse](t, rec)["logs"]
	require.Len(t, logs, 2)
	assert.Equal(t, "alice", logs[0].User)
	assert.Equal(t, store.ChatRoleAssistant, logs[0].MessageType)
	assert.Equal(t, strings.Repeat("色", 100)+"...", logs[0].Content)
	assert.Equal(t, int32(120), logs[0].ResponseTimeMs)
	assert.Equal(t, "short question", logs[1].Content)

	rec = ts.do(http.MethodGet, "/api/v1/admin/logs/chat?limit=1&skip=1", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs = decode[map[string][]*chatLogResponse](t, rec)["logs"]
	require.Len(t, logs, 1)
	assert.Equal(t, "short question", logs[0].Content)
}
