package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/store/cache"
	teststore "github.com/hrygo/ispkb/store/test"
)

func newTestServer(t *testing.T, p *profile.Profile) (*Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	s, err := NewServer(context.Background(), p, teststore.NewTestingStore(context.Background(), t), logger)
	require.NoError(t, err)
	return s, &logs
}

func testProfile(cacheDriver string) *profile.Profile {
	return &profile.Profile{
		Mode:             "dev",
		Version:          "test",
		Secret:           "test-secret",
		TokenTTL:         time.Hour,
		CacheDriver:      cacheDriver,
		CacheMemoryItems: 100,
		ChatRateLimit:    10,
		AdminUsername:    "admin",
		AdminPassword:    "admin-password",
	}
}

func TestServerServesWithEveryCacheDriver(t *testing.T) {
	for driver, want := range map[string]string{
		profile.CacheDriverMemory: "available",
		profile.CacheDriverNone:   "unavailable",
	} {
		t.Run(driver, func(t *testing.T) {
			s, logs := newTestServer(t, testProfile(driver))

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			var health map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, "ok", health["status"])
			assert.Equal(t, want, health["cache"])
			assert.Contains(t, logs.String(), `"path":"/api/v1/healthz"`)
		})
	}
}

func TestServerBootstrapsAdmin(t *testing.T) {
	s, _ := newTestServer(t, testProfile(profile.CacheDriverMemory))

	body := bytes.NewBufferString(`{"username":"admin","password":"admin-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestServerAllowsCORS(t *testing.T) {
	s, _ := newTestServer(t, testProfile(profile.CacheDriverMemory))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewCacheBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.IsType(t, &cache.NopBackend{}, newCacheBackend(testProfile(profile.CacheDriverNone), logger))
	assert.IsType(t, &cache.MemoryBackend{}, newCacheBackend(testProfile(profile.CacheDriverMemory), logger))

	p := testProfile(profile.CacheDriverRedis)
	p.RedisURL = "redis://localhost:6379/0"
	backend := newCacheBackend(p, logger)
	assert.IsType(t, &cache.RedisBackend{}, backend)
	require.NoError(t, backend.Close())

	for _, url := range []string{"", "://bad", "http://x"} {
		p.RedisURL = url
		assert.IsType(t, &cache.NopBackend{}, newCacheBackend(p, logger), url)
	}
}

func TestServerStartsWithMisconfiguredRedis(t *testing.T) {
	for _, url := range []string{"", "http://x"} {
		t.Run(url, func(t *testing.T) {
			p := testProfile(profile.CacheDriverRedis)
			p.RedisURL = url
			s, logs := newTestServer(t, p)
			assert.Contains(t, logs.String(), "continuing without cache")

			body := bytes.NewBufferString(`{"username":"admin","password":"admin-password"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var login struct {
				AccessToken string `json:"access_token"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
			require.NotEmpty(t, login.AccessToken)

			req = httptest.NewRequest(http.MethodGet, "/api/v1/knowledge/categories", nil)
			req.Header.Set("Authorization", "Bearer "+login.AccessToken)
			rec = httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}
