package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ISPKB_REDIS_URL", "REDIS_URL",
		"ISPKB_AI_API_KEY", "QWEN_API_KEY", "DASHSCOPE_API_KEY",
		"ISPKB_AI_BASE_URL", "ISPKB_AI_MODEL",
		"ISPKB_SECRET", "SECRET_KEY",
		"ISPKB_ADMIN_USERNAME", "ISPKB_ADMIN_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestValidateDefaults(t *testing.T) {
	clearEnv(t)
	p := &Profile{Mode: "dev", Data: t.TempDir()}
	p.FromEnv()
	require.NoError(t, p.Validate())

	assert.Equal(t, "sqlite", p.Driver)
	assert.Contains(t, p.DSN, "ispkb_dev.db")
	assert.Equal(t, CacheDriverMemory, p.CacheDriver)
	assert.Equal(t, 250*time.Millisecond, p.CacheOpTimeout)
	assert.Equal(t, 1000, p.CacheMemoryItems)
	assert.Equal(t, 30*time.Minute, p.TokenTTL)
	assert.Equal(t, DefaultAIModel, p.AIModel)
	assert.Equal(t, DefaultAIBaseURL, p.AIBaseURL)
	assert.False(t, p.IsAIEnabled())
	assert.True(t, p.IsDev())
}

func TestValidateUnknownModeFallsBackToDemo(t *testing.T) {
	clearEnv(t)
	p := &Profile{Mode: "staging", Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, "admin", p.AdminUsername)
}

func TestFromEnvLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("QWEN_API_KEY", "sk-test")
	t.Setenv("ISPKB_AI_MODEL", "qwen-plus")

	p := &Profile{Mode: "dev", Data: t.TempDir()}
	p.FromEnv()
	require.NoError(t, p.Validate())

	assert.Equal(t, CacheDriverRedis, p.CacheDriver)
	assert.Equal(t, "sk-test", p.AIAPIKey)
	assert.Equal(t, "qwen-plus", p.AIModel)
	assert.True(t, p.IsAIEnabled())
}

func TestValidateErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		profile *Profile
	}{
		{"prod without secret", &Profile{Mode: "prod", Data: t.TempDir()}},
		{"postgres without dsn", &Profile{Mode: "dev", Driver: "postgres"}},
		{"unknown driver", &Profile{Mode: "dev", Driver: "mysql"}},
		{"unknown cache driver", &Profile{Mode: "dev", Data: t.TempDir(), CacheDriver: "memcached"}},
		{"missing data dir", &Profile{Mode: "dev", Data: "/nonexistent/ispkb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.profile.Validate())
		})
	}
}

func TestValidateToleratesRedisWithoutURL(t *testing.T) {
	clearEnv(t)
	p := &Profile{Mode: "dev", Data: t.TempDir(), CacheDriver: CacheDriverRedis}
	require.NoError(t, p.Validate())
	assert.Equal(t, CacheDriverRedis, p.CacheDriver)
	assert.Empty(t, p.RedisURL)
}
