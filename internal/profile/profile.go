package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where ispkb stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// Auth configuration
	Secret        string        // ISPKB_SECRET, HS256 signing key
	TokenTTL      time.Duration // ISPKB_TOKEN_TTL (default: 30m)
	AdminUsername string        // ISPKB_ADMIN_USERNAME, bootstrap admin created when no admin exists
	AdminPassword string        // ISPKB_ADMIN_PASSWORD

	// Cache configuration
	CacheDriver      string        // ISPKB_CACHE_DRIVER: redis, memory or none (default: redis when a URL is set, else memory)
	RedisURL         string        // ISPKB_REDIS_URL (legacy: REDIS_URL)
	CacheOpTimeout   time.Duration // ISPKB_CACHE_OP_TIMEOUT (default: 250ms)
	CacheMemoryItems int           // ISPKB_CACHE_MEMORY_ITEMS (default: 1000)

	// AI configuration
	AIBaseURL string // ISPKB_AI_BASE_URL (default: DashScope OpenAI compatible endpoint)
	AIAPIKey  string // ISPKB_AI_API_KEY (legacy: QWEN_API_KEY)
	AIModel   string // ISPKB_AI_MODEL (default: qwen-turbo)

	// ChatRateLimit is the number of chat requests a user may make per minute.
	ChatRateLimit int
}

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	CacheDriverNone   = "none"

	DefaultAIBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultAIModel   = "qwen-turbo"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

func getEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// FromEnv fills fields left empty by flags from environment variables.
// Supports ISPKB_* and the legacy variable names of the previous deployment.
func (p *Profile) FromEnv() {
	if p.RedisURL == "" {
		p.RedisURL = getEnv("ISPKB_REDIS_URL", "REDIS_URL")
	}
	if p.AIAPIKey == "" {
		p.AIAPIKey = getEnv("ISPKB_AI_API_KEY", "QWEN_API_KEY", "DASHSCOPE_API_KEY")
	}
	if p.AIBaseURL == "" {
		p.AIBaseURL = getEnv("ISPKB_AI_BASE_URL")
	}
	if p.AIModel == "" {
		p.AIModel = getEnv("ISPKB_AI_MODEL")
	}
	if p.Secret == "" {
		p.Secret = getEnv("ISPKB_SECRET", "SECRET_KEY")
	}
	if p.AdminUsername == "" {
		p.AdminUsername = getEnv("ISPKB_ADMIN_USERNAME")
	}
	if p.AdminPassword == "" {
		p.AdminPassword = getEnv("ISPKB_ADMIN_PASSWORD")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "ispkb")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/ispkb"
		}
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("ispkb_%s.db", p.Mode))
		}
	} else if p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		p.Secret = "ispkb-dev-secret"
	}
	if p.TokenTTL <= 0 {
		p.TokenTTL = 30 * time.Minute
	}

	switch p.CacheDriver {
	case "":
		if p.RedisURL != "" {
			p.CacheDriver = CacheDriverRedis
		} else {
			p.CacheDriver = CacheDriverMemory
		}
	case CacheDriverRedis, CacheDriverMemory, CacheDriverNone:
	default:
		return errors.Errorf("unsupported cache driver %q", p.CacheDriver)
	}
	if p.CacheOpTimeout <= 0 {
		p.CacheOpTimeout = 250 * time.Millisecond
	}
	if p.CacheMemoryItems <= 0 {
		p.CacheMemoryItems = 1000
	}

	if p.AIBaseURL == "" {
		p.AIBaseURL = DefaultAIBaseURL
	}
	if p.AIModel == "" {
		p.AIModel = DefaultAIModel
	}
	if p.ChatRateLimit <= 0 {
		p.ChatRateLimit = 20
	}
	if p.Mode == "demo" && p.AdminUsername == "" {
		p.AdminUsername = "admin"
		if p.AdminPassword == "" {
			p.AdminPassword = "admin123"
		}
	}
	return nil
}
