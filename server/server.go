package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/plugin/ai"
	"github.com/hrygo/ispkb/server/middleware"
	apiv1 "github.com/hrygo/ispkb/server/router/api/v1"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

// statsInterval is how often the usage summary is logged.
const statsInterval = 15 * time.Minute

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer   *echo.Echo
	cacheManager *cache.Manager
	apiV1Service *apiv1.APIV1Service
	logger       *slog.Logger
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
		logger:  logger,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backend := newCacheBackend(profile, logger)
	s.cacheManager = cache.NewManager(backend, cache.Options{
		OpTimeout:  profile.CacheOpTimeout,
		Registerer: registry,
	})

	var llm ai.LLMService
	if cfg := ai.NewLLMConfigFromProfile(profile); cfg != nil {
		var err error
		if llm, err = ai.NewLLMService(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
	} else {
		logger.Warn("AI is not configured, chat and enhanced search are unavailable")
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = middleware.HTTPErrorHandler
	s.echoServer = echoServer

	s.apiV1Service = apiv1.NewAPIV1Service(profile, store, cache.NewDomain(s.cacheManager), llm, registry)
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(middleware.RequestLogger(logger, s.apiV1Service.Metrics))
	echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	s.apiV1Service.RegisterRoutes(echoServer)

	if profile.AdminUsername != "" {
		if err := s.apiV1Service.AuthService.BootstrapAdmin(ctx, profile.AdminUsername, profile.AdminPassword); err != nil {
			return nil, errors.Wrap(err, "failed to bootstrap admin user")
		}
	}
	return s, nil
}

// newCacheBackend picks the backend named by the profile. A cache that
// cannot be configured is replaced by the no-op backend; an unreachable Redis
// is kept and the manager degrades to misses until it comes back.
func newCacheBackend(p *profile.Profile, logger *slog.Logger) cache.Backend {
	switch p.CacheDriver {
	case profile.CacheDriverRedis:
		if p.RedisURL == "" {
			logger.Warn("redis cache selected without a url, continuing without cache")
			return cache.NewNopBackend()
		}
		config := cache.DefaultRedisConfig()
		config.URL = p.RedisURL
		backend, err := cache.NewRedisBackend(config)
		if err != nil {
			logger.Warn("invalid redis cache config, continuing without cache", slog.String("error", err.Error()))
			return cache.NewNopBackend()
		}
		return backend
	case profile.CacheDriverNone:
		return cache.NewNopBackend()
	default:
		backend, err := cache.NewMemoryBackend(p.CacheMemoryItems)
		if err != nil {
			logger.Warn("invalid memory cache config, continuing without cache", slog.String("error", err.Error()))
			return cache.NewNopBackend()
		}
		return backend
	}
}

func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	s.apiV1Service.StatsCollector.Start(ctx, statsInterval)

	go func() {
		s.echoServer.Listener = listener
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("server started",
		slog.String("address", address),
		slog.String("mode", s.Profile.Mode),
		slog.String("version", s.Profile.Version),
		slog.String("cache", s.Profile.CacheDriver))
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.logger.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.apiV1Service.StatsCollector.Stop()
	// Pending search logs go to the store, so they drain before it closes.
	s.apiV1Service.SearchService.Close()

	if err := s.cacheManager.Close(); err != nil {
		s.logger.Error("failed to close cache", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close database", slog.String("error", err.Error()))
	}

	s.logger.Info("server stopped properly")
}

// Handler exposes the HTTP handler for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}
