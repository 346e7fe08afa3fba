package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/plugin/ai"
	"github.com/hrygo/ispkb/plugin/markdown"
	"github.com/hrygo/ispkb/server/auth"
	"github.com/hrygo/ispkb/server/middleware"
	"github.com/hrygo/ispkb/server/search"
	"github.com/hrygo/ispkb/server/service/chat"
	"github.com/hrygo/ispkb/server/stats"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Cache    *cache.Domain
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	AuthService     *auth.Service
	SearchService   *search.Service
	ChatService     *chat.Service
	StatsCollector  *stats.Collector
	MarkdownService markdown.Service

	chatLimiter *middleware.RateLimiter
}

// NewAPIV1Service wires the HTTP services. A nil llm disables chat answers
// and search enhancement; everything else keeps working.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, cacheDomain *cache.Domain, llm ai.LLMService, reg *prometheus.Registry) *APIV1Service {
	metrics := observability.NewMetrics(reg)
	service := &APIV1Service{
		Profile:         profile,
		Store:           st,
		Cache:           cacheDomain,
		Metrics:         metrics,
		AuthService:     auth.NewService(st, auth.NewTokenIssuer(profile.Secret, profile.TokenTTL)),
		SearchService:   search.NewService(st, cacheDomain, metrics, llm),
		ChatService:     chat.NewService(st, cacheDomain, llm, metrics),
		StatsCollector:  stats.NewCollector(st),
		MarkdownService: markdown.NewService(),
		chatLimiter:     middleware.NewRateLimiter(profile.ChatRateLimit),
	}
	if reg != nil {
		service.Gatherer = reg
	}
	return service
}

// RegisterRoutes mounts the API under /api/v1.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Validator = newRequestValidator()

	api := e.Group("/api/v1")
	api.GET("/healthz", s.Healthz)
	if s.Gatherer != nil {
		api.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}
	api.POST("/auth/login", s.Login)
	api.POST("/auth/register", s.Register)

	authed := api.Group("", middleware.Authenticate(s.AuthService))
	adminOnly := middleware.RequireAdmin()

	authed.GET("/auth/me", s.GetCurrentUser)

	authed.GET("/knowledge/categories", s.ListKnowledgeCategories)
	authed.POST("/knowledge/categories", s.CreateKnowledgeCategory)
	authed.PUT("/knowledge/categories/:id", s.UpdateKnowledgeCategory)
	authed.DELETE("/knowledge/categories/:id", s.DeleteKnowledgeCategory)
	authed.GET("/knowledge/search", s.FilterKnowledgeItems)
	authed.GET("/knowledge/feed.rss", s.KnowledgeFeed)
	authed.POST("/knowledge/item", s.CreateKnowledgeItem)
	authed.GET("/knowledge/item/:id", s.GetKnowledgeItem)
	authed.PUT("/knowledge/item/:id", s.UpdateKnowledgeItem)
	authed.DELETE("/knowledge/item/:id", s.DeleteKnowledgeItem)
	authed.GET("/knowledge/item/:id/details", s.ListKnowledgeDetails)
	authed.POST("/knowledge/item/:id/details", s.CreateKnowledgeDetail)
	authed.GET("/knowledge/detail/:id", s.GetKnowledgeDetail)
	authed.PUT("/knowledge/detail/:id", s.UpdateKnowledgeDetail)
	authed.DELETE("/knowledge/detail/:id", s.DeleteKnowledgeDetail)

	authed.GET("/flow/versions", s.ListFlowArchitectures)
	authed.GET("/flow/version/:id", s.GetFlowVersion)
	authed.GET("/flow/module/:id", s.GetFlowModule)
	authed.POST("/flow/versions", s.CreateFlowVersion, adminOnly)
	authed.PUT("/flow/versions/:id", s.UpdateFlowVersion, adminOnly)
	authed.DELETE("/flow/versions/:id", s.DeleteFlowVersion, adminOnly)
	authed.POST("/flow/modules", s.CreateFlowModule, adminOnly)
	authed.PUT("/flow/modules/:id", s.UpdateFlowModule, adminOnly)
	authed.DELETE("/flow/modules/:id", s.DeleteFlowModule, adminOnly)

	authed.GET("/search", s.Search)
	authed.GET("/search/enhanced", s.EnhancedSearch)
	authed.GET("/search/suggestions", s.SearchSuggestions)
	authed.GET("/search/popular", s.PopularSearches)

	chatGroup := authed.Group("/chat", middleware.RateLimit(s.chatLimiter))
	chatGroup.POST("/message", s.SendChatMessage)
	chatGroup.POST("/stream", s.StreamChatMessage)
	chatGroup.GET("/history", s.ListChatHistory)
	chatGroup.GET("/sessions", s.ListChatSessions)
	chatGroup.DELETE("/session/:id", s.DeleteChatSession)

	admin := authed.Group("/admin", adminOnly)
	admin.GET("/users", s.ListUsers)
	admin.POST("/users", s.CreateUser)
	admin.PUT("/users/:id", s.UpdateUser)
	admin.DELETE("/users/:id", s.DeleteUser)
	admin.GET("/stats", s.GetSystemStats)
	admin.GET("/stats/daily", s.GetDailyStats)
	admin.POST("/cache/clear", s.ClearCache)
	admin.GET("/cache/stats", s.GetCacheStats)
	admin.GET("/logs/chat", s.ListChatLogs)
}

// messageResponse is the body of mutations that return no resource.
type messageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// invalidate drops the cached views of the given classes after a write.
// Search results embed knowledge and flow content, so search goes with them.
func (s *APIV1Service) invalidate(c echo.Context, classes ...cache.Class) {
	s.Cache.Invalidate(c.Request().Context(), append(classes, cache.ClassSearch)...)
}
