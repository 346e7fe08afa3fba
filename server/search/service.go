package search

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/plugin/ai"
	"github.com/hrygo/ispkb/plugin/ai/timeout"
	"github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

// Result types.
const (
	TypeKnowledge = "knowledge"
	TypeFlow      = "flow"
	TypeAll       = "all"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultPopularLimit = 10
	MaxPopularLimit     = 50

	suggestionsPerSource = 5
	maxSuggestions       = 10
)

// Request is one search call. UserID is recorded in the search log; zero
// means anonymous.
type Request struct {
	Query  string
	Type   string
	Limit  int
	UserID int32
}

// normalize fills defaults and rejects out of range parameters.
func (r *Request) normalize() error {
	if r.Type == "" {
		r.Type = TypeAll
	}
	switch r.Type {
	case TypeKnowledge, TypeFlow, TypeAll:
	default:
		return errors.InvalidArgument("type must be one of knowledge, flow or all").WithContext("type", r.Type)
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return errors.InvalidArgument("limit must be between 1 and 100").WithContext("limit", r.Limit)
	}
	return nil
}

func (r *Request) params() url.Values {
	return url.Values{
		"q":     {r.Query},
		"type":  {r.Type},
		"limit": {strconv.Itoa(r.Limit)},
	}
}

type Result struct {
	Type         string  `json:"type"`
	Category     string  `json:"category,omitempty"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Status       string  `json:"status,omitempty"`
	ExternalLink string  `json:"external_link,omitempty"`
	Relevance    float64 `json:"relevance"`
}

type Response struct {
	Query         string    `json:"query"`
	Total         int       `json:"total"`
	Results       []*Result `json:"results"`
	AIEnhancement string    `json:"ai_enhancement,omitempty"`
}

func emptyResponse(query string) *Response {
	return &Response{Query: query, Results: []*Result{}}
}

// candidate is a store row shaped as a result, carrying the text it is ranked on.
type candidate struct {
	result                   Result
	title, description, body string
}

func (c *candidate) SearchText() (string, string, string) {
	return c.title, c.description, c.body
}

func knowledgeCandidate(item *store.KnowledgeItem) *candidate {
	title, description, body := item.SearchText()
	return &candidate{
		result: Result{
			Type:         TypeKnowledge,
			Category:     item.CategoryTitle,
			Title:        item.Title,
			Description:  item.Description,
			Status:       string(item.Status),
			ExternalLink: item.ExternalLink,
		},
		title: title, description: description, body: body,
	}
}

func flowCandidate(module *store.FlowModule) *candidate {
	title, description, body := module.SearchText()
	return &candidate{
		result: Result{
			Type:         TypeFlow,
			Category:     module.VersionTitle,
			Title:        module.Title,
			Description:  module.Description,
			ExternalLink: module.ExternalLink,
		},
		title: title, description: description, body: body,
	}
}

// Service answers search, suggestion and popular query requests.
type Service struct {
	store   *store.Store
	cache   *cache.Domain
	metrics *observability.Metrics
	llm     ai.LLMService

	// logs tracks in-flight search log writes.
	logs sync.WaitGroup
}

// NewService creates a search service. llm may be nil, in which case
// enhanced search returns the plain results.
func NewService(s *store.Store, c *cache.Domain, m *observability.Metrics, llm ai.LLMService) *Service {
	return &Service{store: s, cache: c, metrics: m, llm: llm}
}

// Search ranks knowledge items and flow modules against req.Query. An empty
// query yields an empty response without touching the cache or the store.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	q := NewQuery(req.Query)
	if q.Empty() {
		return emptyResponse(req.Query), nil
	}

	start := time.Now()
	computed := false
	resp, err := cache.ReadThrough(ctx, s.cache, cache.SearchKey(req.params()), cache.ClassSearch.TTL(),
		func(ctx context.Context) (*Response, error) {
			computed = true
			return s.rank(ctx, req, q)
		})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	s.metrics.RecordSearch(!computed, resp.Total, elapsed)
	s.logSearch(ctx, req, resp.Total, elapsed)
	return resp, nil
}

// rank fetches every matching candidate, then scores, sorts and truncates.
// Candidates are fetched without a limit so truncation only ever drops
// lower scored records.
func (s *Service) rank(ctx context.Context, req Request, q Query) (*Response, error) {
	var knowledge, flow []*candidate
	g, gctx := errgroup.WithContext(ctx)
	if req.Type == TypeKnowledge || req.Type == TypeAll {
		g.Go(func() error {
			items, err := s.store.ListKnowledgeItems(gctx, &store.FindKnowledgeItem{
				Keywords:           q.Tokens(),
				ActiveCategoryOnly: true,
			})
			if err != nil {
				return err
			}
			knowledge = make([]*candidate, 0, len(items))
			for _, item := range items {
				knowledge = append(knowledge, knowledgeCandidate(item))
			}
			return nil
		})
	}
	if req.Type == TypeFlow || req.Type == TypeAll {
		g.Go(func() error {
			modules, err := s.store.ListFlowModules(gctx, &store.FindFlowModule{
				Keywords:          q.Tokens(),
				ActiveVersionOnly: true,
			})
			if err != nil {
				return err
			}
			flow = make([]*candidate, 0, len(modules))
			for _, module := range modules {
				flow = append(flow, flowCandidate(module))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Internal("failed to search", err)
	}

	ranked := Rank(q, append(knowledge, flow...), req.Limit)
	resp := &Response{Query: req.Query, Total: len(ranked), Results: make([]*Result, 0, len(ranked))}
	for _, r := range ranked {
		result := r.Record.result
		result.Relevance = r.Score
		resp.Results = append(resp.Results, &result)
	}
	return resp, nil
}

// logSearch records the query in the background. The write outlives the
// request but is bounded by its own timeout; failures are only logged.
func (s *Service) logSearch(ctx context.Context, req Request, total int, elapsed time.Duration) {
	ctx = context.WithoutCancel(ctx)
	s.logs.Add(1)
	go func() {
		defer s.logs.Done()
		ctx, cancel := context.WithTimeout(ctx, timeout.SearchLogTimeout)
		defer cancel()
		if _, err := s.store.CreateSearchLog(ctx, &store.SearchLog{
			UserID:       req.UserID,
			Query:        req.Query,
			ResultCount:  int32(total),
			SearchTimeMs: int32(elapsed.Milliseconds()),
		}); err != nil {
			observability.Logger(ctx).Warn("failed to write search log",
				slog.String("query", req.Query),
				slog.String("error", err.Error()))
		}
	}()
}

// Close waits for pending search log writes.
func (s *Service) Close() {
	s.logs.Wait()
}

// Enhanced runs Search and asks the LLM to explain the results. A failing
// model leaves the plain results in place.
func (s *Service) Enhanced(ctx context.Context, req Request) (*Response, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.llm == nil || len(resp.Results) == 0 {
		return resp, nil
	}

	hits := make([]ai.SearchHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, ai.SearchHit{Title: r.Title, Description: r.Description})
	}
	start := time.Now()
	result, err := s.llm.Chat(ctx, ai.EnhancementMessages(req.Query, hits))
	s.metrics.RecordLLMCall(err, time.Since(start))
	if err != nil {
		observability.Logger(ctx).Warn("search enhancement failed", slog.String("error", err.Error()))
		return resp, nil
	}

	// resp may be shared with the cache, so the enhancement goes on a copy.
	enhanced := *resp
	enhanced.AIEnhancement = result.Content
	return &enhanced, nil
}

// Suggestions returns up to ten distinct knowledge and flow titles containing q.
func (s *Service) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errors.InvalidArgument("q is required")
	}

	var suggestions []string
	if s.cache.GetSuggestions(ctx, q, &suggestions) {
		return suggestions, nil
	}

	limit := suggestionsPerSource
	items, err := s.store.ListKnowledgeItems(ctx, &store.FindKnowledgeItem{
		TitleContains: &q,
		Pagination:    store.Pagination{Limit: &limit},
	})
	if err != nil {
		return nil, errors.Internal("failed to list knowledge titles", err)
	}
	modules, err := s.store.ListFlowModules(ctx, &store.FindFlowModule{
		TitleContains: &q,
		Pagination:    store.Pagination{Limit: &limit},
	})
	if err != nil {
		return nil, errors.Internal("failed to list flow titles", err)
	}

	seen := make(map[string]struct{}, len(items)+len(modules))
	suggestions = make([]string, 0, len(items)+len(modules))
	add := func(title string) {
		if _, ok := seen[title]; ok || len(suggestions) == maxSuggestions {
			return
		}
		seen[title] = struct{}{}
		suggestions = append(suggestions, title)
	}
	for _, item := range items {
		add(item.Title)
	}
	for _, module := range modules {
		add(module.Title)
	}
	s.cache.SetSuggestions(ctx, q, suggestions)
	return suggestions, nil
}

// Popular returns the most frequent logged queries.
func (s *Service) Popular(ctx context.Context, limit int) ([]*store.PopularQuery, error) {
	if limit == 0 {
		limit = DefaultPopularLimit
	}
	if limit < 1 || limit > MaxPopularLimit {
		return nil, errors.InvalidArgument("limit must be between 1 and 50").WithContext("limit", limit)
	}
	popular, err := s.store.ListPopularQueries(ctx, limit)
	if err != nil {
		return nil, errors.Internal("failed to list popular queries", err)
	}
	return popular, nil
}
