package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// Domain binds the key templates and TTL table to a Manager. Getters report
// whether dest was filled; setters report whether the write landed. Neither
// ever fails the caller.
type Domain struct {
	manager *Manager
	flight  singleflight.Group
}

// NewDomain creates the domain cache over m.
func NewDomain(m *Manager) *Domain {
	return &Domain{manager: m}
}

// Manager returns the underlying manager.
func (d *Domain) Manager() *Manager {
	return d.manager
}

func (d *Domain) GetCategories(ctx context.Context, dest any) bool {
	return d.manager.Get(ctx, KeyKnowledgeCategories.Format(), dest)
}

func (d *Domain) SetCategories(ctx context.Context, v any) bool {
	return d.manager.Set(ctx, KeyKnowledgeCategories.Format(), v, ClassKnowledge.TTL())
}

func (d *Domain) GetItem(ctx context.Context, itemID string, dest any) bool {
	return d.manager.Get(ctx, KeyKnowledgeItem.Format(itemID), dest)
}

func (d *Domain) SetItem(ctx context.Context, itemID string, v any) bool {
	return d.manager.Set(ctx, KeyKnowledgeItem.Format(itemID), v, ClassKnowledge.TTL())
}

func (d *Domain) GetFlowVersion(ctx context.Context, versionID string, dest any) bool {
	return d.manager.Get(ctx, KeyFlowVersion.Format(versionID), dest)
}

func (d *Domain) SetFlowVersion(ctx context.Context, versionID string, v any) bool {
	return d.manager.Set(ctx, KeyFlowVersion.Format(versionID), v, ClassFlow.TTL())
}

func (d *Domain) GetFlowModule(ctx context.Context, moduleID string, dest any) bool {
	return d.manager.Get(ctx, KeyFlowModule.Format(moduleID), dest)
}

func (d *Domain) SetFlowModule(ctx context.Context, moduleID string, v any) bool {
	return d.manager.Set(ctx, KeyFlowModule.Format(moduleID), v, ClassFlow.TTL())
}

func (d *Domain) GetArchitectures(ctx context.Context, dest any) bool {
	return d.manager.Get(ctx, KeyFlowArchitectures.Format(), dest)
}

func (d *Domain) SetArchitectures(ctx context.Context, v any) bool {
	return d.manager.Set(ctx, KeyFlowArchitectures.Format(), v, ClassFlow.TTL())
}

// SearchKey derives the result key from the request parameters.
func SearchKey(params url.Values) string {
	return KeySearchResult.Format(ParamsHash(params))
}

func (d *Domain) GetSearch(ctx context.Context, params url.Values, dest any) bool {
	return d.manager.Get(ctx, SearchKey(params), dest)
}

func (d *Domain) SetSearch(ctx context.Context, params url.Values, v any) bool {
	return d.manager.Set(ctx, SearchKey(params), v, ClassSearch.TTL())
}

func suggestionsKey(query string) string {
	return KeySearchSuggestions.Format(ParamsHash(url.Values{"q": {query}}))
}

func (d *Domain) GetSuggestions(ctx context.Context, query string, dest any) bool {
	return d.manager.Get(ctx, suggestionsKey(query), dest)
}

func (d *Domain) SetSuggestions(ctx context.Context, query string, v any) bool {
	return d.manager.Set(ctx, suggestionsKey(query), v, ClassSearch.TTL())
}

func (d *Domain) GetChatSession(ctx context.Context, sessionID string, dest any) bool {
	return d.manager.Get(ctx, KeyChatSession.Format(sessionID), dest)
}

func (d *Domain) SetChatSession(ctx context.Context, sessionID string, v any) bool {
	return d.manager.Set(ctx, KeyChatSession.Format(sessionID), v, ClassChat.TTL())
}

func (d *Domain) DeleteChatSession(ctx context.Context, sessionID string) bool {
	return d.manager.Delete(ctx, KeyChatSession.Format(sessionID))
}

// Invalidate clears every key of the given classes. It reports false if any
// class could not be cleared; the caller's write has already succeeded and
// stale entries age out by TTL.
func (d *Domain) Invalidate(ctx context.Context, classes ...Class) bool {
	ok := true
	for _, class := range classes {
		if !d.manager.ClearByPrefix(ctx, class.Pattern()) {
			slog.Warn("cache invalidation failed", slog.String("class", string(class)))
			ok = false
		}
	}
	return ok
}

// ClearAll clears every class.
func (d *Domain) ClearAll(ctx context.Context) bool {
	return d.Invalidate(ctx, Classes...)
}

// sharedFetchTimeout bounds a fetch that concurrent callers share.
const sharedFetchTimeout = 30 * time.Second

// ReadThrough returns the cached value under key, or calls fetch, caches its
// result for ttl and returns it. Concurrent misses on one key share a single
// fetch, which is detached from any one caller's cancellation; each caller
// still stops waiting when its own ctx is done. Fetch errors are returned and
// never cached.
func ReadThrough[T any](ctx context.Context, d *Domain, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if d.manager.Get(ctx, key, &cached) {
		return cached, nil
	}

	ch := d.flight.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		value, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		d.manager.Set(fetchCtx, key, value, ttl)
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
