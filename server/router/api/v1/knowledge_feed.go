package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
)

const (
	feedItems       = 20
	feedSummaryRune = 200
)

// KnowledgeFeed renders the most recently updated knowledge items as RSS.
func (s *APIV1Service) KnowledgeFeed(c echo.Context) error {
	limit := feedItems
	items, err := s.Store.ListKnowledgeItems(c.Request().Context(), &store.FindKnowledgeItem{
		ActiveCategoryOnly: true,
		OrderByUpdated:     true,
		Pagination:         store.Pagination{Limit: &limit},
	})
	if err != nil {
		return apierrors.Internal("failed to list knowledge items", err)
	}

	baseURL := c.Scheme() + "://" + c.Request().Host
	feed := &feeds.Feed{
		Title:       "ISP Knowledge Base",
		Link:        &feeds.Link{Href: baseURL},
		Description: "Recently updated ISP knowledge items",
		Created:     time.Now().UTC(),
	}
	for _, item := range items {
		description := item.Description
		if description == "" {
			description = s.MarkdownService.PlainText(item.Content, feedSummaryRune)
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          item.ID,
			Title:       item.Title,
			Link:        &feeds.Link{Href: baseURL + "/api/v1/knowledge/item/" + item.ID},
			Description: description,
			Created:     time.Unix(item.CreatedTs, 0).UTC(),
			Updated:     time.Unix(item.UpdatedTs, 0).UTC(),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return apierrors.Internal("failed to render feed", err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
