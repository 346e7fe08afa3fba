package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/server/auth"
	"github.com/hrygo/ispkb/server/search"
	"github.com/hrygo/ispkb/store"
)

func searchRequest(c echo.Context) (search.Request, error) {
	limit, err := queryInt(c, "limit", search.DefaultLimit)
	if err != nil {
		return search.Request{}, err
	}
	return search.Request{
		Query:  c.QueryParam("q"),
		Type:   c.QueryParam("type"),
		Limit:  limit,
		UserID: auth.GetUserID(c.Request().Context()),
	}, nil
}

// Search ranks knowledge items and flow modules against q.
func (s *APIV1Service) Search(c echo.Context) error {
	req, err := searchRequest(c)
	if err != nil {
		return err
	}
	resp, err := s.SearchService.Search(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// EnhancedSearch adds a model written explanation to the ranked results.
func (s *APIV1Service) EnhancedSearch(c echo.Context) error {
	req, err := searchRequest(c)
	if err != nil {
		return err
	}
	resp, err := s.SearchService.Enhanced(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) SearchSuggestions(c echo.Context) error {
	suggestions, err := s.SearchService.Suggestions(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"suggestions": suggestions})
}

type popularSearch struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

func (s *APIV1Service) PopularSearches(c echo.Context) error {
	limit, err := queryInt(c, "limit", search.DefaultPopularLimit)
	if err != nil {
		return err
	}
	popular, err := s.SearchService.Popular(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]*popularSearch{"popular_searches": convertPopular(popular)})
}

func convertPopular(list []*store.PopularQuery) []*popularSearch {
	result := make([]*popularSearch, 0, len(list))
	for _, p := range list {
		result = append(result, &popularSearch{Query: p.Query, Count: p.Count})
	}
	return result
}
