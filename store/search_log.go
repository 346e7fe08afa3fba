package store

import "context"

type SearchLog struct {
	ID     int32
	UserID int32
	Query  string
	// ResultCount is the number of results returned to the caller.
	ResultCount  int32
	SearchTimeMs int32
	CreatedTs    int64
}

type FindSearchLog struct {
	UserID *int32
	Pagination
}

// PopularQuery is a query string and how often it was searched.
type PopularQuery struct {
	Query string
	Count int64
}

func (s *Store) CreateSearchLog(ctx context.Context, create *SearchLog) (*SearchLog, error) {
	return s.driver.CreateSearchLog(ctx, create)
}

func (s *Store) ListSearchLogs(ctx context.Context, find *FindSearchLog) ([]*SearchLog, error) {
	return s.driver.ListSearchLogs(ctx, find)
}

// ListPopularQueries groups logged searches by query, most frequent first.
func (s *Store) ListPopularQueries(ctx context.Context, limit int) ([]*PopularQuery, error) {
	return s.driver.ListPopularQueries(ctx, limit)
}
