package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

func (d *DB) CreateSearchLog(ctx context.Context, create *store.SearchLog) (*store.SearchLog, error) {
	fields := []string{"user_id", "query", "result_count", "search_time_ms"}
	args := []any{create.UserID, create.Query, create.ResultCount, create.SearchTimeMs}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := "INSERT INTO search_log (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id, created_ts"
	log := *create
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&log.ID, &log.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create search log")
	}
	return &log, nil
}

func (d *DB) ListSearchLogs(ctx context.Context, find *store.FindSearchLog) ([]*store.SearchLog, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT id, user_id, query, result_count, search_time_ms, created_ts FROM search_log WHERE " + strings.Join(where, " AND ") + " ORDER BY created_ts DESC, id DESC"
	query = paginate(query, find.Pagination)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.SearchLog, 0)
	for rows.Next() {
		log := &store.SearchLog{}
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Query,
			&log.ResultCount,
			&log.SearchTimeMs,
			&log.CreatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListPopularQueries(ctx context.Context, limit int) ([]*store.PopularQuery, error) {
	query := `
		SELECT query, COUNT(*) AS count
		FROM search_log
		GROUP BY query
		ORDER BY count DESC, query ASC
		LIMIT $1`
	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.PopularQuery, 0)
	for rows.Next() {
		popular := &store.PopularQuery{}
		if err := rows.Scan(&popular.Query, &popular.Count); err != nil {
			return nil, err
		}
		list = append(list, popular)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
