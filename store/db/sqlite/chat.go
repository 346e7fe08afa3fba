package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	fields := []string{"`user_id`", "`session_id`", "`role`", "`content`", "`response_time_ms`"}
	args := []any{create.UserID, create.SessionID, create.Role, create.Content, create.ResponseTimeMs}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "`created_ts`"), append(args, create.CreatedTs)
	}

	stmt := "INSERT INTO chat_message (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id, created_ts"
	message := *create
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&message.ID, &message.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create chat message")
	}
	return &message, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "m.user_id = ?"), append(args, *v)
	}
	if v := find.SessionID; v != nil {
		where, args = append(where, "m.session_id = ?"), append(args, *v)
	}

	orderBy := "m.created_ts ASC, m.id ASC"
	if find.Latest {
		orderBy = "m.created_ts DESC, m.id DESC"
	}
	query := `
		SELECT
			m.id,
			m.user_id,
			m.session_id,
			m.role,
			m.content,
			m.response_time_ms,
			m.created_ts,
			COALESCE(u.username, '')
		FROM chat_message m
		LEFT JOIN user u ON u.id = m.user_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy
	query = paginate(query, find.Pagination)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		message := &store.ChatMessage{}
		if err := rows.Scan(
			&message.ID,
			&message.UserID,
			&message.SessionID,
			&message.Role,
			&message.Content,
			&message.ResponseTimeMs,
			&message.CreatedTs,
			&message.Username,
		); err != nil {
			return nil, err
		}
		list = append(list, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteChatMessages(ctx context.Context, delete *store.DeleteChatMessage) (int64, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM chat_message WHERE user_id = ? AND session_id = ?", delete.UserID, delete.SessionID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete chat messages")
	}
	return result.RowsAffected()
}

// ListChatSessions groups the user's messages by session. The last message is
// the newest row of the session, ties broken by id.
func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	query := `
		SELECT
			s.session_id,
			s.message_count,
			s.last_ts,
			COALESCE((
				SELECT l.content FROM chat_message l
				WHERE l.user_id = ? AND l.session_id = s.session_id
				ORDER BY l.created_ts DESC, l.id DESC LIMIT 1
			), ''),
			COALESCE((
				SELECT l.role FROM chat_message l
				WHERE l.user_id = ? AND l.session_id = s.session_id
				ORDER BY l.created_ts DESC, l.id DESC LIMIT 1
			), '')
		FROM (
			SELECT session_id, COUNT(*) AS message_count, MAX(created_ts) AS last_ts
			FROM chat_message
			WHERE user_id = ?
			GROUP BY session_id
		) s
		ORDER BY s.last_ts DESC, s.session_id ASC`
	query = paginate(query, find.Pagination)
	rows, err := d.db.QueryContext(ctx, query, find.UserID, find.UserID, find.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.ChatSession, 0)
	for rows.Next() {
		session := &store.ChatSession{}
		if err := rows.Scan(
			&session.SessionID,
			&session.MessageCount,
			&session.LastMessageTs,
			&session.LastMessage,
			&session.LastMessageRole,
		); err != nil {
			return nil, err
		}
		list = append(list, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
