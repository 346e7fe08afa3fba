package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

var countExpressions = map[store.CountTarget]struct {
	table      string
	expression string
}{
	store.CountUsers:          {`"user"`, "COUNT(*)"},
	store.CountKnowledgeItems: {"knowledge_item", "COUNT(*)"},
	store.CountFlowModules:    {"flow_module", "COUNT(*)"},
	store.CountChatMessages:   {"chat_message", "COUNT(*)"},
	store.CountChatSessions:   {"chat_message", "COUNT(DISTINCT session_id)"},
	store.CountChatUsers:      {"chat_message", "COUNT(DISTINCT user_id)"},
	store.CountSearchLogs:     {"search_log", "COUNT(*)"},
}

func (d *DB) CountRecords(ctx context.Context, count *store.CountRecords) (int64, error) {
	target, ok := countExpressions[count.Target]
	if !ok {
		return 0, errors.Errorf("unknown count target %q", count.Target)
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := count.SinceTs; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := count.UntilTs; v != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, *v)
	}

	var total int64
	query := "SELECT " + target.expression + " FROM " + target.table + " WHERE " + strings.Join(where, " AND ")
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", count.Target)
	}
	return total, nil
}
