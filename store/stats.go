package store

import "context"

// CountTarget names what CountRecords counts.
type CountTarget string

const (
	CountUsers          CountTarget = "users"
	CountKnowledgeItems CountTarget = "knowledge_items"
	CountFlowModules    CountTarget = "flow_modules"
	CountChatMessages   CountTarget = "chat_messages"
	// CountChatSessions counts distinct session ids.
	CountChatSessions CountTarget = "chat_sessions"
	// CountChatUsers counts distinct users that sent chat messages.
	CountChatUsers  CountTarget = "chat_users"
	CountSearchLogs CountTarget = "search_logs"
)

// CountRecords filters a count by creation time, [SinceTs, UntilTs).
type CountRecords struct {
	Target  CountTarget
	SinceTs *int64
	UntilTs *int64
}

func (s *Store) CountRecords(ctx context.Context, count *CountRecords) (int64, error) {
	return s.driver.CountRecords(ctx, count)
}
