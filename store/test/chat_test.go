package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/store"
)

func TestChatMessageStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewEmptyTestingStore(ctx, t)

	user, err := createTestingUser(ctx, ts, "bob", store.RoleUser)
	require.NoError(t, err)

	base := int64(1_700_000_000)
	messages := []struct {
		session string
		role    store.ChatRole
		content string
		ts      int64
	}{
		{"s1", store.ChatRoleUser, "what is awb", base},
		{"s1", store.ChatRoleAssistant, "white balance", base + 1},
		{"s2", store.ChatRoleUser, "what is blc", base + 10},
		{"s2", store.ChatRoleAssistant, "black level", base + 11},
		{"s2", store.ChatRoleUser, "thanks", base + 12},
	}
	for _, m := range messages {
		_, err := ts.CreateChatMessage(ctx, &store.ChatMessage{
			UserID:    user.ID,
			SessionID: m.session,
			Role:      m.role,
			Content:   m.content,
			CreatedTs: m.ts,
		})
		require.NoError(t, err)
	}

	list, err := ts.ListChatMessages(ctx, &store.FindChatMessage{UserID: &user.ID, SessionID: ptr("s2")})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "what is blc", list[0].Content)
	require.Equal(t, "bob", list[0].Username)

	limit := 2
	latest, err := ts.ListChatMessages(ctx, &store.FindChatMessage{
		UserID:     &user.ID,
		SessionID:  ptr("s2"),
		Latest:     true,
		Pagination: store.Pagination{Limit: &limit},
	})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, "thanks", latest[0].Content)

	sessions, err := ts.ListChatSessions(ctx, &store.FindChatSession{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "s2", sessions[0].SessionID)
	require.Equal(t, int32(3), sessions[0].MessageCount)
	require.Equal(t, "thanks", sessions[0].LastMessage)
	require.Equal(t, store.ChatRoleUser, sessions[0].LastMessageRole)
	require.Equal(t, base+12, sessions[0].LastMessageTs)
	require.Equal(t, "white balance", sessions[1].LastMessage)

	deleted, err := ts.DeleteChatMessages(ctx, &store.DeleteChatMessage{UserID: user.ID, SessionID: "s2"})
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	// Another user's session id does not leak.
	deleted, err = ts.DeleteChatMessages(ctx, &store.DeleteChatMessage{UserID: user.ID + 1, SessionID: "s1"})
	require.NoError(t, err)
	require.Zero(t, deleted)
}
