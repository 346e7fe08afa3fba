package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/store"
	teststore "github.com/hrygo/ispkb/store/test"
)

func seedActivity(ctx context.Context, t *testing.T, s *store.Store) {
	t.Helper()
	yesterday := time.Now().Add(-24 * time.Hour).Unix()

	for _, name := range []string{"alice", "bob"} {
		_, err := s.CreateUser(ctx, &store.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: store.RoleUser, IsActive: true})
		require.NoError(t, err)
	}
	messages := []*store.ChatMessage{
		{UserID: 1, SessionID: "s1", Role: store.ChatRoleUser, Content: "what is awb"},
		{UserID: 1, SessionID: "s1", Role: store.ChatRoleAssistant, Content: "white balance"},
		{UserID: 2, SessionID: "s2", Role: store.ChatRoleUser, Content: "old question", CreatedTs: yesterday},
	}
	for _, m := range messages {
		_, err := s.CreateChatMessage(ctx, m)
		require.NoError(t, err)
	}
	logs := []*store.SearchLog{
		{UserID: 1, Query: "demosaic"},
		{UserID: 2, Query: "awb", CreatedTs: yesterday},
		{UserID: 0, Query: "awb", CreatedTs: yesterday},
	}
	for _, l := range logs {
		_, err := s.CreateSearchLog(ctx, l)
		require.NoError(t, err)
	}
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	s := teststore.NewTestingStore(ctx, t)
	seedActivity(ctx, t, s)

	c := NewCollector(s)
	assert.Nil(t, c.Last())

	o, err := c.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Overview{
		TotalUsers:          2,
		TotalKnowledgeItems: 7,
		TotalChatSessions:   2,
		TotalSearches:       3,
		ActiveUsersToday:    1,
	}, o)
	assert.Equal(t, o, c.Last())
	assert.Contains(t, o.Summary(), "searches=3")
}

func TestDaily(t *testing.T) {
	ctx := context.Background()
	s := teststore.NewTestingStore(ctx, t)
	seedActivity(ctx, t, s)

	c := NewCollector(s)
	days, err := c.Daily(ctx, DefaultDays)
	require.NoError(t, err)
	require.Len(t, days, DefaultDays)

	today := time.Now().UTC()
	assert.Equal(t, today.Format(time.DateOnly), days[0].Date)
	assert.Equal(t, today.AddDate(0, 0, -1).Format(time.DateOnly), days[1].Date)
	assert.Equal(t, &Day{Date: days[0].Date, NewUsers: 2, ChatMessages: 2, Searches: 1}, days[0])
	assert.Equal(t, &Day{Date: days[1].Date, ChatMessages: 1, Searches: 2}, days[1])
	for _, d := range days[2:] {
		assert.Zero(t, d.NewUsers+d.ChatMessages+d.Searches)
	}

	for _, n := range []int{0, MaxDays + 1} {
		_, err := c.Daily(ctx, n)
		assert.Error(t, err)
	}
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	c := NewCollector(teststore.NewEmptyTestingStore(ctx, t))

	c.Start(ctx, time.Hour)
	require.NotNil(t, c.Last())
	assert.Zero(t, c.Last().TotalUsers)
	c.Stop()
	c.Stop()
}
