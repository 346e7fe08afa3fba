// Package stats computes the usage figures shown on the admin dashboard.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

const (
	DefaultDays = 7
	MaxDays     = 30
)

// Overview is the system wide summary.
type Overview struct {
	TotalUsers          int64 `json:"total_users"`
	TotalKnowledgeItems int64 `json:"total_knowledge_items"`
	TotalChatSessions   int64 `json:"total_chat_sessions"`
	TotalSearches       int64 `json:"total_searches"`
	// ActiveUsersToday counts users that chatted since midnight UTC.
	ActiveUsersToday int64 `json:"active_users_today"`
}

// Day holds the activity of one UTC calendar day.
type Day struct {
	Date         string `json:"date"`
	NewUsers     int64  `json:"new_users"`
	ChatMessages int64  `json:"chat_messages"`
	Searches     int64  `json:"searches"`
}

// Collector reads statistics from the store and periodically logs a summary.
type Collector struct {
	store *store.Store
	now   func() time.Time

	mu       sync.Mutex
	last     *Overview
	tickStop chan struct{}
}

// NewCollector creates a new statistics collector.
func NewCollector(st *store.Store) *Collector {
	return &Collector{
		store:    st,
		now:      time.Now,
		tickStop: make(chan struct{}),
	}
}

func (c *Collector) count(ctx context.Context, target store.CountTarget, since, until *int64) (int64, error) {
	n, err := c.store.CountRecords(ctx, &store.CountRecords{Target: target, SinceTs: since, UntilTs: until})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", target)
	}
	return n, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Overview computes the current totals.
func (c *Collector) Overview(ctx context.Context) (*Overview, error) {
	o := &Overview{}
	var err error
	if o.TotalUsers, err = c.count(ctx, store.CountUsers, nil, nil); err != nil {
		return nil, err
	}
	if o.TotalKnowledgeItems, err = c.count(ctx, store.CountKnowledgeItems, nil, nil); err != nil {
		return nil, err
	}
	if o.TotalChatSessions, err = c.count(ctx, store.CountChatSessions, nil, nil); err != nil {
		return nil, err
	}
	if o.TotalSearches, err = c.count(ctx, store.CountSearchLogs, nil, nil); err != nil {
		return nil, err
	}
	today := startOfDay(c.now()).Unix()
	if o.ActiveUsersToday, err = c.count(ctx, store.CountChatUsers, &today, nil); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.last = o
	c.mu.Unlock()
	return o, nil
}

// Daily returns one entry per day, today first, for the last days days.
func (c *Collector) Daily(ctx context.Context, days int) ([]*Day, error) {
	if days < 1 || days > MaxDays {
		return nil, errors.Errorf("days must be between 1 and %d", MaxDays)
	}
	today := startOfDay(c.now())
	result := make([]*Day, 0, days)
	for i := 0; i < days; i++ {
		dayStart := today.AddDate(0, 0, -i)
		since, until := dayStart.Unix(), dayStart.AddDate(0, 0, 1).Unix()

		day := &Day{Date: dayStart.Format(time.DateOnly)}
		var err error
		if day.NewUsers, err = c.count(ctx, store.CountUsers, &since, &until); err != nil {
			return nil, err
		}
		if day.ChatMessages, err = c.count(ctx, store.CountChatMessages, &since, &until); err != nil {
			return nil, err
		}
		if day.Searches, err = c.count(ctx, store.CountSearchLogs, &since, &until); err != nil {
			return nil, err
		}
		result = append(result, day)
	}
	return result, nil
}

// Start logs a summary now and every interval until ctx ends or Stop is called.
func (c *Collector) Start(ctx context.Context, interval time.Duration) {
	c.collect(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect(ctx)
			case <-ctx.Done():
				return
			case <-c.tickStop:
				return
			}
		}
	}()
}

// Stop stops the statistics collector.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.tickStop:
		// Already closed
	default:
		close(c.tickStop)
	}
}

// Last returns the most recently computed overview, or nil.
func (c *Collector) Last() *Overview {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	o := *c.last
	return &o
}

func (c *Collector) collect(ctx context.Context) {
	o, err := c.Overview(ctx)
	if err != nil {
		slog.Warn("failed to collect statistics", slog.String("error", err.Error()))
		return
	}
	slog.Info("usage statistics", slog.String("summary", o.Summary()))
}

// Summary returns a one line human readable summary.
func (o *Overview) Summary() string {
	return fmt.Sprintf("users=%d knowledge_items=%d chat_sessions=%d searches=%d active_today=%d",
		o.TotalUsers, o.TotalKnowledgeItems, o.TotalChatSessions, o.TotalSearches, o.ActiveUsersToday)
}
