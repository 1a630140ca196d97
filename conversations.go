package furrow

import (
	"cmp"
	"context"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/aretw0/furrow/pkg/domain"
)

const (
	// DefaultPageSize is the number of conversations listed when no limit is given.
	DefaultPageSize = 10

	previewRunes = 100
)

// ConversationSummary is one entry of a conversation listing.
// MessageCount counts the turns still held in the recent-turn window.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	LastActivity   time.Time `json:"last_activity"`
	MessageCount   int       `json:"message_count"`
	Preview        string    `json:"preview"`
}

// ConversationPage is a page of a user's conversations, newest first.
type ConversationPage struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

// Conversation returns the stored context of a conversation. Once the
// conversation has an owner, userID must match it.
func (s *Supervisor) Conversation(ctx context.Context, id, userID string) (domain.ConversationContext, error) {
	conv, err := s.store.Lookup(ctx, id)
	if err != nil {
		return domain.ConversationContext{}, err
	}
	if conv.UserID != "" && conv.UserID != userID {
		return domain.ConversationContext{}, domain.ErrAccessDenied
	}
	return conv, nil
}

// DeleteConversation drops a conversation after the same ownership check.
func (s *Supervisor) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.Conversation(ctx, id, userID); err != nil {
		return err
	}
	return s.turns.WithLock(ctx, id, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
}

// Conversations lists the conversations owned by userID, live and persisted,
// sorted by last activity. A limit below 1 means DefaultPageSize.
func (s *Supervisor) Conversations(ctx context.Context, userID string, limit, offset int) (ConversationPage, error) {
	if limit < 1 {
		limit = DefaultPageSize
	}
	offset = max(offset, 0)
	page := ConversationPage{Conversations: []ConversationSummary{}, Limit: limit, Offset: offset}
	if userID == "" {
		return page, domain.ErrAccessDenied
	}

	all, err := s.store.All(ctx)
	if err != nil {
		s.logger.Warn("conversation listing is incomplete", "err", err)
	}

	var owned []ConversationSummary
	for _, conv := range all {
		if conv.UserID == userID {
			owned = append(owned, summarize(conv))
		}
	}
	slices.SortFunc(owned, func(a, b ConversationSummary) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return cmp.Compare(a.ConversationID, b.ConversationID)
	})

	page.Total = len(owned)
	if offset < len(owned) {
		page.Conversations = append(page.Conversations, owned[offset:min(offset+limit, len(owned))]...)
	}
	return page, nil
}

func summarize(conv domain.ConversationContext) ConversationSummary {
	sum := ConversationSummary{
		ConversationID: conv.ConversationID,
		LastActivity:   conv.LastActivity,
		MessageCount:   len(conv.RecentTurns),
	}
	if n := len(conv.RecentTurns); n > 0 {
		sum.Preview = truncate(conv.RecentTurns[n-1].Text, previewRunes)
	}
	return sum
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
