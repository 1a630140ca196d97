package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// DefaultWindow is the number of recent turns kept per conversation.
const DefaultWindow = 8

type slot struct {
	mu      sync.Mutex
	conv    *domain.ConversationContext
	loaded  bool
	evicted bool
}

// Store holds the context of every live conversation.
// The map lock is only held to find or create a slot.
type Store struct {
	mu    sync.Mutex
	slots map[string]*slot

	window  int
	persist ports.ContextStore
	logger  *slog.Logger
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithWindow sets the recent-turn window. Values below 1 are ignored.
func WithWindow(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithPersistence writes every mutation through to cs and restores
// conversations from it on first access.
func WithPersistence(cs ports.ContextStore) StoreOption {
	return func(s *Store) {
		s.persist = cs
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		slots:  make(map[string]*slot),
		window: DefaultWindow,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured recent-turn window.
func (s *Store) Window() int {
	return s.window
}

// Len returns the number of conversations held in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *Store) slotFor(id string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[id]
	if !ok {
		sl = &slot{}
		s.slots[id] = sl
	}
	return sl
}

// update runs fn on the conversation under its slot lock, creating (or
// restoring) the conversation first. A slot evicted concurrently is retried.
func (s *Store) update(ctx context.Context, id string, fn func(*domain.ConversationContext) bool) domain.ConversationContext {
	for {
		sl := s.slotFor(id)
		sl.mu.Lock()
		if sl.evicted {
			sl.mu.Unlock()
			continue
		}
		if !sl.loaded {
			sl.conv = s.restore(ctx, id)
			sl.loaded = true
		}
		if fn(sl.conv) && s.persist != nil {
			if err := s.persist.Save(ctx, id, sl.conv); err != nil {
				s.logger.Warn("failed to persist conversation", "conversation_id", id, "err", err)
			}
		}
		out := sl.conv.Clone()
		sl.mu.Unlock()
		return out
	}
}

func (s *Store) restore(ctx context.Context, id string) *domain.ConversationContext {
	if s.persist != nil {
		conv, err := s.persist.Load(ctx, id)
		if err == nil && conv != nil {
			if conv.UserFacts == nil {
				conv.UserFacts = make(map[string]string)
			}
			conv.ConversationID = id
			if s.window > 0 && len(conv.RecentTurns) > s.window {
				conv.RecentTurns = conv.RecentTurns[len(conv.RecentTurns)-s.window:]
			}
			return conv
		}
		if err != nil && !errors.Is(err, domain.ErrConversationNotFound) {
			s.logger.Warn("failed to restore conversation", "conversation_id", id, "err", err)
		}
	}
	conv := domain.NewConversationContext(id)
	conv.LastActivity = s.now()
	return conv
}

// Get returns a copy of the conversation, creating it on first access.
func (s *Store) Get(ctx context.Context, id string) domain.ConversationContext {
	return s.update(ctx, id, func(*domain.ConversationContext) bool { return false })
}

// Lookup returns a copy of an existing conversation without creating one.
func (s *Store) Lookup(ctx context.Context, id string) (domain.ConversationContext, error) {
	s.mu.Lock()
	_, live := s.slots[id]
	s.mu.Unlock()

	if !live {
		if s.persist == nil {
			return domain.ConversationContext{}, domain.ErrConversationNotFound
		}
		if _, err := s.persist.Load(ctx, id); err != nil {
			return domain.ConversationContext{}, err
		}
	}
	return s.Get(ctx, id), nil
}

// Claim binds the conversation to userID on first use. Once a conversation
// has an owner, every other caller is rejected, including one with no userID.
// A conversation started anonymously stays open until someone claims it.
func (s *Store) Claim(ctx context.Context, id, userID string) error {
	var denied bool
	s.update(ctx, id, func(c *domain.ConversationContext) bool {
		switch {
		case c.UserID != "":
			denied = c.UserID != userID
		case userID != "":
			c.UserID = userID
			return true
		}
		return false
	})
	if denied {
		return domain.ErrAccessDenied
	}
	return nil
}

// AppendTurn adds a turn, trimming the recent turns to the window.
func (s *Store) AppendTurn(ctx context.Context, id string, turn domain.Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	s.update(ctx, id, func(c *domain.ConversationContext) bool {
		c.AppendTurn(turn, s.window)
		return true
	})
}

// AttachMedia stores the media reference on the conversation, replacing any previous one.
func (s *Store) AttachMedia(ctx context.Context, id string, ref domain.MediaRef) {
	s.update(ctx, id, func(c *domain.ConversationContext) bool {
		c.Attachment = &ref
		c.LastActivity = s.now()
		return true
	})
}

// SetFacts merges facts into the conversation's user facts.
func (s *Store) SetFacts(ctx context.Context, id string, facts map[string]string) {
	if len(facts) == 0 {
		return
	}
	s.update(ctx, id, func(c *domain.ConversationContext) bool {
		maps.Copy(c.UserFacts, facts)
		return true
	})
}

// Delete drops the conversation from memory and from the persistence backend.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sl, ok := s.slots[id]
	delete(s.slots, id)
	s.mu.Unlock()

	if ok {
		sl.mu.Lock()
		sl.evicted = true
		sl.conv = nil
		sl.mu.Unlock()
	}

	if s.persist != nil {
		if err := s.persist.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrConversationNotFound) {
			return err
		}
	}
	return nil
}

// live returns the current slots. Callers lock each slot without holding the map lock.
func (s *Store) live() map[string]*slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.slots)
}

// dropSlot removes sl from the map unless it was already replaced.
func (s *Store) dropSlot(id string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[id] == sl {
		delete(s.slots, id)
	}
}

// EvictStale drops conversations idle for longer than maxAge, releasing
// their turns and attachments. It returns how many were evicted.
func (s *Store) EvictStale(ctx context.Context, maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	var evicted []string
	for id, sl := range s.live() {
		sl.mu.Lock()
		stale := !sl.evicted && sl.loaded && sl.conv.LastActivity.Before(cutoff)
		if stale {
			sl.evicted = true
			sl.conv = nil
		}
		sl.mu.Unlock()
		if stale {
			s.dropSlot(id, sl)
			evicted = append(evicted, id)
		}
	}

	if s.persist != nil {
		for _, id := range evicted {
			if err := s.persist.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrConversationNotFound) {
				s.logger.Warn("failed to delete evicted conversation", "conversation_id", id, "err", err)
			}
		}
	}
	if len(evicted) > 0 {
		s.logger.Info("evicted stale conversations", "count", len(evicted), "max_age", maxAge)
	}
	return len(evicted)
}

// All returns a copy of every conversation: the live ones first, then those
// only found in the persistence backend. Persisted snapshots are read without
// being brought into memory.
func (s *Store) All(ctx context.Context) ([]domain.ConversationContext, error) {
	seen := make(map[string]bool)
	var out []domain.ConversationContext
	for id, sl := range s.live() {
		sl.mu.Lock()
		if sl.loaded && !sl.evicted {
			out = append(out, sl.conv.Clone())
			seen[id] = true
		}
		sl.mu.Unlock()
	}
	if s.persist == nil {
		return out, nil
	}

	ids, err := s.persist.List(ctx)
	if err != nil {
		return out, fmt.Errorf("list persisted conversations: %w", err)
	}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		conv, err := s.persist.Load(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrConversationNotFound) {
				s.logger.Warn("failed to load persisted conversation", "conversation_id", id, "err", err)
			}
			continue
		}
		conv.ConversationID = id
		out = append(out, conv.Clone())
	}
	return out, nil
}
