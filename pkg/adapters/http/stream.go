package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/domain"
)

// StreamMessage is one server-sent event.
type StreamMessage struct {
	Event string
	Data  []byte
}

// StreamManager fans supervisor events out to SSE subscribers per conversation.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan StreamMessage]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards logs.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan StreamMessage]struct{}),
		logger:      logger,
	}
}

// Subscribe returns a channel of events for the conversation and a func to
// stop listening.
func (sm *StreamManager) Subscribe(conversationID string) (<-chan StreamMessage, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamMessage, 16)
	if _, ok := sm.subscribers[conversationID]; !ok {
		sm.subscribers[conversationID] = make(map[chan StreamMessage]struct{})
	}
	sm.subscribers[conversationID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[conversationID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, conversationID)
				}
			}
		})
	}
}

// Subscribers returns the number of listeners on a conversation.
func (sm *StreamManager) Subscribers(conversationID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[conversationID])
}

// Broadcast sends an event to every subscriber of the conversation. Slow
// subscribers lose messages instead of blocking the turn.
func (sm *StreamManager) Broadcast(conversationID, event string, payload any) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[conversationID]
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("stream: encode failed", "event", event, "err", err)
		return
	}
	for ch := range subs {
		select {
		case ch <- StreamMessage{Event: event, Data: data}:
		default:
			sm.logger.Warn("stream: client buffer full, dropping message", "conversation_id", conversationID)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every supervisor event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			sm.Broadcast(e.ConversationID, "state", e)
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			sm.Broadcast(e.ConversationID, "route", e)
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			sm.Broadcast(e.ConversationID, "dispatch", e)
		},
		OnResult: func(_ context.Context, e *domain.DispatchEvent) {
			sm.Broadcast(e.ConversationID, "result", e)
		},
	}
}
