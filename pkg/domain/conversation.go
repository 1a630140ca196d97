package domain

import (
	"maps"
	"slices"
	"time"
)

// SpeakerKind identifies who produced a turn.
type SpeakerKind string

const (
	SpeakerUser       SpeakerKind = "user"
	SpeakerWorker     SpeakerKind = "worker"
	SpeakerSupervisor SpeakerKind = "supervisor"
)

// Speaker is the author of a turn. Worker is only set for SpeakerWorker.
type Speaker struct {
	Kind   SpeakerKind `json:"kind"`
	Worker WorkerName  `json:"worker,omitempty"`
}

// UserSpeaker, SupervisorSpeaker and WorkerSpeaker build speakers.
func UserSpeaker() Speaker       { return Speaker{Kind: SpeakerUser} }
func SupervisorSpeaker() Speaker { return Speaker{Kind: SpeakerSupervisor} }
func WorkerSpeaker(name WorkerName) Speaker {
	return Speaker{Kind: SpeakerWorker, Worker: name}
}

// Turn is one entry of a conversation. Turns are append-only.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaRef is an opaque handle to media attached to a conversation
// (e.g. an uploaded leaf photo). The supervisor never looks inside it.
type MediaRef struct {
	Handle   string `json:"handle"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ConversationContext is the per-conversation state threaded into every dispatch.
type ConversationContext struct {
	ConversationID string            `json:"conversation_id"`
	UserID         string            `json:"user_id,omitempty"`
	UserFacts      map[string]string `json:"user_facts,omitempty"`
	RecentTurns    []Turn            `json:"recent_turns,omitempty"`
	Attachment     *MediaRef         `json:"attachment,omitempty"`
	LastActivity   time.Time         `json:"last_activity"`
}

// NewConversationContext creates an empty context for the given id.
func NewConversationContext(id string) *ConversationContext {
	return &ConversationContext{
		ConversationID: id,
		UserFacts:      make(map[string]string),
		LastActivity:   time.Now(),
	}
}

// Clone deep-copies the context so callers can't mutate shared state.
func (c *ConversationContext) Clone() ConversationContext {
	next := *c
	next.UserFacts = maps.Clone(c.UserFacts)
	if next.UserFacts == nil {
		next.UserFacts = make(map[string]string)
	}
	next.RecentTurns = slices.Clone(c.RecentTurns)
	if c.Attachment != nil {
		ref := *c.Attachment
		next.Attachment = &ref
	}
	return next
}

// AppendTurn adds a turn and evicts the oldest ones beyond window.
// A window <= 0 disables trimming.
func (c *ConversationContext) AppendTurn(t Turn, window int) {
	c.RecentTurns = append(c.RecentTurns, t)
	if window > 0 && len(c.RecentTurns) > window {
		c.RecentTurns = slices.Clone(c.RecentTurns[len(c.RecentTurns)-window:])
	}
	if t.Timestamp.After(c.LastActivity) {
		c.LastActivity = t.Timestamp
	}
}
