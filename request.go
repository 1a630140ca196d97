package furrow

import "github.com/aretw0/furrow/pkg/domain"

// Request is one inbound user message.
type Request struct {
	// ConversationID groups turns. Empty starts a new conversation.
	ConversationID string            `json:"conversation_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	Message        string            `json:"message"`
	UserFacts      map[string]string `json:"user_facts,omitempty"`
	Attachment     *domain.MediaRef  `json:"attachment,omitempty"`
}

// Response is the answer to a Request. Response is never empty when Success is true.
type Response struct {
	ConversationID string              `json:"conversation_id"`
	Response       string              `json:"response"`
	Success        bool                `json:"success"`
	Error          string              `json:"error,omitempty"`
	ErrorKind      domain.ErrorKind    `json:"error_kind,omitempty"`
	Workers        []domain.WorkerName `json:"workers,omitempty"`
}

// WorkerHealth is one line of the health report.
type WorkerHealth struct {
	Name    domain.WorkerName `json:"name"`
	Summary string            `json:"summary,omitempty"`
	Healthy bool              `json:"healthy"`
}

// HealthReport describes the supervisor's readiness.
type HealthReport struct {
	Ready         bool           `json:"ready"`
	RegistrySize  int            `json:"registry_size"`
	HealthyCount  int            `json:"healthy_count"`
	Conversations int            `json:"conversations"`
	OracleEnabled bool           `json:"oracle_enabled"`
	Workers       []WorkerHealth `json:"workers"`
}
