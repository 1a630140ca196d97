package domain

import (
	"context"
	"time"
)

// TurnState is a state of the supervisor state machine.
type TurnState string

const (
	StateIdle        TurnState = "idle"
	StateRouting     TurnState = "routing"
	StateDispatching TurnState = "dispatching"
	StateEvaluating  TurnState = "evaluating"
	StateAggregating TurnState = "aggregating"
	StateDone        TurnState = "done"
	StateError       TurnState = "error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
}

// StateEvent is emitted on every state machine transition.
type StateEvent struct {
	EventBase
	From TurnState `json:"from"`
	To   TurnState `json:"to"`
}

// RouteEvent is emitted once a sub-request has a routing decision.
type RouteEvent struct {
	EventBase
	SubRequest string          `json:"sub_request"`
	Decision   RoutingDecision `json:"decision"`
}

// DispatchEvent is emitted before (Result == nil) and after a dispatch.
type DispatchEvent struct {
	EventBase
	Worker   WorkerName      `json:"worker"`
	Redirect bool            `json:"redirect,omitempty"`
	Result   *DispatchResult `json:"result,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for supervisor observability.
type LifecycleHooks struct {
	OnStateChange func(context.Context, *StateEvent)
	OnRoute       func(context.Context, *RouteEvent)
	OnDispatch    func(context.Context, *DispatchEvent)
	OnResult      func(context.Context, *DispatchEvent)
}
