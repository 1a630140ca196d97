package domain

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateName is returned when a worker name is registered twice.
	ErrDuplicateName = errors.New("worker name already registered")
	// ErrWorkerNotFound is returned when a worker name is not in the registry.
	ErrWorkerNotFound = errors.New("worker not found")
	// ErrInvalidDescriptor is returned for descriptors without a name.
	ErrInvalidDescriptor = errors.New("invalid worker descriptor")

	// ErrConversationNotFound is returned when a conversation is not in the store.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrAccessDenied is returned when a user touches someone else's conversation.
	ErrAccessDenied = errors.New("access denied to conversation")

	// ErrNoWorkerAvailable is returned when every registered worker is unhealthy.
	ErrNoWorkerAvailable = errors.New("no worker available")
	// ErrRedirectLoopExceeded is returned when a turn hits the dispatch bound.
	ErrRedirectLoopExceeded = errors.New("redirect loop exceeded")
)

// SupervisorError is the typed error surfaced to callers of the supervisor.
// Partial holds the aggregated answer of the dispatches that did succeed.
type SupervisorError struct {
	Kind    ErrorKind
	Message string
	Partial string
}

func (e *SupervisorError) Error() string {
	return e.Message
}

// Is matches the error against the sentinel for its kind.
func (e *SupervisorError) Is(target error) bool {
	switch target {
	case ErrNoWorkerAvailable:
		return e.Kind == ErrorNoWorkerAvailable
	case ErrRedirectLoopExceeded:
		return e.Kind == ErrorRedirectLoopExceeded
	case ErrAccessDenied:
		return e.Kind == ErrorInvalidRequest &&
			strings.EqualFold(strings.TrimSuffix(e.Message, "."), ErrAccessDenied.Error())
	}
	return false
}
