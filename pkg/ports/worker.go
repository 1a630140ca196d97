package ports

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
)

// Worker is the contract every domain worker implements.
// Workers may call arbitrary external services; the supervisor never inspects how.
type Worker interface {
	// ProcessQuery handles one task. A returned error is converted to a
	// WorkerFailure result by the agent adapter.
	ProcessQuery(ctx context.Context, task domain.Task) (domain.DispatchResult, error)

	// Capabilities describes the worker for the registry and the classifiers.
	Capabilities() domain.WorkerDescriptor

	// HealthCheck reports whether the worker can currently take tasks.
	HealthCheck(ctx context.Context) bool
}
