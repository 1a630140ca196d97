package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/furrow/pkg/domain"
)

type entry struct {
	desc    domain.WorkerDescriptor
	healthy atomic.Bool
}

// Registry is the table of available workers.
// Descriptors are fixed once registered; only the health flag changes,
// and it is read without taking the registry lock.
type Registry struct {
	mu      sync.RWMutex
	order   []domain.WorkerName
	entries map[domain.WorkerName]*entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.WorkerName]*entry),
	}
}

// Register adds a worker descriptor to the registry.
// Returns domain.ErrDuplicateName if a worker with the same name exists.
func (r *Registry) Register(desc domain.WorkerDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidDescriptor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, desc.Name)
	}

	e := &entry{desc: desc.Clone()}
	e.healthy.Store(desc.Healthy)
	r.entries[desc.Name] = e
	r.order = append(r.order, desc.Name)
	return nil
}

// Get looks up a worker descriptor by name.
func (r *Registry) Get(name domain.WorkerName) (domain.WorkerDescriptor, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return domain.WorkerDescriptor{}, fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, name)
	}
	return e.snapshot(), nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []domain.WorkerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.WorkerDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].snapshot())
	}
	return out
}

// Healthy returns the descriptors currently marked healthy, in registration order.
func (r *Registry) Healthy() []domain.WorkerDescriptor {
	all := r.List()
	out := all[:0]
	for _, d := range all {
		if d.Healthy {
			out = append(out, d)
		}
	}
	return out
}

// IsHealthy reports whether name is registered and healthy.
func (r *Registry) IsHealthy(name domain.WorkerName) bool {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	return ok && e.healthy.Load()
}

// SetHealthy refreshes the health flag of a registered worker.
func (r *Registry) SetHealthy(name domain.WorkerName, healthy bool) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, name)
	}
	e.healthy.Store(healthy)
	return nil
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (e *entry) snapshot() domain.WorkerDescriptor {
	d := e.desc.Clone()
	d.Healthy = e.healthy.Load()
	return d
}
