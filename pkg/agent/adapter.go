package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

const (
	// DefaultTimeout bounds a single worker call.
	DefaultTimeout = 30 * time.Second
	// DefaultHealthTimeout bounds a single health probe.
	DefaultHealthTimeout = 5 * time.Second
)

// Adapter invokes one worker through the uniform contract.
type Adapter struct {
	name          domain.WorkerName
	worker        ports.Worker
	timeout       time.Duration
	healthTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout overrides the dispatch timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithHealthTimeout overrides the health probe timeout.
func WithHealthTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.healthTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New wraps w. The adapter takes its name from w.Capabilities().
func New(w ports.Worker, opts ...Option) (*Adapter, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil worker", domain.ErrInvalidDescriptor)
	}
	desc, err := safeCapabilities(w)
	if err != nil {
		return nil, err
	}
	if desc.Name == "" {
		return nil, fmt.Errorf("%w: worker has no name", domain.ErrInvalidDescriptor)
	}

	a := &Adapter{
		name:          desc.Name,
		worker:        w,
		timeout:       DefaultTimeout,
		healthTimeout: DefaultHealthTimeout,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func safeCapabilities(w ports.Worker) (desc domain.WorkerDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: capabilities panicked: %v", domain.ErrInvalidDescriptor, r)
		}
	}()
	return w.Capabilities(), nil
}

// Name returns the wrapped worker's name.
func (a *Adapter) Name() domain.WorkerName {
	return a.name
}

// Descriptor returns the wrapped worker's capabilities.
func (a *Adapter) Descriptor() domain.WorkerDescriptor {
	desc, err := safeCapabilities(a.worker)
	if err != nil {
		return domain.WorkerDescriptor{Name: a.name}
	}
	desc.Name = a.name
	return desc.Clone()
}

type outcome struct {
	res domain.DispatchResult
	err error
}

// Dispatch runs the task against the worker. It never panics and never
// blocks past the adapter timeout or the caller's cancellation.
func (a *Adapter) Dispatch(ctx context.Context, task domain.Task) domain.DispatchResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(a.name, domain.ErrorCancelled, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Buffered so an abandoned worker can still deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("worker panicked: %v", r)}
			}
		}()
		res, err := a.worker.ProcessQuery(callCtx, task)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return a.normalize(out)
	case <-callCtx.Done():
		if ctx.Err() != nil {
			a.logger.Info("dispatch cancelled by caller", "worker", a.name)
			return domain.Failed(a.name, domain.ErrorCancelled, ctx.Err())
		}
		a.logger.Warn("worker timed out", "worker", a.name, "timeout", a.timeout)
		return domain.Failed(a.name, domain.ErrorWorkerTimeout,
			fmt.Errorf("no answer within %s", a.timeout))
	}
}

func (a *Adapter) normalize(out outcome) domain.DispatchResult {
	if out.err != nil {
		kind := domain.ErrorWorkerFailure
		if errors.Is(out.err, context.DeadlineExceeded) {
			kind = domain.ErrorWorkerTimeout
		}
		a.logger.Warn("worker failed", "worker", a.name, "err", out.err)
		return domain.Failed(a.name, kind, out.err)
	}

	res := out.res
	res.Worker = a.name
	if !res.Success {
		if res.ErrorKind == domain.ErrorNone || !res.ErrorKind.IsWorkerFailure() {
			res.ErrorKind = domain.ErrorWorkerFailure
		}
		res.Text = ""
		return res
	}
	res.ErrorKind = domain.ErrorNone
	res.Err = ""
	return res
}

// HealthCheck probes the worker. A panic or a slow probe counts as unhealthy.
func (a *Adapter) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.healthTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Warn("health check panicked", "worker", a.name, "panic", r)
				done <- false
			}
		}()
		done <- a.worker.HealthCheck(ctx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}
