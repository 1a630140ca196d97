package furrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/internal/runtime"
	"github.com/aretw0/furrow/internal/sanitize"
	"github.com/aretw0/furrow/pkg/agent"
	"github.com/aretw0/furrow/pkg/aggregate"
	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/aretw0/furrow/pkg/registry"
	"github.com/aretw0/furrow/pkg/session"
	"github.com/google/uuid"
)

const (
	// DefaultInactivityTimeout is how long an idle conversation is kept.
	DefaultInactivityTimeout = 24 * time.Hour
	// DefaultCleanupInterval is how often idle conversations are evicted.
	DefaultCleanupInterval = time.Hour
	// DefaultHealthInterval is how often workers are probed.
	DefaultHealthInterval = 30 * time.Second

	unexpectedError = "I'm sorry, I encountered an unexpected error. Please try again later."
)

type pendingWorker struct {
	worker ports.Worker
	opts   []agent.Option
}

// Supervisor is the front door: it turns a Request into a Response.
// It is safe for concurrent use.
type Supervisor struct {
	registry *registry.Registry
	adapters []*agent.Adapter
	store    *session.Store
	turns    *session.Manager
	machine  *runtime.Machine

	pending       []pendingWorker
	oracle        ports.Oracle
	oracleOpts    []classifier.OracleOption
	fallback      *classifier.FallbackMatcher
	storeOpts     []session.StoreOption
	managerOpts   []session.Option
	machineOpts   []runtime.Option
	workerTimeout time.Duration
	maxInputSize  int
	apology       string

	inactivity      time.Duration
	cleanupInterval time.Duration
	healthInterval  time.Duration

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	newID  func() string
}

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithWorker registers a worker. Options apply to its adapter only, e.g. a
// per-worker timeout.
func WithWorker(w ports.Worker, opts ...agent.Option) Option {
	return func(s *Supervisor) {
		s.pending = append(s.pending, pendingWorker{worker: w, opts: opts})
	}
}

// WithOracle enables LLM-style classification ahead of the keyword fallback.
func WithOracle(o ports.Oracle, opts ...classifier.OracleOption) Option {
	return func(s *Supervisor) {
		s.oracle = o
		s.oracleOpts = append(s.oracleOpts, opts...)
	}
}

// WithFallback replaces the built-in keyword rules.
func WithFallback(m *classifier.FallbackMatcher) Option {
	return func(s *Supervisor) {
		s.fallback = m
	}
}

// WithPersistence writes conversation snapshots through to cs.
func WithPersistence(cs ports.ContextStore) Option {
	return func(s *Supervisor) {
		s.storeOpts = append(s.storeOpts, session.WithPersistence(cs))
	}
}

// WithLocker serialises turns of one conversation across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Supervisor) {
		s.managerOpts = append(s.managerOpts, session.WithLocker(l))
	}
}

// WithWindow sets how many recent turns are kept per conversation.
func WithWindow(n int) Option {
	return func(s *Supervisor) {
		s.storeOpts = append(s.storeOpts, session.WithWindow(n))
	}
}

// WithMaxCycles bounds the dispatches per turn. Zero means the registry size.
func WithMaxCycles(n int) Option {
	return func(s *Supervisor) {
		s.machineOpts = append(s.machineOpts, runtime.WithMaxCycles(n))
	}
}

// WithWorkerTimeout sets the default timeout of every worker call.
func WithWorkerTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.workerTimeout = d
	}
}

// WithMaxInputSize caps the message size in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Supervisor) {
		s.maxInputSize = n
	}
}

// WithApology overrides the answer given when no worker could help.
func WithApology(text string) Option {
	return func(s *Supervisor) {
		s.apology = text
	}
}

// WithInactivityTimeout sets how long an idle conversation is kept.
func WithInactivityTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.inactivity = d
		}
	}
}

// WithIntervals sets the health refresh and cleanup periods used by Run.
func WithIntervals(health, cleanup time.Duration) Option {
	return func(s *Supervisor) {
		if health > 0 {
			s.healthInterval = health
		}
		if cleanup > 0 {
			s.cleanupInterval = cleanup
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Supervisor) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New builds a Supervisor. Workers start out healthy; call RefreshHealth or
// Run to probe them.
func New(opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		registry:        registry.NewRegistry(),
		workerTimeout:   agent.DefaultTimeout,
		inactivity:      DefaultInactivityTimeout,
		cleanupInterval: DefaultCleanupInterval,
		healthInterval:  DefaultHealthInterval,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.fallback == nil {
		s.fallback = classifier.NewDefaultMatcher()
	}
	if len(s.pending) == 0 {
		return nil, errors.New("at least one worker is required")
	}

	dispatchers := make(map[domain.WorkerName]runtime.Dispatcher, len(s.pending))
	for _, p := range s.pending {
		adapterOpts := append([]agent.Option{
			agent.WithTimeout(s.workerTimeout),
			agent.WithLogger(s.logger),
		}, p.opts...)
		a, err := agent.New(p.worker, adapterOpts...)
		if err != nil {
			return nil, err
		}

		desc := a.Descriptor()
		desc.Healthy = true
		if err := s.registry.Register(desc); err != nil {
			return nil, err
		}
		s.adapters = append(s.adapters, a)
		dispatchers[a.Name()] = a
	}

	if _, ok := dispatchers[s.fallback.CatchAll()]; !ok {
		s.logger.Warn("catch-all worker is not registered, unmatched queries go to the first healthy worker",
			"worker", s.fallback.CatchAll())
	}

	s.store = session.NewStore(append([]session.StoreOption{session.WithStoreLogger(s.logger)}, s.storeOpts...)...)
	s.turns = session.NewManager(append([]session.Option{session.WithLogger(s.logger)}, s.managerOpts...)...)

	machineOpts := []runtime.Option{
		runtime.WithFallback(s.fallback),
		runtime.WithAggregator(aggregate.New(aggregate.WithApology(s.apology))),
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithLogger(s.logger),
	}
	if s.oracle != nil {
		oracleOpts := append([]classifier.OracleOption{classifier.WithOracleLogger(s.logger)}, s.oracleOpts...)
		machineOpts = append(machineOpts, runtime.WithOracle(classifier.NewOracleClassifier(s.oracle, oracleOpts...)))
	}
	machineOpts = append(machineOpts, s.machineOpts...)
	s.machine = runtime.NewMachine(s.registry, dispatchers, s.store, machineOpts...)

	return s, nil
}

// Handle answers one request. It never panics and never returns an empty
// Response; failures are reported through Success, Error and ErrorKind.
func (s *Supervisor) Handle(ctx context.Context, req Request) Response {
	id := req.ConversationID
	if id == "" {
		id = s.newID()
	}
	resp := Response{ConversationID: id}

	msg, err := sanitize.Message(req.Message, s.maxInputSize)
	if err != nil {
		resp.ErrorKind = domain.ErrorInvalidRequest
		resp.Error = invalidMessage(err)
		return resp
	}

	log := s.logger.With("conversation_id", id)
	var outcome runtime.TurnOutcome
	err = s.turns.WithLock(ctx, id, func(ctx context.Context) error {
		if err := s.store.Claim(ctx, id, req.UserID); err != nil {
			return err
		}
		s.store.SetFacts(ctx, id, req.UserFacts)
		if req.Attachment != nil {
			s.store.AttachMedia(ctx, id, *req.Attachment)
		}
		s.store.AppendTurn(ctx, id, domain.Turn{
			Speaker:   domain.UserSpeaker(),
			Text:      msg,
			Timestamp: time.Now(),
		})

		var runErr error
		outcome, runErr = s.machine.Run(ctx, runtime.TurnInput{ConversationID: id, Message: msg})
		return runErr
	})

	resp.Workers = outcome.Workers()
	var serr *domain.SupervisorError
	switch {
	case err == nil:
		resp.Success = true
		resp.Response = outcome.Answer
	case errors.Is(err, domain.ErrAccessDenied):
		log.Warn("conversation access denied", "user_id", req.UserID)
		resp.ErrorKind = domain.ErrorInvalidRequest
		resp.Error = "Access denied to conversation."
	case errors.As(err, &serr):
		resp.ErrorKind = serr.Kind
		resp.Error = serr.Message
		resp.Response = serr.Partial
	case ctx.Err() != nil:
		resp.ErrorKind = domain.ErrorCancelled
		resp.Error = "The request was cancelled."
	default:
		log.Error("turn failed", "err", err)
		resp.Error = unexpectedError
	}
	return resp
}

func invalidMessage(err error) string {
	switch {
	case errors.Is(err, sanitize.ErrEmptyInput):
		return "Please enter a question."
	case errors.Is(err, sanitize.ErrInputTooLarge):
		return "Your message is too long. Please shorten it and try again."
	default:
		return "Your message could not be read. Please try again."
	}
}

// Workers lists the registered workers in registration order.
func (s *Supervisor) Workers() []domain.WorkerDescriptor {
	return s.registry.List()
}

// SetWorkerHealth overrides a worker's health flag until the next refresh.
func (s *Supervisor) SetWorkerHealth(name domain.WorkerName, healthy bool) error {
	if err := s.registry.SetHealthy(name, healthy); err != nil {
		return fmt.Errorf("set health: %w", err)
	}
	return nil
}
