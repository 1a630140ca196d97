package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/aggregate"
	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/registry"
)

// Dispatcher runs one task against one worker. agent.Adapter implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task domain.Task) domain.DispatchResult
}

// Conversations is the slice of the context store the machine needs.
type Conversations interface {
	Get(ctx context.Context, id string) domain.ConversationContext
	AppendTurn(ctx context.Context, id string, turn domain.Turn)
}

// TurnInput is one user message to be answered.
// The caller has already recorded the user turn in the conversation.
type TurnInput struct {
	ConversationID string
	Message        string
}

// TurnOutcome is what a turn produced, also on error.
type TurnOutcome struct {
	Answer     string
	Results    []domain.DispatchResult
	Dispatches int
	State      domain.TurnState
}

// Workers lists the workers whose results made it into the answer, in order.
func (o TurnOutcome) Workers() []domain.WorkerName {
	var names []domain.WorkerName
	for _, r := range o.Results {
		if r.Success {
			names = append(names, r.Worker)
		}
	}
	return names
}

// Machine drives a turn through routing, dispatch, evaluation and aggregation.
// It holds no per-turn state and is safe for concurrent use.
type Machine struct {
	registry      *registry.Registry
	workers       map[domain.WorkerName]Dispatcher
	conversations Conversations

	oracle     *classifier.OracleClassifier
	fallback   *classifier.FallbackMatcher
	aggregator *aggregate.Aggregator

	maxCycles      int
	maxSubRequests int
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithOracle enables oracle classification. Without it, routing uses the fallback matcher only.
func WithOracle(c *classifier.OracleClassifier) Option {
	return func(m *Machine) {
		m.oracle = c
	}
}

// WithFallback replaces the default fallback matcher.
func WithFallback(f *classifier.FallbackMatcher) Option {
	return func(m *Machine) {
		if f != nil {
			m.fallback = f
		}
	}
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(m *Machine) {
		if a != nil {
			m.aggregator = a
		}
	}
}

// WithMaxCycles bounds the dispatches per turn. Zero means the registry size.
func WithMaxCycles(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.maxCycles = n
		}
	}
}

// WithMaxSubRequests caps how many sub-requests a compound message yields.
func WithMaxSubRequests(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxSubRequests = n
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine wires a machine. workers maps registered names to their dispatchers
// and must not be modified afterwards.
func NewMachine(reg *registry.Registry, workers map[domain.WorkerName]Dispatcher, conversations Conversations, opts ...Option) *Machine {
	m := &Machine{
		registry:       reg,
		workers:        workers,
		conversations:  conversations,
		fallback:       classifier.NewDefaultMatcher(),
		aggregator:     aggregate.New(),
		maxSubRequests: DefaultMaxSubRequests,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// turn carries the mutable state of one Run.
type turn struct {
	id         string
	state      domain.TurnState
	results    []domain.DispatchResult
	dispatches int
	limit      int
}

// Run answers one user message.
//
// The returned error is a *domain.SupervisorError for NoWorkerAvailable and
// RedirectLoopExceeded, or the context error if the caller went away. The
// outcome is meaningful in every case.
func (m *Machine) Run(ctx context.Context, in TurnInput) (TurnOutcome, error) {
	t := &turn{id: in.ConversationID, state: domain.StateIdle}
	log := m.logger.With("conversation_id", in.ConversationID)

	if len(m.candidates()) == 0 {
		m.transition(ctx, t, domain.StateError)
		log.Warn("no healthy worker, refusing turn")
		return m.outcome(t, ""), &domain.SupervisorError{
			Kind:    domain.ErrorNoWorkerAvailable,
			Message: "All assistants are currently unavailable. Please try again in a few minutes.",
		}
	}

	subs := Decompose(in.Message, m.fallback, m.maxSubRequests)
	t.limit = m.cycleLimit(len(subs))
	if len(subs) > 1 {
		log.Debug("compound request decomposed", "parts", len(subs))
	}

	exceeded := false
	for _, sub := range subs {
		if t.dispatches >= t.limit {
			exceeded = true
			break
		}

		m.transition(ctx, t, domain.StateRouting)
		decision := m.route(ctx, sub)
		m.emitRoute(ctx, t, sub, decision)
		target := decision.Chosen
		if target == nil {
			// The last healthy worker went down mid-turn.
			t.results = append(t.results, domain.Failed("", domain.ErrorNoWorkerAvailable, nil))
			continue
		}

		m.transition(ctx, t, domain.StateDispatching)
		res := m.dispatch(ctx, t, *target, sub, false)
		m.transition(ctx, t, domain.StateEvaluating)
		if ctx.Err() != nil {
			t.results = append(t.results, res)
			return m.abort(ctx, t, in, ctx.Err())
		}

		if next, ok := m.redirectTarget(log, target.Name, res); ok {
			if t.dispatches >= t.limit {
				t.results = append(t.results, res)
				exceeded = true
				break
			}
			m.transition(ctx, t, domain.StateDispatching)
			redirected := m.dispatch(ctx, t, next, sub, true)
			m.transition(ctx, t, domain.StateEvaluating)
			if usable(redirected) || !usable(res) {
				res = redirected
			} else {
				log.Info("redirect target failed, keeping original answer",
					"worker", res.Worker, "redirect_to", next.Name)
			}
			if ctx.Err() != nil {
				t.results = append(t.results, res)
				return m.abort(ctx, t, in, ctx.Err())
			}
		}
		t.results = append(t.results, res)
	}

	m.transition(ctx, t, domain.StateAggregating)
	answer := m.aggregator.Aggregate(t.results, in.Message)
	m.recordAnswer(ctx, t, answer)

	if exceeded {
		m.transition(ctx, t, domain.StateError)
		log.Warn("dispatch bound reached", "limit", t.limit, "dispatches", t.dispatches)
		partial := ""
		if anyUsable(t.results) {
			partial = answer
		}
		return m.outcome(t, answer), &domain.SupervisorError{
			Kind:    domain.ErrorRedirectLoopExceeded,
			Message: "Your request needed more hand-offs than allowed; here is what could be answered.",
			Partial: partial,
		}
	}

	m.transition(ctx, t, domain.StateDone)
	return m.outcome(t, answer), nil
}

func (m *Machine) abort(ctx context.Context, t *turn, in TurnInput, err error) (TurnOutcome, error) {
	m.transition(ctx, t, domain.StateError)
	m.logger.Info("turn cancelled", "conversation_id", in.ConversationID, "dispatches", t.dispatches)
	return m.outcome(t, ""), fmt.Errorf("turn cancelled: %w", err)
}

func (m *Machine) outcome(t *turn, answer string) TurnOutcome {
	return TurnOutcome{
		Answer:     answer,
		Results:    t.results,
		Dispatches: t.dispatches,
		State:      t.state,
	}
}

// cycleLimit is the dispatch bound for a turn: the configured maximum, or the
// registry size, but never fewer than the number of sub-requests.
func (m *Machine) cycleLimit(subRequests int) int {
	limit := m.maxCycles
	if limit == 0 {
		limit = m.registry.Len()
		if subRequests > limit {
			limit = subRequests
		}
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// candidates returns the healthy registered workers that have a dispatcher.
func (m *Machine) candidates() []domain.WorkerDescriptor {
	healthy := m.registry.Healthy()
	out := healthy[:0]
	for _, d := range healthy {
		if _, ok := m.workers[d.Name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// route picks a worker for one sub-request: oracle, then fallback matcher.
// A pick that is not dispatchable is replaced by the catch-all, then by the
// first healthy worker.
func (m *Machine) route(ctx context.Context, sub string) domain.RoutingDecision {
	candidates := m.candidates()
	if len(candidates) == 0 {
		return domain.Uncertain(domain.SourceFallback)
	}

	if m.oracle != nil {
		if d := m.oracle.Classify(ctx, sub, candidates); !d.IsNone() {
			if picked := pick(candidates, d.Worker()); picked != nil {
				return d
			}
		}
	}

	decision := domain.RoutingDecision{Confidence: domain.ConfidencePartial, Source: domain.SourceFallback}
	for _, name := range []domain.WorkerName{m.fallback.Classify(sub), m.fallback.CatchAll()} {
		if picked := pick(candidates, name); picked != nil {
			decision.Chosen = picked
			return decision
		}
	}
	first := candidates[0].Clone()
	decision.Chosen = &first
	return decision
}

func pick(candidates []domain.WorkerDescriptor, name domain.WorkerName) *domain.WorkerDescriptor {
	for i := range candidates {
		if candidates[i].Name == name {
			d := candidates[i].Clone()
			return &d
		}
	}
	return nil
}

// redirectTarget validates a worker's hand-off request.
func (m *Machine) redirectTarget(log *slog.Logger, from domain.WorkerName, res domain.DispatchResult) (domain.WorkerDescriptor, bool) {
	to := res.RedirectTo
	if to == "" {
		return domain.WorkerDescriptor{}, false
	}
	if to == from {
		log.Info("ignoring same-target redirect", "worker", from)
		return domain.WorkerDescriptor{}, false
	}
	if _, ok := m.workers[to]; !ok {
		log.Warn("ignoring redirect to unknown worker", "worker", from, "redirect_to", to)
		return domain.WorkerDescriptor{}, false
	}
	desc, err := m.registry.Get(to)
	if err != nil || !desc.Healthy {
		log.Warn("ignoring redirect to unavailable worker", "worker", from, "redirect_to", to)
		return domain.WorkerDescriptor{}, false
	}
	return desc, true
}

// dispatch runs one sub-request against target, reading the conversation
// before and recording the worker's answer after.
func (m *Machine) dispatch(ctx context.Context, t *turn, target domain.WorkerDescriptor, sub string, redirect bool) domain.DispatchResult {
	conv := m.conversations.Get(ctx, t.id)
	task := BuildTask(target, sub, conv)

	m.emitDispatch(ctx, t, target.Name, redirect)
	t.dispatches++

	start := time.Now()
	res := m.workers[target.Name].Dispatch(ctx, task)
	m.emitResult(ctx, t, target.Name, redirect, res, time.Since(start))

	if usable(res) {
		m.conversations.AppendTurn(ctx, t.id, domain.Turn{
			Speaker:   domain.WorkerSpeaker(target.Name),
			Text:      res.Text,
			Timestamp: time.Now(),
		})
	}
	return res
}

// recordAnswer appends the merged answer as a supervisor turn. A pass-through
// answer is already in the conversation as the worker's own turn.
func (m *Machine) recordAnswer(ctx context.Context, t *turn, answer string) {
	for _, r := range t.results {
		if usable(r) && r.Text == answer {
			return
		}
	}
	m.conversations.AppendTurn(ctx, t.id, domain.Turn{
		Speaker:   domain.SupervisorSpeaker(),
		Text:      answer,
		Timestamp: time.Now(),
	})
}

func usable(r domain.DispatchResult) bool {
	return r.Success && strings.TrimSpace(r.Text) != ""
}

func anyUsable(results []domain.DispatchResult) bool {
	for _, r := range results {
		if usable(r) {
			return true
		}
	}
	return false
}
