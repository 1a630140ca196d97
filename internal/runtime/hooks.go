package runtime

import (
	"context"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
)

func (m *Machine) base(t *turn) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), ConversationID: t.id}
}

func (m *Machine) transition(ctx context.Context, t *turn, to domain.TurnState) {
	from := t.state
	t.state = to
	m.logger.Debug("state transition", "conversation_id", t.id, "from", from, "state", to)
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(ctx, &domain.StateEvent{EventBase: m.base(t), From: from, To: to})
	}
}

func (m *Machine) emitRoute(ctx context.Context, t *turn, sub string, d domain.RoutingDecision) {
	m.logger.Debug("sub-request routed", "conversation_id", t.id,
		"worker", d.Worker(), "confidence", d.Confidence, "source", d.Source)
	if m.hooks.OnRoute != nil {
		m.hooks.OnRoute(ctx, &domain.RouteEvent{EventBase: m.base(t), SubRequest: sub, Decision: d})
	}
}

func (m *Machine) emitDispatch(ctx context.Context, t *turn, worker domain.WorkerName, redirect bool) {
	if m.hooks.OnDispatch != nil {
		m.hooks.OnDispatch(ctx, &domain.DispatchEvent{EventBase: m.base(t), Worker: worker, Redirect: redirect})
	}
}

func (m *Machine) emitResult(ctx context.Context, t *turn, worker domain.WorkerName, redirect bool, res domain.DispatchResult, d time.Duration) {
	if !res.Success {
		m.logger.Info("dispatch failed", "conversation_id", t.id, "worker", worker, "kind", res.ErrorKind, "err", res.Err)
	}
	if m.hooks.OnResult != nil {
		r := res
		m.hooks.OnResult(ctx, &domain.DispatchEvent{
			EventBase: m.base(t),
			Worker:    worker,
			Redirect:  redirect,
			Result:    &r,
			Duration:  d,
		})
	}
}
