package observability

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
)

// Combine calls every hook set in order. Nil callbacks are skipped.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if fn := h.OnStateChange; fn != nil {
			prev := out.OnStateChange
			out.OnStateChange = func(ctx context.Context, e *domain.StateEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
		if fn := h.OnRoute; fn != nil {
			prev := out.OnRoute
			out.OnRoute = func(ctx context.Context, e *domain.RouteEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
		if fn := h.OnDispatch; fn != nil {
			prev := out.OnDispatch
			out.OnDispatch = func(ctx context.Context, e *domain.DispatchEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
		if fn := h.OnResult; fn != nil {
			prev := out.OnResult
			out.OnResult = func(ctx context.Context, e *domain.DispatchEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
	}
	return out
}
