package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	weather := domain.WorkerDescriptor{Name: domain.WorkerWeather}
	hooks.OnRoute(ctx, &domain.RouteEvent{Decision: domain.RoutingDecision{
		Chosen: &weather, Confidence: domain.ConfidenceDirect, Source: domain.SourceFallback,
	}})
	res := domain.Succeeded(domain.WorkerWeather, "Sunny.")
	hooks.OnResult(ctx, &domain.DispatchEvent{Worker: domain.WorkerWeather, Result: &res, Duration: 20 * time.Millisecond})
	failed := domain.Failed(domain.WorkerMarket, domain.ErrorWorkerTimeout, nil)
	hooks.OnResult(ctx, &domain.DispatchEvent{Worker: domain.WorkerMarket, Redirect: true, Result: &failed})
	hooks.OnStateChange(ctx, &domain.StateEvent{From: domain.StateAggregating, To: domain.StateDone})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Routes.WithLabelValues("fallback", "direct", "weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("weather", "success", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("market", "worker_timeout", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("aggregating", "done")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Latency))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnStateChange: func(context.Context, *domain.StateEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnStateChange: func(context.Context, *domain.StateEvent) { calls = append(calls, "b") },
		OnRoute:       func(context.Context, *domain.RouteEvent) { calls = append(calls, "route") },
	}

	h := observability.Combine(a, domain.LifecycleHooks{}, b)
	h.OnStateChange(context.Background(), &domain.StateEvent{})
	h.OnRoute(context.Background(), &domain.RouteEvent{})

	assert.Equal(t, []string{"a", "b", "route"}, calls)
	assert.Nil(t, h.OnDispatch)
	assert.Nil(t, h.OnResult)
}
