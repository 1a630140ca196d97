package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/adapters/worker"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Answers(t *testing.T) {
	w := worker.NewStatic(domain.WorkerWeather, "Sunny.", worker.WithTags("forecast"))

	res, err := w.ProcessQuery(context.Background(), domain.Task{Query: "rain?"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Sunny.", res.Text)
	assert.Equal(t, domain.WorkerWeather, res.Worker)
	assert.Equal(t, 1, w.Calls())

	desc := w.Capabilities()
	assert.Equal(t, domain.WorkerWeather, desc.Name)
	assert.True(t, desc.HasTag("forecast"))
	assert.True(t, desc.Healthy)
}

func TestStatic_Redirect(t *testing.T) {
	w := worker.NewStatic(domain.WorkerKnowledge, "see market", worker.WithRedirect(domain.WorkerMarket))

	res, err := w.ProcessQuery(context.Background(), domain.Task{})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkerMarket, res.RedirectTo)
}

func TestStatic_Failure(t *testing.T) {
	w := worker.NewStatic(domain.WorkerMarket, "", worker.WithFailure())

	_, err := w.ProcessQuery(context.Background(), domain.Task{})
	assert.ErrorIs(t, err, worker.ErrStaticFailure)
}

func TestStatic_DelayHonoursCancel(t *testing.T) {
	w := worker.NewStatic(domain.WorkerMarket, "late", worker.WithDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.ProcessQuery(ctx, domain.Task{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatic_Health(t *testing.T) {
	w := worker.NewStatic(domain.WorkerImage, "ok")
	assert.True(t, w.HealthCheck(context.Background()))

	w.SetHealthy(false)
	assert.False(t, w.HealthCheck(context.Background()))
	assert.False(t, w.Capabilities().Healthy)
}
