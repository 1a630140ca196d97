package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) (string, []string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process worker tests use sh")
	}
	return "sh", []string{"-c", script}
}

func task(query string) domain.Task {
	conv := domain.NewConversationContext("conv-1")
	return domain.Task{Instruction: "answer", Query: query, Context: conv.Clone()}
}

func TestWorker_PlainText(t *testing.T) {
	cmd, args := shell(t, `echo "rain expected for $FURROW_QUERY"`)
	w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerWeather}, cmd, args)

	res, err := w.ProcessQuery(context.Background(), task("Mysuru"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.WorkerWeather, res.Worker)
	assert.Equal(t, "rain expected for Mysuru", res.Text)
}

func TestWorker_ReadsTaskFromStdin(t *testing.T) {
	cmd, args := shell(t, `cat`)
	w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerMarket}, cmd, args)

	res, err := w.ProcessQuery(context.Background(), task("wheat price"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Text, `"query":"wheat price"`)
	assert.Contains(t, res.Text, `"conversation_id":"conv-1"`)
}

func TestWorker_Envelope(t *testing.T) {
	t.Run("Success With Redirect", func(t *testing.T) {
		cmd, args := shell(t, `echo '{"success": true, "response": "see market", "redirect_to": "market"}'`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerKnowledge}, cmd, args)

		res, err := w.ProcessQuery(context.Background(), task("q"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "see market", res.Text)
		assert.Equal(t, domain.WorkerMarket, res.RedirectTo)
	})

	t.Run("Reported Failure", func(t *testing.T) {
		cmd, args := shell(t, `echo '{"success": false, "error": "upstream down"}'`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerKnowledge}, cmd, args)

		res, err := w.ProcessQuery(context.Background(), task("q"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, domain.ErrorWorkerFailure, res.ErrorKind)
		assert.Equal(t, "upstream down", res.Err)
	})

	t.Run("JSON Without Envelope Is Text", func(t *testing.T) {
		cmd, args := shell(t, `echo '{"price": 2400}'`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerMarket}, cmd, args)

		res, err := w.ProcessQuery(context.Background(), task("q"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, `{"price": 2400}`, res.Text)
	})
}

func TestWorker_Failures(t *testing.T) {
	t.Run("Non Zero Exit Includes Stderr", func(t *testing.T) {
		cmd, args := shell(t, `echo "model not loaded" >&2; exit 3`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerImage}, cmd, args)

		_, err := w.ProcessQuery(context.Background(), task("q"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("Empty Output", func(t *testing.T) {
		cmd, args := shell(t, `true`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerImage}, cmd, args)

		_, err := w.ProcessQuery(context.Background(), task("q"))
		assert.ErrorIs(t, err, ErrEmptyOutput)
	})

	t.Run("Context Deadline", func(t *testing.T) {
		cmd, args := shell(t, `sleep 5`)
		w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerImage}, cmd, args)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := w.ProcessQuery(ctx, task("q"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestWorker_EnvAndDir(t *testing.T) {
	dir := t.TempDir()
	cmd, args := shell(t, `echo "$CROP_REGION $(pwd)"`)
	w := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerFertilizer}, cmd, args,
		WithEnv(map[string]string{"CROP_REGION": "south"}),
		WithDir(dir),
	)

	res, err := w.ProcessQuery(context.Background(), task("q"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "south")
	assert.Contains(t, res.Text, dir)
}

func TestWorker_HealthCheck(t *testing.T) {
	cmd, args := shell(t, `true`)
	ok := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerWeather}, cmd, args)
	assert.True(t, ok.HealthCheck(context.Background()))

	missing := NewWorker(domain.WorkerDescriptor{Name: domain.WorkerWeather}, "furrow-no-such-binary", nil)
	assert.False(t, missing.HealthCheck(context.Background()))

	assert.Equal(t, domain.WorkerWeather, ok.Capabilities().Name)
}
