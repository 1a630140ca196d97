package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/furrow"
	furrowhttp "github.com/aretw0/furrow/pkg/adapters/http"
	"github.com/aretw0/furrow/pkg/adapters/worker"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSupervisor(t *testing.T, opts ...furrow.Option) *furrow.Supervisor {
	t.Helper()
	base := []furrow.Option{
		furrow.WithWorker(worker.NewStatic(domain.WorkerWeather, "Sunny, 31°C.")),
		furrow.WithWorker(worker.NewStatic(domain.WorkerKnowledge, "Rotate your crops.")),
	}
	sup, err := furrow.New(append(base, opts...)...)
	require.NoError(t, err)
	return sup
}

func postChat(t *testing.T, h http.Handler, body any) (*httptest.ResponseRecorder, furrow.Response) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(raw)))

	var resp furrow.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestChat(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))

	rec, resp := postChat(t, h, furrow.Request{Message: "Will it rain tomorrow?", UserID: "u1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Sunny, 31°C.", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, []domain.WorkerName{domain.WorkerWeather}, resp.Workers)
}

func TestChat_InvalidBody(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_EmptyMessage(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	rec, resp := postChat(t, h, furrow.Request{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrorInvalidRequest, resp.ErrorKind)
}

func TestChat_AccessDenied(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	_, first := postChat(t, h, furrow.Request{Message: "rain?", UserID: "alice"})

	rec, resp := postChat(t, h, furrow.Request{ConversationID: first.ConversationID, Message: "rain?", UserID: "bob"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)
}

func TestChat_NoWorkerAvailable(t *testing.T) {
	sup := newSupervisor(t)
	require.NoError(t, sup.SetWorkerHealth(domain.WorkerWeather, false))
	require.NoError(t, sup.SetWorkerHealth(domain.WorkerKnowledge, false))
	h := furrowhttp.NewHandler(sup)

	rec, resp := postChat(t, h, furrow.Request{Message: "rain?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.ErrorNoWorkerAvailable, resp.ErrorKind)
}

func TestHealth(t *testing.T) {
	sup := newSupervisor(t)
	h := furrowhttp.NewHandler(sup)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report furrow.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Ready)
	assert.Equal(t, 2, report.RegistrySize)

	require.NoError(t, sup.SetWorkerHealth(domain.WorkerWeather, false))
	require.NoError(t, sup.SetWorkerHealth(domain.WorkerKnowledge, false))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWorkers(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var workers []furrow.WorkerHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 2)
	assert.Equal(t, domain.WorkerWeather, workers[0].Name)
}

func TestConversation_GetAndDelete(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	_, first := postChat(t, h, furrow.Request{Message: "rain?", UserID: "alice"})
	path := "/conversations/" + first.ConversationID

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?user_id=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var conv domain.ConversationContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "alice", conv.UserID)
	assert.NotEmpty(t, conv.RecentTurns)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?user_id=bob", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?user_id=alice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversation_RequiresUser(t *testing.T) {
	sup := newSupervisor(t)
	h := furrowhttp.NewHandler(sup)
	_, first := postChat(t, h, furrow.Request{Message: "rain?", UserID: "alice"})
	path := "/conversations/" + first.ConversationID

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
	}

	rec, resp := postChat(t, h, furrow.Request{ConversationID: first.ConversationID, Message: "rain?"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)

	conv, err := sup.Conversation(context.Background(), first.ConversationID, "alice")
	require.NoError(t, err)
	assert.Len(t, conv.RecentTurns, 2)
}

func TestListConversations(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	for _, id := range []string{"c1", "c2"} {
		rec, _ := postChat(t, h, furrow.Request{ConversationID: id, Message: "rain?", UserID: "alice"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	postChat(t, h, furrow.Request{ConversationID: "c3", Message: "rain?", UserID: "bob"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations?user_id=alice&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page furrow.ConversationPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Conversations, 1)
	assert.Contains(t, []string{"c1", "c2"}, page.Conversations[0].ConversationID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations?user_id=alice&offset=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_RedirectLoopExceeded(t *testing.T) {
	sup, err := furrow.New(
		furrow.WithWorker(worker.NewStatic(domain.WorkerKnowledge, "partial", worker.WithRedirect(domain.WorkerMarket))),
		furrow.WithWorker(worker.NewStatic(domain.WorkerMarket, "Maize: 2,100 per quintal.")),
		furrow.WithMaxCycles(1),
	)
	require.NoError(t, err)
	h := furrowhttp.NewHandler(sup)

	rec, resp := postChat(t, h, furrow.Request{Message: "How do I sell my harvest?"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.ErrorRedirectLoopExceeded, resp.ErrorKind)
}

func TestCORSPreflight(t *testing.T) {
	h := furrowhttp.NewHandler(newSupervisor(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("furrow_turns_total 1"))
	})
	h := furrowhttp.NewHandler(newSupervisor(t), furrowhttp.WithMetrics(metrics))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "furrow_turns_total")
}

func TestSubscribeEvents(t *testing.T) {
	streams := furrowhttp.NewStreamManager(nil)
	sup := newSupervisor(t, furrow.WithLifecycleHooks(streams.Hooks()))
	h := furrowhttp.NewHandler(sup, furrowhttp.WithStreams(streams))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/events?user_id=u1", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()
	require.Eventually(t, func() bool { return streams.Subscribers("conv-1") == 1 }, time.Second, 5*time.Millisecond)

	resp := sup.Handle(context.Background(), furrow.Request{ConversationID: "conv-1", UserID: "u1", Message: "rain?"})
	require.True(t, resp.Success)

	cancel()
	<-done

	out := rec.Body.String()
	assert.Contains(t, out, "event: ping")
	assert.Contains(t, out, "event: route")
	assert.Contains(t, out, "event: result")
	assert.Contains(t, out, `"worker":"weather"`)
}

func TestStreamManager_UnsubscribeIsIdempotent(t *testing.T) {
	sm := furrowhttp.NewStreamManager(nil)
	_, cancel := sm.Subscribe("c")
	assert.Equal(t, 1, sm.Subscribers("c"))
	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("c"))
	sm.Broadcast("c", "state", map[string]string{"to": "done"})
}
