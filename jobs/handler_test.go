package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	scopes []string
	err    error
}

func (f *fakeEnqueuer) EnqueueTotalsIntegrity(_ context.Context, scope string) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scopes = append(f.scopes, scope)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer Enqueuer) chi.Router {
	h := NewHandler(nil, enqueuer, slog.Default())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestRunTotalsIntegrity(t *testing.T) {
	enq := &fakeEnqueuer{}
	r := newJobsRouter(enq)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/totals-integrity", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"task_id":"task-1","queue":"default"}`, rec.Body.String())
	assert.Equal(t, []string{ScopeOpen}, enq.scopes)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/totals-integrity?scope=today", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{ScopeOpen, ScopeToday}, enq.scopes)
}

func TestRunTotalsIntegrity_RejectsUnknownScope(t *testing.T) {
	enq := &fakeEnqueuer{}
	r := newJobsRouter(enq)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/totals-integrity?scope=everything", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, enq.scopes)
}

func TestRunTotalsIntegrity_QueueUnavailable(t *testing.T) {
	r := newJobsRouter(&fakeEnqueuer{err: errors.New("redis down")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/totals-integrity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	r = newJobsRouter(nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/totals-integrity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobsHealth_NoInspector(t *testing.T) {
	r := newJobsRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
