package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-pos/tavola/internal/shared"
)

type fakeIdempotency struct {
	insertErr error
	inserted  []string
	deleted   []string
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, key)
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestHandler(store *memoryStore, guard IdempotencyGuard) *Handler {
	svc := NewService(store, testCatalog(), decimal.RequireFromString("0.10"), slog.Default())
	return NewHandler(slog.Default(), svc, guard, nil)
}

func postOrder(t *testing.T, h *Handler, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreate_KeepsIdempotencyKeyOnSuccess(t *testing.T) {
	guard := &fakeIdempotency{}
	h := newTestHandler(newMemoryStore(), guard)

	rec := postOrder(t, h, `{"lines":[{"product_id":1,"quantity":2}]}`, "abc-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"abc-1"}, guard.inserted)
	assert.Empty(t, guard.deleted)
}

func TestCreate_ReleasesIdempotencyKeyOnFailure(t *testing.T) {
	// A failed placement must free the key, otherwise the client's retry
	// is answered with a duplicate conflict for an order that never
	// existed.
	guard := &fakeIdempotency{}
	h := newTestHandler(newMemoryStore(), guard)

	rec := postOrder(t, h, `{"lines":[{"product_id":99,"quantity":1}]}`, "abc-2")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"abc-2"}, guard.deleted)

	// The retry goes through once the failure cause is gone.
	rec = postOrder(t, h, `{"lines":[{"product_id":1,"quantity":1}]}`, "abc-2")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreate_DuplicateKeyConflicts(t *testing.T) {
	guard := &fakeIdempotency{insertErr: shared.ErrIdempotencyConflict}
	h := newTestHandler(newMemoryStore(), guard)

	rec := postOrder(t, h, `{"lines":[{"product_id":1,"quantity":1}]}`, "abc-3")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, guard.deleted)
}

func TestList_DefaultPaginationMatchesQueryLimit(t *testing.T) {
	store := newMemoryStore()
	h := newTestHandler(store, nil)

	rec := postOrder(t, h, `{"lines":[{"product_id":1,"quantity":1}]}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	listRec := httptest.NewRecorder()
	h.List(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var resp struct {
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	// The unpaged default must mirror the repository's listing limit.
	assert.Equal(t, defaultListLimit, resp.Pagination.PerPage)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 1, resp.Pagination.Total)
}
