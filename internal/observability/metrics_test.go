package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRec.Body.String()
	require.True(t, strings.Contains(body, "tavola_http_requests_total"))
}

func TestRecordMoveCountsVoidedUnits(t *testing.T) {
	m := NewMetrics()
	m.RecordMove("voided", 3)
	m.RecordMove("delivered", 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `tavola_fulfillment_moves_total{target="voided"} 1`))
	require.True(t, strings.Contains(body, "tavola_fulfillment_voided_units_total 3"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordMove("voided", 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, m.Middleware(next))
}
