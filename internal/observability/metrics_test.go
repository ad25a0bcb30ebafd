package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/bizledger/internal/jobs"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("invoices:balance-integrity").End(nil)

	body := scrape(t, metrics)
	assert.Contains(t, body, `bizledger_jobs_total{job="invoices:balance-integrity",status="success"} 1`)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `bizledger_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `bizledger_http_request_duration_seconds_bucket{route="/test"`)
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.SequenceIssued("invoice:B2B")
	metrics.SequenceIssued("invoice:B2B")
	metrics.PaymentAllocated(3, 2)

	body := scrape(t, metrics)
	assert.Contains(t, body, `bizledger_sequence_numbers_issued_total{scope="invoice:B2B"} 2`)
	assert.Contains(t, body, "bizledger_payment_credits_total 1")
	assert.Contains(t, body, "bizledger_allocation_lines_total 3")
	assert.Contains(t, body, "bizledger_partial_payments_total 2")
	assert.True(t, strings.Contains(body, "go_goroutines"))

	var nilMetrics *Metrics
	nilMetrics.SequenceIssued("voucher")
	nilMetrics.PaymentAllocated(1, 0)
}
