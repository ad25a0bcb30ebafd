package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sequenceIssued  *prometheus.CounterVec
	creditsTotal    prometheus.Counter
	allocatedLines  prometheus.Counter
	partialPayments prometheus.Counter
}

// NewMetrics menginisialisasi registry, metrik HTTP dan metrik domain.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizledger_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_sequence_numbers_issued_total",
		Help: "Nomor urut yang diterbitkan per scope.",
	}, []string{"scope"})
	credits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizledger_payment_credits_total",
		Help: "Jumlah payment credit yang berhasil dialokasikan.",
	})
	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizledger_allocation_lines_total",
		Help: "Jumlah baris alokasi invoice.",
	})
	partials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizledger_partial_payments_total",
		Help: "Jumlah catatan partial payment yang ditulis.",
	})
	registry.MustRegister(requests, duration, issued, credits, lines, partials,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		sequenceIssued:  issued,
		creditsTotal:    credits,
		allocatedLines:  lines,
		partialPayments: partials,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// SequenceIssued mencatat satu nomor yang diterbitkan untuk scope.
func (m *Metrics) SequenceIssued(scope string) {
	if m == nil {
		return
	}
	m.sequenceIssued.WithLabelValues(scope).Inc()
}

// PaymentAllocated mencatat satu payment credit beserta baris alokasinya.
func (m *Metrics) PaymentAllocated(lines, partials int) {
	if m == nil {
		return
	}
	m.creditsTotal.Inc()
	m.allocatedLines.Add(float64(lines))
	m.partialPayments.Add(float64(partials))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
