// Package metrics exposes Prometheus collectors for the HTTP layer and the
// ledger operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sharedexpenses"

// Metrics holds every collector the service records to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	expensesCreated   *prometheus.CounterVec
	splitsPaid        prometheus.Counter
	sideEffectErrors  *prometheus.CounterVec
	recurringCreated  prometheus.Counter
	recurringFailures prometheus.Counter
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		expensesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Group expenses recorded, by split method.",
		}, []string{"split_method"}),
		splitsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splits_paid_total",
			Help:      "Splits transitioned from unpaid to paid.",
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed, by kind.",
		}, []string{"kind"}),
		recurringCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_expenses_created_total",
			Help:      "Expenses materialised from recurring templates.",
		}),
		recurringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_expenses_failed_total",
			Help:      "Recurring templates that could not be materialised.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.expensesCreated,
		m.splitsPaid,
		m.sideEffectErrors,
		m.recurringCreated,
		m.recurringFailures,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) ExpenseCreated(splitMethod string) {
	if m == nil {
		return
	}
	m.expensesCreated.WithLabelValues(splitMethod).Inc()
}

func (m *Metrics) SplitPaid() {
	if m == nil {
		return
	}
	m.splitsPaid.Inc()
}

// SideEffectFailed counts a swallowed failure of a best-effort step such as
// "audit_payment", "notification", "event" or "income_propagation".
func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecurringCreated() {
	if m == nil {
		return
	}
	m.recurringCreated.Inc()
}

func (m *Metrics) RecurringFailed() {
	if m == nil {
		return
	}
	m.recurringFailures.Inc()
}
