package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ExpenseCreated("equal")
	m.ExpenseCreated("equal")
	m.ExpenseCreated("proportional")
	m.SplitPaid()
	m.SideEffectFailed("audit_payment")
	m.RecurringCreated()
	m.RecurringFailed()

	if got := testutil.ToFloat64(m.expensesCreated.WithLabelValues("equal")); got != 2 {
		t.Errorf("expenses_created{equal} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.splitsPaid); got != 1 {
		t.Errorf("splits_paid = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sideEffectErrors.WithLabelValues("audit_payment")); got != 1 {
		t.Errorf("side_effect_failures{audit_payment} = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ExpenseCreated("equal")
	m.SplitPaid()
	m.SideEffectFailed("event")
	m.RecurringCreated()
	m.RecurringFailed()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := m.Middleware(next); got == nil {
		t.Fatal("Middleware() on nil metrics returned nil")
	}
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/groups/{groupId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/groups/1", "/groups/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/groups/{groupId}", http.MethodGet, "418")); got != 2 {
		t.Errorf("requests for route = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "sharedexpenses_http_requests_total") {
		t.Errorf("exposition does not contain request counter")
	}
}
