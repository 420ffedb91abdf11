package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIngestion(t *testing.T) {
	before := testutil.ToFloat64(fileIngestionsTotal.WithLabelValues(OutcomeRejected))
	ObserveIngestion(OutcomeRejected)
	after := testutil.ToFloat64(fileIngestionsTotal.WithLabelValues(OutcomeRejected))
	if after-before != 1 {
		t.Fatalf("rejected counter delta = %v, want 1", after-before)
	}
}

func TestAddSavedBytesIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(savedBytesTotal)
	AddSavedBytes(0)
	AddSavedBytes(-3)
	AddSavedBytes(10)
	if got := testutil.ToFloat64(savedBytesTotal) - before; got != 10 {
		t.Fatalf("saved bytes delta = %v, want 10", got)
	}
}

func TestObserveDispatch(t *testing.T) {
	before := testutil.ToFloat64(eventsDispatchedTotal.WithLabelValues("message", "false"))
	ObserveDispatch("message", false)
	if got := testutil.ToFloat64(eventsDispatchedTotal.WithLabelValues("message", "false")) - before; got != 1 {
		t.Fatalf("dispatch delta = %v, want 1", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("request counter delta = %v, want 1", got)
	}
}
