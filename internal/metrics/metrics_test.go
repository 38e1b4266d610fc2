package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	t.Parallel()
	m := New()

	m.ObserveOperation("login", "success")
	m.ObserveOperation("login", "success")
	m.ObserveOperation("login", "invalid_credentials")
	m.ObserveTokenVerification("expired")

	require.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("login", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", "invalid_credentials")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("expired")))
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	t.Parallel()
	m := New()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/users/{id}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()
	var m *Metrics

	require.NotPanics(t, func() {
		m.ObserveOperation("register", "success")
		m.ObserveTokenVerification("valid")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	m.Instrument(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
