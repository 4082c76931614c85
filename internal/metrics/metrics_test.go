package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionCounters(t *testing.T) {
	m := New("api")

	m.ObservePrediction(OutcomeOK, 2*time.Millisecond)
	m.ObservePrediction(OutcomeOK, time.Millisecond)
	m.ObservePrediction(OutcomeInvalid, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues(OutcomeInvalid)))

	m.SetModelLoaded(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelLoaded))
	m.SetModelLoaded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelLoaded))
}

func TestAssessmentCounters(t *testing.T) {
	m := New("dashboard")

	m.ObserveAssessment(true)
	m.ObserveAssessment(false)
	m.ObserveAssessment(false)
	m.ReportStored()
	m.ReportServed("hit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.assessments.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.assessments.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsStored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsServed.WithLabelValues("hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePrediction(OutcomeOK, time.Second)
		m.ObserveScore(700)
		m.SetModelLoaded(true)
		m.ObserveAssessment(true)
		m.ReportStored()
		m.ReportServed("expired")
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(h))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("api")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/reports/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "lendscore_api_http_requests_total"))
}
