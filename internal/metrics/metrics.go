// Package metrics provides Prometheus metrics for the prediction service and
// the dashboard. Each process owns a private registry; a nil *Metrics is a
// valid no-op recorder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lendscore"

// Prediction outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds every collector for one process.
type Metrics struct {
	registry *prometheus.Registry

	predictions        *prometheus.CounterVec
	predictionDuration prometheus.Histogram
	creditScores       prometheus.Histogram
	modelLoaded        prometheus.Gauge

	assessments   *prometheus.CounterVec
	reportsStored prometheus.Counter
	reportsServed *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors under lendscore_<subsystem>_*.
func New(subsystem string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "predictions_total",
		Help:      "Prediction requests by outcome",
	}, []string{"outcome"})

	m.predictionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prediction_duration_seconds",
		Help:      "Time spent scoring one payload",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	m.creditScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "credit_score",
		Help:      "Distribution of predicted credit scores",
		Buckets:   prometheus.LinearBuckets(350, 50, 12),
	})

	m.modelLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "model_loaded",
		Help:      "1 when every model artifact loaded",
	})

	m.assessments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assessments_total",
		Help:      "Completed eligibility assessments by verdict",
	}, []string{"eligible"})

	m.reportsStored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reports_stored_total",
		Help:      "Rendered PDF reports stored for download",
	})

	m.reportsServed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "report_downloads_total",
		Help:      "Report download attempts by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePrediction records one /predict outcome.
func (m *Metrics) ObservePrediction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.predictionDuration.Observe(d.Seconds())
	}
}

// ObserveScore records a predicted credit score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.creditScores.Observe(float64(score))
}

// SetModelLoaded sets the model_loaded gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.modelLoaded.Set(1)
	} else {
		m.modelLoaded.Set(0)
	}
}

// ObserveAssessment counts a completed assessment.
func (m *Metrics) ObserveAssessment(eligible bool) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(strconv.FormatBool(eligible)).Inc()
}

// ReportStored counts a report placed in the store.
func (m *Metrics) ReportStored() {
	if m == nil {
		return
	}
	m.reportsStored.Inc()
}

// ReportServed counts a download attempt; result is "hit" or "expired".
func (m *Metrics) ReportServed(result string) {
	if m == nil {
		return
	}
	m.reportsServed.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency labelled by chi route
// pattern, which keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
