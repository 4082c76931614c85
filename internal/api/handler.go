package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/metrics"
	"github.com/opensource-finance/lendscore/internal/model"
	"github.com/opensource-finance/lendscore/internal/scorecard"
)

// Response messages shared with the dashboard.
const (
	MsgModelNotLoaded = "Model is not loaded properly. Cannot make predictions."
	MsgStatusOK       = "API is online and all assets are loaded."
	MsgStatusFailed   = "API is running, but some assets failed to load."
)

const maxPayloadBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	bundle  *model.Bundle
	loadErr error
	repo    domain.ArtifactRepository
	metrics *metrics.Metrics
	version string
}

// NewHandler creates a new API handler. bundle is nil when loading failed;
// loadErr then explains why.
func NewHandler(bundle *model.Bundle, loadErr error, repo domain.ArtifactRepository, m *metrics.Metrics, version string) *Handler {
	m.SetModelLoaded(bundle != nil)
	return &Handler{
		bundle:  bundle,
		loadErr: loadErr,
		repo:    repo,
		metrics: m,
		version: version,
	}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Failed  []string `json:"failed,omitempty"`
}

// ColumnsResponse is the body of GET /columns.
type ColumnsResponse struct {
	Columns []string `json:"columns"`
}

// Predict handles POST /predict. The body is a JSON object keyed by the
// training columns.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.bundle == nil {
		h.metrics.ObservePrediction(metrics.OutcomeUnavailable, 0)
		writeError(w, http.StatusServiceUnavailable, MsgModelNotLoaded)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		h.metrics.ObservePrediction(metrics.OutcomeInvalid, 0)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Prediction failed: invalid JSON body: %v", err))
		return
	}

	_, span := tracer.Start(r.Context(), "model.predict")
	span.SetAttributes(attribute.Int("payload.keys", len(payload)))
	p, err := h.bundle.Predict(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict failed")
	}
	span.End()

	if err != nil {
		if errors.Is(err, model.ErrInvalidPayload) {
			h.metrics.ObservePrediction(metrics.OutcomeInvalid, 0)
			writeError(w, http.StatusBadRequest, "Prediction failed: "+err.Error())
			return
		}
		h.metrics.ObservePrediction(metrics.OutcomeError, 0)
		slog.Error("prediction failed", "error", err, "trace_id", GetTraceID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Prediction failed: "+err.Error())
		return
	}

	if math.IsNaN(p) || p < 0 || p > 1 {
		h.metrics.ObservePrediction(metrics.OutcomeError, 0)
		slog.Error("model returned probability outside [0,1]", "probability", p)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Prediction failed: probability %v outside [0,1]", p))
		return
	}

	result := domain.PredictionResult{
		ProbabilityOfDefault: p,
		CreditScore:          scorecard.ProbabilityToScore(p),
	}

	h.metrics.ObservePrediction(metrics.OutcomeOK, time.Since(start))
	h.metrics.ObserveScore(result.CreditScore)

	slog.Debug("prediction",
		"probability", result.ProbabilityOfDefault,
		"credit_score", result.CreditScore,
		"trace_id", GetTraceID(r.Context()),
	)

	writeJSON(w, http.StatusOK, result)
}

// Status reports whether every model artifact loaded.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.bundle != nil {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Message: MsgStatusOK})
		return
	}

	resp := StatusResponse{Status: "error", Message: MsgStatusFailed}
	var loadErr *model.LoadError
	if errors.As(h.loadErr, &loadErr) {
		resp.Failed = loadErr.Failed
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

// Columns returns the ordered training columns.
func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	if h.bundle == nil {
		writeError(w, http.StatusServiceUnavailable, MsgModelNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, ColumnsResponse{Columns: h.bundle.Columns()})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.bundle == nil {
		status = "degraded"
	}

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server can serve predictions.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.bundle == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"ready": "false"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ready": "true"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
