package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/lendscore/internal/api"
	"github.com/opensource-finance/lendscore/internal/assessment"
	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/features"
	"github.com/opensource-finance/lendscore/internal/report"
)

// ErrPredictionFailed prefixes every prediction service failure shown to
// the applicant.
var ErrPredictionFailed = errors.New("API Call Failed")

const maxFormBytes = 64 << 10

// DefaultInput is the form's initial state.
func DefaultInput() domain.ApplicantInput {
	return domain.ApplicantInput{
		CIBILScore:           650,
		Age:                  30,
		YearsEmployed:        5,
		AnnualIncome:         500000,
		LoanAmount:           1000000,
		Annuity:              25000,
		PreviousLoanCount:    1,
		PreviousOutstanding:  200000,
		PreviousRemainingEMI: 12,
	}
}

// AssessResponse is the JSON form of a completed assessment.
type AssessResponse struct {
	ID         string                   `json:"id"`
	Prediction domain.PredictionResult  `json:"prediction"`
	Report     domain.EligibilityReport `json:"report"`
	ReportURL  string                   `json:"reportUrl,omitempty"`
}

type pageData struct {
	Input      domain.ApplicantInput
	Assessment *domain.Assessment
	ReportURL  string
	Error      string
}

// Index renders the empty form.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, pageData{Input: DefaultInput()})
}

// AssessForm handles the HTML form submission.
func (s *Server) AssessForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	input, err := parseForm(r)
	if err != nil {
		s.renderPage(w, http.StatusBadRequest, pageData{Input: input, Error: err.Error()})
		return
	}

	a, reportURL, err := s.assess(r.Context(), input)
	if err != nil {
		s.renderPage(w, statusFor(err), pageData{Input: input, Error: err.Error()})
		return
	}

	s.renderPage(w, http.StatusOK, pageData{Input: input, Assessment: a, ReportURL: reportURL})
}

// AssessJSON handles POST /api/assess with an ApplicantInput body.
func (s *Server) AssessJSON(w http.ResponseWriter, r *http.Request) {
	var input domain.ApplicantInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	a, reportURL, err := s.assess(r.Context(), input)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AssessResponse{
		ID:         a.ID,
		Prediction: a.Prediction,
		Report:     a.Report,
		ReportURL:  reportURL,
	})
}

// DownloadReport serves a stored PDF report as an attachment.
func (s *Server) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stored, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		slog.Error("failed to read report", "error", err, "assessment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}
	if stored == nil {
		s.metrics.ReportServed("expired")
		writeError(w, http.StatusNotFound, "report not found or expired")
		return
	}

	s.metrics.ReportServed("hit")
	w.Header().Set("Content-Type", stored.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stored.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(stored.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(stored.Data)
}

// Health reports the dashboard and report store state.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"columns": len(s.columns),
	})
}

// assess runs one submission end to end and returns the assessment and the
// download URL of its report. The URL is empty when the report could not be
// stored.
func (s *Server) assess(ctx context.Context, input domain.ApplicantInput) (*domain.Assessment, string, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, "", err
	}

	vec := features.MapToFullPayload(input, s.columns)
	prediction, err := s.predictor.Predict(ctx, vec)
	if err != nil {
		slog.Warn("prediction call failed", "error", err)
		return nil, "", fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}

	ctx = assessment.WithTraceID(ctx, api.GetTraceID(ctx))
	a, err := s.processor.Process(ctx, input, *prediction)
	if err != nil {
		return nil, "", fmt.Errorf("assessment failed: %w", err)
	}
	s.metrics.ObserveAssessment(a.Report.Eligible)

	data, err := s.renderer.Render(report.FromAssessment(a))
	if err != nil {
		return nil, "", err
	}

	stored := &domain.StoredReport{
		FileName:    report.FileName(a.Prediction.CreditScore),
		ContentType: report.ContentType,
		Score:       a.Prediction.CreditScore,
		Data:        data,
	}
	if err := s.store.SetReport(ctx, a.ID, stored, s.reportTTL()); err != nil {
		slog.Warn("failed to store report", "error", err, "assessment_id", a.ID)
		return a, "", nil
	}
	s.metrics.ReportStored()

	slog.Info("assessment completed",
		"assessment_id", a.ID,
		"credit_score", a.Prediction.CreditScore,
		"eligible", a.Report.Eligible,
		"rules_evaluated", a.Metadata.RulesEvaluated,
	)

	return a, "/reports/" + a.ID, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidApplicant):
		return http.StatusBadRequest
	case errors.Is(err, ErrPredictionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseForm reads the form fields. Previous-loan fields are only read when
// the applicant has existing loans. On error the partially parsed input is
// returned so the form can be redisplayed.
func parseForm(r *http.Request) (domain.ApplicantInput, error) {
	input := DefaultInput()
	if err := r.ParseForm(); err != nil {
		return input, fmt.Errorf("%w: %v", domain.ErrInvalidApplicant, err)
	}

	p := formParser{values: r.PostForm}
	input.CIBILScore = p.intField("cibil", input.CIBILScore)
	input.Age = p.intField("age", input.Age)
	input.YearsEmployed = p.intField("emp", input.YearsEmployed)
	input.AnnualIncome = p.floatField("income", input.AnnualIncome)
	input.LoanAmount = p.floatField("loan_amount", input.LoanAmount)
	input.Annuity = p.floatField("annuity", input.Annuity)

	input.HasPreviousLoans = r.PostForm.Get("has_prev_loans") == "yes"
	if input.HasPreviousLoans {
		input.PreviousLoanCount = p.intField("prev_loan_count", input.PreviousLoanCount)
		input.PreviousOutstanding = p.floatField("prev_outstanding_amt", input.PreviousOutstanding)
		input.PreviousRemainingEMI = p.intField("prev_remaining_emi", input.PreviousRemainingEMI)
	}

	return input, p.err
}

// formParser keeps the first conversion error.
type formParser struct {
	values map[string][]string
	err    error
}

func (p *formParser) raw(field string) (string, bool) {
	v, ok := p.values[field]
	if !ok || len(v) == 0 || v[0] == "" {
		return "", false
	}
	return v[0], true
}

func (p *formParser) intField(field string, def int) int {
	s, ok := p.raw(field)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(field)
		return def
	}
	return n
}

func (p *formParser) floatField(field string, def float64) float64 {
	s, ok := p.raw(field)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(field)
		return def
	}
	return f
}

func (p *formParser) fail(field string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s must be a number", domain.ErrInvalidApplicant, field)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("failed to render page", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
