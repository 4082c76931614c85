// Package dashboard serves the applicant-facing web front end. It collects
// applicant details, asks the prediction service for a score, explains the
// decision and offers the PDF report for download.
package dashboard

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/lendscore/internal/api"
	"github.com/opensource-finance/lendscore/internal/assessment"
	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/metrics"
	"github.com/opensource-finance/lendscore/internal/report"
	"github.com/opensource-finance/lendscore/internal/rules"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"percent": func(p float64) string { return fmt.Sprintf("%.2f%%", p*100) },
	"dti":     rules.DebtToIncome,
}).ParseFS(templateFS, "templates/*.html"))

// Predictor scores a feature vector. *client.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, vector domain.FeatureVector) (*domain.PredictionResult, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    domain.DashboardConfig

	predictor Predictor
	processor *assessment.Processor
	renderer  *report.Renderer
	store     domain.Cache
	columns   []string
	metrics   *metrics.Metrics
}

// NewServer wires the dashboard routes. columns is the classifier's column
// list; it is read-only after this call.
func NewServer(cfg domain.DashboardConfig, predictor Predictor, processor *assessment.Processor, store domain.Cache, columns []string, m *metrics.Metrics) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		predictor: predictor,
		processor: processor,
		renderer:  report.NewRenderer(),
		store:     store,
		columns:   columns,
		metrics:   m,
	}

	s.router.Use(api.RecoverMiddleware)
	s.router.Use(api.TracingMiddleware)
	s.router.Use(api.LoggingMiddleware)
	s.router.Use(m.Middleware)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Compress(5))

	s.router.Get("/", s.Index)
	s.router.Post("/assess", s.AssessForm)
	s.router.Post("/api/assess", s.AssessJSON)
	s.router.Get("/reports/{id}", s.DownloadReport)
	s.router.Get("/health", s.Health)
	s.router.Handle("/metrics", m.Handler())

	s.server = api.NewHTTPServer(cfg.Server, s.router)
	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("starting dashboard", "addr", s.server.Addr, "api_url", s.cfg.APIURL)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) reportTTL() time.Duration {
	if s.cfg.ReportTTL <= 0 {
		return 15 * time.Minute
	}
	return s.cfg.ReportTTL
}
