// Package assessment turns a prediction into an eligibility decision.
// It combines the score threshold with the rule engine's explanations.
package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/rules"
	"github.com/opensource-finance/lendscore/internal/scorecard"
)

// EngineVersion is recorded in every assessment's metadata.
const EngineVersion = "lendscore-1.0"

// Explainer produces rejection findings for an applicant.
type Explainer interface {
	Findings(input domain.ApplicantInput) ([]domain.Finding, error)
	RulesCount() int
}

// Processor makes the final eligibility decision.
type Processor struct {
	// Score at or above which an applicant is eligible
	Threshold int

	engine Explainer
}

// NewProcessor creates a processor with the default eligibility threshold.
func NewProcessor(engine Explainer) *Processor {
	return &Processor{
		Threshold: scorecard.EligibilityThreshold,
		engine:    engine,
	}
}

// Process builds the assessment for one applicant. The rule engine only runs
// for ineligible scores; eligible applicants get the maintenance suggestions.
func (p *Processor) Process(ctx context.Context, input domain.ApplicantInput, prediction domain.PredictionResult) (*domain.Assessment, error) {
	start := time.Now()

	a := &domain.Assessment{
		ID:         uuid.New().String(),
		Input:      input,
		Prediction: prediction,
		CreatedAt:  time.Now().UTC(),
	}

	rulesEvaluated := 0
	if prediction.CreditScore >= p.Threshold {
		a.Report = EligibleReport()
	} else {
		findings, err := p.engine.Findings(input)
		if err != nil {
			return nil, err
		}
		rulesEvaluated = p.engine.RulesCount()
		a.Report = domain.EligibilityReport{
			Eligible: false,
			Verdict:  domain.VerdictNotEligible,
			Findings: findings,
		}
	}

	a.Metadata = domain.AssessmentMetadata{
		TraceID:        traceIDFromContext(ctx),
		RulesEvaluated: rulesEvaluated,
		DecisionMs:     time.Since(start).Milliseconds(),
		EngineVersion:  EngineVersion,
	}

	return a, nil
}

// EligibleReport is the report for an applicant at or above the threshold.
func EligibleReport() domain.EligibilityReport {
	suggestions := rules.ApprovalSuggestions()
	findings := make([]domain.Finding, len(suggestions))
	for i, s := range suggestions {
		findings[i] = domain.Finding{Suggestion: s}
	}
	return domain.EligibilityReport{
		Eligible: true,
		Verdict:  domain.VerdictEligible,
		Findings: findings,
	}
}

type traceIDKey struct{}

// WithTraceID attaches a trace ID that Process copies into the metadata.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}
