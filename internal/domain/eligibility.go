package domain

import "time"

// Eligibility verdicts shown to the applicant.
const (
	VerdictEligible    = "Eligible for Loan"
	VerdictNotEligible = "Not Eligible for Loan"
)

// Finding pairs a rejection reason with its suggestion.
// Reason is empty for approval suggestions.
type Finding struct {
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion"`
}

// EligibilityReport is the deterministic explanation of a prediction.
type EligibilityReport struct {
	Eligible bool      `json:"eligible"`
	Verdict  string    `json:"verdict"`
	Findings []Finding `json:"findings"`
}

// Reasons returns the non-empty reasons in order.
func (r *EligibilityReport) Reasons() []string {
	reasons := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Reason != "" {
			reasons = append(reasons, f.Reason)
		}
	}
	return reasons
}

// Suggestions returns the suggestions in order.
func (r *EligibilityReport) Suggestions() []string {
	suggestions := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		suggestions = append(suggestions, f.Suggestion)
	}
	return suggestions
}

// Assessment is the complete outcome of one dashboard submission.
// It lives only for the duration of the request.
type Assessment struct {
	ID         string             `json:"id"`
	Input      ApplicantInput     `json:"input"`
	Prediction PredictionResult   `json:"prediction"`
	Report     EligibilityReport  `json:"report"`
	CreatedAt  time.Time          `json:"createdAt"`
	Metadata   AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	DecisionMs     int64  `json:"decisionMs"`
	EngineVersion  string `json:"engineVersion"`
}
