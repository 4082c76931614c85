// Package scorecard converts a probability of default into a credit score.
package scorecard

import "math"

// Score bounds and the eligibility cutoff.
const (
	MinScore  = 300
	MaxScore  = 900
	ScoreSpan = MaxScore - MinScore

	// EligibilityThreshold is the lowest score that is eligible for a loan.
	EligibilityThreshold = 670
)

// ProbabilityToScore maps p in [0,1] to floor(300 + 600*(1-p)).
// p=0 gives 900 and p=1 gives 300. Inputs outside [0,1] are not clamped.
func ProbabilityToScore(p float64) int {
	// The explicit conversion keeps the product rounded before the add,
	// so the result does not depend on fused multiply-add.
	scaled := float64(ScoreSpan * (1 - p))
	return int(math.Floor(MinScore + scaled))
}

// IsEligible reports whether a score clears the eligibility threshold.
func IsEligible(score int) bool {
	return score >= EligibilityThreshold
}
