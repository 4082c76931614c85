package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidApplicant is returned when applicant attributes fall outside the
// ranges the dashboard accepts.
var ErrInvalidApplicant = errors.New("invalid applicant input")

// Accepted input ranges, mirroring the dashboard form controls.
const (
	MinApplicantCIBIL = 300
	MaxApplicantCIBIL = 900
	MinApplicantAge   = 18
	MaxApplicantAge   = 100
	MaxYearsEmployed  = 50
)

// ApplicantInput holds the human-entered attributes of a loan applicant.
// It is built once per request and passed by value.
type ApplicantInput struct {
	CIBILScore    int     `json:"cibil"`
	Age           int     `json:"age"`
	YearsEmployed int     `json:"emp"`
	AnnualIncome  float64 `json:"income"`
	LoanAmount    float64 `json:"loan_amount"`

	// Annuity is the proposed monthly payment (EMI).
	Annuity float64 `json:"annuity"`

	HasPreviousLoans     bool    `json:"has_prev_loans"`
	PreviousLoanCount    int     `json:"prev_loan_count"`
	PreviousOutstanding  float64 `json:"prev_outstanding_amt"`
	PreviousRemainingEMI int     `json:"prev_remaining_emi"`
}

// Normalize zeroes the previous-loan fields when the applicant has no
// existing loans.
func (a ApplicantInput) Normalize() ApplicantInput {
	if !a.HasPreviousLoans {
		a.PreviousLoanCount = 0
		a.PreviousOutstanding = 0
		a.PreviousRemainingEMI = 0
	}
	return a
}

// Validate checks the form ranges. The feature mapper and rule engine do not
// call it; out-of-range values pass through them unchanged.
func (a ApplicantInput) Validate() error {
	switch {
	case a.CIBILScore < MinApplicantCIBIL || a.CIBILScore > MaxApplicantCIBIL:
		return fmt.Errorf("%w: cibil must be between %d and %d", ErrInvalidApplicant, MinApplicantCIBIL, MaxApplicantCIBIL)
	case a.Age < MinApplicantAge || a.Age > MaxApplicantAge:
		return fmt.Errorf("%w: age must be between %d and %d", ErrInvalidApplicant, MinApplicantAge, MaxApplicantAge)
	case a.YearsEmployed < 0 || a.YearsEmployed > MaxYearsEmployed:
		return fmt.Errorf("%w: emp must be between 0 and %d", ErrInvalidApplicant, MaxYearsEmployed)
	case a.AnnualIncome < 0:
		return fmt.Errorf("%w: income must not be negative", ErrInvalidApplicant)
	case a.LoanAmount < 0:
		return fmt.Errorf("%w: loan_amount must not be negative", ErrInvalidApplicant)
	case a.Annuity < 0:
		return fmt.Errorf("%w: annuity must not be negative", ErrInvalidApplicant)
	}

	if a.HasPreviousLoans {
		if a.PreviousLoanCount < 0 || a.PreviousOutstanding < 0 || a.PreviousRemainingEMI < 0 {
			return fmt.Errorf("%w: previous loan fields must not be negative", ErrInvalidApplicant)
		}
	}
	return nil
}

// FeatureVector maps classifier column names to values.
// Columns that were not explicitly set hold 0.
type FeatureVector map[string]float64

// PredictionResult is the prediction service response.
type PredictionResult struct {
	ProbabilityOfDefault float64 `json:"probability_of_default"`
	CreditScore          int     `json:"credit_score"`
}
