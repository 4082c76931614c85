// Package features expands the dashboard's applicant fields into the full
// feature vector the classifier was trained on.
package features

import "github.com/opensource-finance/lendscore/internal/domain"

// Column names set by the mapper.
const (
	ColCIBILScore         = "CIBIL_SCORE"
	ColDaysBirth          = "DAYS_BIRTH"
	ColDaysEmployed       = "DAYS_EMPLOYED"
	ColIncomeTotal        = "AMT_INCOME_TOTAL"
	ColCredit             = "AMT_CREDIT"
	ColAnnuity            = "AMT_ANNUITY"
	ColPrevLoanCount      = "PREV_LOAN_COUNT"
	ColPrevAmtOutstanding = "PREV_AMT_OUTSTANDING"
	ColPrevRemainingEMI   = "PREV_REMAINING_EMI"
)

// DaysPerYear converts years to the day offsets the training data uses.
const DaysPerYear = 365

// CIBIL normalization bounds: (score - CIBILFloor) / CIBILRange lands in [0,1].
const (
	CIBILFloor = 300
	CIBILRange = 600
)

// MappedColumns returns the columns MapToFullPayload writes, in mapping order.
func MappedColumns() []string {
	return []string{
		ColCIBILScore,
		ColDaysBirth,
		ColDaysEmployed,
		ColIncomeTotal,
		ColCredit,
		ColAnnuity,
		ColPrevLoanCount,
		ColPrevAmtOutstanding,
		ColPrevRemainingEMI,
	}
}

// MapToFullPayload builds the classifier payload from applicant input.
//
// Every known column starts at 0. Values are not range checked: callers that
// need bounds call input.Validate first.
func MapToFullPayload(input domain.ApplicantInput, knownColumns []string) domain.FeatureVector {
	vec := make(domain.FeatureVector, len(knownColumns))
	for _, col := range knownColumns {
		vec[col] = 0
	}

	vec[ColCIBILScore] = float64(input.CIBILScore-CIBILFloor) / CIBILRange
	vec[ColDaysBirth] = float64(-input.Age * DaysPerYear)
	vec[ColDaysEmployed] = float64(-input.YearsEmployed * DaysPerYear)
	vec[ColIncomeTotal] = input.AnnualIncome
	vec[ColCredit] = input.LoanAmount
	vec[ColAnnuity] = input.Annuity

	if input.HasPreviousLoans {
		vec[ColPrevLoanCount] = float64(input.PreviousLoanCount)
		vec[ColPrevAmtOutstanding] = input.PreviousOutstanding
		vec[ColPrevRemainingEMI] = float64(input.PreviousRemainingEMI)
	}

	return vec
}

// MissingColumns reports which mapped columns a column set lacks. A bundle
// missing any of them would receive keys it does not know about.
func MissingColumns(knownColumns []string) []string {
	known := make(map[string]struct{}, len(knownColumns))
	for _, col := range knownColumns {
		known[col] = struct{}{}
	}

	var missing []string
	for _, col := range MappedColumns() {
		if _, ok := known[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
