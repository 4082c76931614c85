package rules

import "github.com/opensource-finance/lendscore/internal/domain"

// Eligibility thresholds used by the built-in rules.
const (
	MinCIBILScore           = 650
	MaxDebtToIncome         = 0.5
	MinYearsEmployed        = 1
	MaxLoanToIncome         = 5
	MaxPreviousLoans        = 3
	MaxPreviousDebtToIncome = 2
)

// Reasons emitted by the built-in rules.
const (
	ReasonLowCIBIL          = "Low CIBIL Score"
	ReasonHighDTI           = "High Debt-to-Income Ratio"
	ReasonShortEmployment   = "Short Employment History"
	ReasonHighLoanToIncome  = "High Loan Amount Relative to Income"
	ReasonManyExistingLoans = "High Number of Existing Loans"
	ReasonHighExistingDebt  = "High Existing Debt Burden"
	ReasonOverallRisk       = "Overall Profile Risk"
)

// Rule is a named CEL predicate with the explanation it produces.
type Rule struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion"`
}

// EligibilityRules returns the built-in rules in evaluation order.
// The order is the order of the reasons in every report.
func EligibilityRules() []Rule {
	return []Rule{
		{
			ID:         "low-cibil",
			Expression: "cibil < min_cibil",
			Reason:     ReasonLowCIBIL,
			Suggestion: "Improve your CIBIL score by paying all existing bills and EMIs on time without any delays.",
		},
		{
			ID:         "high-dti",
			Expression: "dti > max_dti",
			Reason:     ReasonHighDTI,
			Suggestion: "The proposed monthly payment is high for your current income. Consider reducing the loan amount or extending the loan tenure to lower the EMI.",
		},
		{
			ID:         "short-employment",
			Expression: "years_employed < min_years_employed",
			Reason:     ReasonShortEmployment,
			Suggestion: "Lenders prefer applicants with a stable employment history of at least 1-2 years. Building a longer track record at your current job will help.",
		},
		{
			ID:         "high-loan-to-income",
			Expression: "loan_amount > income * max_loan_to_income",
			Reason:     ReasonHighLoanToIncome,
			Suggestion: "The requested loan amount is very high compared to your annual income.",
		},
		{
			ID:         "many-existing-loans",
			Expression: "has_prev_loans && prev_loan_count > max_prev_loans",
			Reason:     ReasonManyExistingLoans,
			Suggestion: "Having multiple active loans can indicate high financial leverage. It's advisable to close some existing loans before applying for new ones.",
		},
		{
			ID:         "high-existing-debt",
			Expression: "has_prev_loans && prev_outstanding > income * max_prev_debt_to_income",
			Reason:     ReasonHighExistingDebt,
			Suggestion: "Your existing outstanding loan amount is high compared to your income. Reducing this debt will significantly improve your eligibility.",
		},
	}
}

// FallbackFinding is reported when no individual rule fires, so a rejected
// applicant always gets at least one explanation.
func FallbackFinding() domain.Finding {
	return domain.Finding{
		Reason:     ReasonOverallRisk,
		Suggestion: "While individual factors may be acceptable, your overall profile combination is assessed as high-risk by the model. Improving your CIBIL score is the most effective way to boost your eligibility.",
	}
}

// ApprovalSuggestions are shown to eligible applicants.
func ApprovalSuggestions() []string {
	return []string{
		"Continue paying all your bills and EMIs on time without fail.",
		"Keep your credit utilization ratio low (ideally below 30%).",
		"Avoid applying for multiple new loans or credit cards in a short period.",
		"Regularly review your full credit report for any errors.",
	}
}
