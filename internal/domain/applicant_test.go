package domain

import (
	"errors"
	"testing"
)

func validApplicant() ApplicantInput {
	return ApplicantInput{
		CIBILScore:    650,
		Age:           30,
		YearsEmployed: 5,
		AnnualIncome:  500000,
		LoanAmount:    1000000,
		Annuity:       25000,
	}
}

func TestNormalize(t *testing.T) {
	in := validApplicant()
	in.PreviousLoanCount = 3
	in.PreviousOutstanding = 100000
	in.PreviousRemainingEMI = 10

	out := in.Normalize()
	if out.PreviousLoanCount != 0 || out.PreviousOutstanding != 0 || out.PreviousRemainingEMI != 0 {
		t.Errorf("expected previous-loan fields zeroed, got %+v", out)
	}
	if in.PreviousLoanCount != 3 {
		t.Error("Normalize modified its receiver")
	}

	in.HasPreviousLoans = true
	out = in.Normalize()
	if out.PreviousLoanCount != 3 || out.PreviousOutstanding != 100000 || out.PreviousRemainingEMI != 10 {
		t.Errorf("expected previous-loan fields kept, got %+v", out)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ApplicantInput)
		wantErr bool
	}{
		{"valid", func(*ApplicantInput) {}, false},
		{"cibil lower bound", func(a *ApplicantInput) { a.CIBILScore = 300 }, false},
		{"cibil upper bound", func(a *ApplicantInput) { a.CIBILScore = 900 }, false},
		{"cibil too low", func(a *ApplicantInput) { a.CIBILScore = 299 }, true},
		{"cibil too high", func(a *ApplicantInput) { a.CIBILScore = 901 }, true},
		{"age too low", func(a *ApplicantInput) { a.Age = 17 }, true},
		{"age too high", func(a *ApplicantInput) { a.Age = 101 }, true},
		{"negative employment", func(a *ApplicantInput) { a.YearsEmployed = -1 }, true},
		{"employment too long", func(a *ApplicantInput) { a.YearsEmployed = 51 }, true},
		{"zero income allowed", func(a *ApplicantInput) { a.AnnualIncome = 0 }, false},
		{"negative income", func(a *ApplicantInput) { a.AnnualIncome = -1 }, true},
		{"negative loan", func(a *ApplicantInput) { a.LoanAmount = -1 }, true},
		{"negative annuity", func(a *ApplicantInput) { a.Annuity = -1 }, true},
		{"negative previous count ignored without loans", func(a *ApplicantInput) { a.PreviousLoanCount = -1 }, false},
		{"negative previous count", func(a *ApplicantInput) {
			a.HasPreviousLoans = true
			a.PreviousLoanCount = -1
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validApplicant()
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidApplicant) {
					t.Errorf("expected ErrInvalidApplicant, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReportAccessors(t *testing.T) {
	r := EligibilityReport{
		Findings: []Finding{
			{Reason: "Low CIBIL Score", Suggestion: "Pay on time."},
			{Suggestion: "Keep balances low."},
			{Reason: "Short Employment History", Suggestion: "Stay employed."},
		},
	}

	reasons := r.Reasons()
	if len(reasons) != 2 || reasons[0] != "Low CIBIL Score" || reasons[1] != "Short Employment History" {
		t.Errorf("unexpected reasons: %v", reasons)
	}

	suggestions := r.Suggestions()
	if len(suggestions) != 3 || suggestions[1] != "Keep balances low." {
		t.Errorf("unexpected suggestions: %v", suggestions)
	}

	empty := EligibilityReport{}
	if len(empty.Reasons()) != 0 || len(empty.Suggestions()) != 0 {
		t.Error("expected empty accessors for empty report")
	}
}
