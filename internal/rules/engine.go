// Package rules provides the CEL-Go based eligibility rule engine.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/lendscore/internal/domain"
)

// Engine explains an ineligible score with an ordered list of findings.
// Rules are compiled once by NewEngine and never change afterwards, so an
// Engine is safe for concurrent use without locking.
type Engine struct {
	env      *cel.Env
	compiled []*CompiledRule
	fallback domain.Finding
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    Rule
	Program cel.Program
}

// NewEngine builds an engine over the built-in eligibility rules.
func NewEngine() (*Engine, error) {
	return NewEngineWithRules(EligibilityRules(), FallbackFinding())
}

// NewEngineWithRules compiles rules in the given order. The fallback finding
// is emitted when no rule fires.
func NewEngineWithRules(rules []Rule, fallback domain.Finding) (*Engine, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		env:      env,
		compiled: make([]*CompiledRule, 0, len(rules)),
		fallback: fallback,
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %s", r.ID)
		}
		seen[r.ID] = true

		compiled, err := e.compileRule(r)
		if err != nil {
			return nil, err
		}
		e.compiled = append(e.compiled, compiled)
	}

	return e, nil
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// Applicant variables
		cel.Variable("cibil", cel.IntType),
		cel.Variable("age", cel.IntType),
		cel.Variable("years_employed", cel.IntType),
		cel.Variable("income", cel.DoubleType),
		cel.Variable("loan_amount", cel.DoubleType),
		cel.Variable("annuity", cel.DoubleType),
		cel.Variable("has_prev_loans", cel.BoolType),
		cel.Variable("prev_loan_count", cel.IntType),
		cel.Variable("prev_outstanding", cel.DoubleType),
		cel.Variable("prev_remaining_emi", cel.IntType),
		// Derived
		cel.Variable("dti", cel.DoubleType),
		// Thresholds
		cel.Constant("min_cibil", cel.IntType, types.Int(MinCIBILScore)),
		cel.Constant("max_dti", cel.DoubleType, types.Double(MaxDebtToIncome)),
		cel.Constant("min_years_employed", cel.IntType, types.Int(MinYearsEmployed)),
		cel.Constant("max_loan_to_income", cel.DoubleType, types.Double(MaxLoanToIncome)),
		cel.Constant("max_prev_loans", cel.IntType, types.Int(MaxPreviousLoans)),
		cel.Constant("max_prev_debt_to_income", cel.DoubleType, types.Double(MaxPreviousDebtToIncome)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Findings evaluates every rule in order and returns the ones that fired,
// or the fallback finding when none did. Rules are independent: a firing
// rule never suppresses a later one.
func (e *Engine) Findings(input domain.ApplicantInput) ([]domain.Finding, error) {
	activation := newActivation(input)

	findings := make([]domain.Finding, 0, len(e.compiled))
	for _, rule := range e.compiled {
		fired, err := e.evaluateRule(rule, activation)
		if err != nil {
			return nil, err
		}
		if fired {
			findings = append(findings, domain.Finding{
				Reason:     rule.Rule.Reason,
				Suggestion: rule.Rule.Suggestion,
			})
		}
	}

	if len(findings) == 0 {
		findings = append(findings, e.fallback)
	}

	return findings, nil
}

// Evaluate returns the rejection reasons and their suggestions.
// reasons[i] corresponds to suggestions[i].
func (e *Engine) Evaluate(input domain.ApplicantInput) (reasons, suggestions []string, err error) {
	findings, err := e.Findings(input)
	if err != nil {
		return nil, nil, err
	}

	reasons = make([]string, len(findings))
	suggestions = make([]string, len(findings))
	for i, f := range findings {
		reasons[i] = f.Reason
		suggestions[i] = f.Suggestion
	}
	return reasons, suggestions, nil
}

func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) (bool, error) {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("rule %s: evaluation error: %w", rule.Rule.ID, err)
	}

	fired, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %s: expected bool result, got %T", rule.Rule.ID, out.Value())
	}
	return fired, nil
}

func newActivation(input domain.ApplicantInput) map[string]any {
	return map[string]any{
		"cibil":              int64(input.CIBILScore),
		"age":                int64(input.Age),
		"years_employed":     int64(input.YearsEmployed),
		"income":             input.AnnualIncome,
		"loan_amount":        input.LoanAmount,
		"annuity":            input.Annuity,
		"has_prev_loans":     input.HasPreviousLoans,
		"prev_loan_count":    int64(input.PreviousLoanCount),
		"prev_outstanding":   input.PreviousOutstanding,
		"prev_remaining_emi": int64(input.PreviousRemainingEMI),
		"dti":                DebtToIncome(input),
	}
}

// DebtToIncome is the annualized proposed payment over annual income.
// Zero income yields 1, which always exceeds MaxDebtToIncome.
func DebtToIncome(input domain.ApplicantInput) float64 {
	if input.AnnualIncome > 0 {
		return input.Annuity * 12 / input.AnnualIncome
	}
	return 1
}

// RulesCount returns the number of compiled rules.
func (e *Engine) RulesCount() int {
	return len(e.compiled)
}

// Rules returns the rule definitions in evaluation order.
func (e *Engine) Rules() []Rule {
	rules := make([]Rule, len(e.compiled))
	for i, c := range e.compiled {
		rules[i] = c.Rule
	}
	return rules
}

// ValidateRule compiles a rule against the engine environment without
// adding it.
func (e *Engine) ValidateRule(r Rule) error {
	_, err := e.compileRule(r)
	return err
}

func (e *Engine) compileRule(r Rule) (*CompiledRule, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}

	ast, issues := e.env.Compile(r.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", r.ID, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", r.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", r.ID, err)
	}

	return &CompiledRule{
		Rule:    r,
		Program: program,
	}, nil
}
