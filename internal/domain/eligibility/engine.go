// Package eligibility decides whether a loan application is approved and
// issues the loan when it is.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/credit"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

const (
	MsgCustomerNotFound  = "Customer not found"
	MsgScoreTooLow       = "Credit score too low for loan approval"
	MsgEMIExceedsSalary  = "Total EMI would exceed 50% of monthly salary"
	MsgApproved          = "Loan approved"
	MsgApprovedCorrected = "Loan approved with corrected interest rate"
	MsgRateTooLow        = "Interest rate too low for credit score"
)

// Outcome labels used for metrics and logs.
const (
	OutcomeApproved          = "approved"
	OutcomeApprovedCorrected = "approved_corrected"
	OutcomeCustomerNotFound  = "customer_not_found"
	OutcomeRejectedScore     = "rejected_score"
	OutcomeRejectedEMI       = "rejected_emi"
	OutcomeRejectedRate      = "rejected_rate"
)

var (
	maxInterestRate   = decimal.NewFromInt(100)
	maxEMISalaryShare = decimal.NewFromInt(50)
)

type Application struct {
	CustomerID   int64
	LoanAmount   decimal.Decimal
	InterestRate decimal.Decimal
	Tenure       int
}

func (a Application) Validate() error {
	if a.CustomerID <= 0 {
		return apperrors.NewValidationError("customer_id", "must be a positive number")
	}
	if !a.LoanAmount.IsPositive() {
		return apperrors.NewValidationError("loan_amount", "must be positive")
	}
	if a.InterestRate.IsNegative() || a.InterestRate.GreaterThan(maxInterestRate) {
		return apperrors.NewValidationError("interest_rate", "must be between 0 and 100")
	}
	if a.Tenure < loan.MinTenureMonths || a.Tenure > loan.MaxTenureMonths {
		return apperrors.NewValidationError("tenure", fmt.Sprintf("must be between %d and %d months", loan.MinTenureMonths, loan.MaxTenureMonths))
	}
	return nil
}

// Verdict is the result of an eligibility check. MonthlyInstallment is zero
// unless Approved.
type Verdict struct {
	Approved              bool
	Message               string
	InterestRate          decimal.Decimal
	CorrectedInterestRate decimal.Decimal
	MonthlyInstallment    decimal.Decimal
}

type Service interface {
	CheckEligibility(ctx context.Context, app Application) (Verdict, error)

	IssueLoan(ctx context.Context, app Application) (*IssueResult, error)

	CreditScore(cust *customer.Customer, loans []loan.Loan) float64
}

type engine struct {
	store  Store
	pub    event.EventPublisher
	clock  loan.Clock
	logger *slog.Logger
}

var _ Service = (*engine)(nil)

func NewService(store Store, pub event.EventPublisher, clock loan.Clock, logger *slog.Logger) Service {
	if store == nil {
		panic("eligibility store cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if clock == nil {
		clock = loan.SystemClock
	}
	return &engine{
		store:  store,
		pub:    pub,
		clock:  clock,
		logger: logger.With(slog.String("component", "eligibilityEngine")),
	}
}

type assessment struct {
	verdict  Verdict
	outcome  string
	customer *customer.Customer
	score    credit.Result

	// today is the clock reading every date in this decision derives from.
	today time.Time
}

func (e *engine) CreditScore(cust *customer.Customer, loans []loan.Loan) float64 {
	if cust == nil {
		return credit.OverextendedScore
	}
	return credit.Calculate(cust.ApprovedLimit, loans, loan.DateOf(e.clock())).Float64()
}

func (e *engine) CheckEligibility(ctx context.Context, app Application) (Verdict, error) {
	a, err := e.assess(ctx, app)
	if err != nil {
		return Verdict{}, err
	}
	monitoring.RecordEligibilityDecision(a.outcome)
	return a.verdict, nil
}

func (e *engine) assess(ctx context.Context, app Application) (*assessment, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	logger := e.logger.With(slog.Int64("customerID", app.CustomerID))

	cust, err := e.store.GetCustomer(ctx, app.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.InfoContext(ctx, "Eligibility requested for unknown customer")
			return &assessment{
				verdict: Verdict{
					Message:               MsgCustomerNotFound,
					InterestRate:          app.InterestRate,
					CorrectedInterestRate: app.InterestRate,
					MonthlyInstallment:    decimal.Zero,
				},
				outcome: OutcomeCustomerNotFound,
			}, nil
		}
		logger.ErrorContext(ctx, "Failed to load customer", slog.Any("error", err))
		return nil, fmt.Errorf("%w: loading customer %d: %w", apperrors.ErrInternalServer, app.CustomerID, err)
	}

	today := loan.DateOf(e.clock())

	history, err := e.store.ListLoans(ctx, cust.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load loan history", slog.Any("error", err))
		return nil, fmt.Errorf("%w: loading loan history: %w", apperrors.ErrInternalServer, err)
	}

	score := credit.Calculate(cust.ApprovedLimit, history, today)
	band := credit.BandFor(score.Float64())
	corrected := credit.CorrectedRate(score.Float64(), app.InterestRate)
	installment := loan.MonthlyInstallment(app.LoanAmount, corrected, app.Tenure)

	a := &assessment{
		customer: cust,
		score:    score,
		today:    today,
		verdict: Verdict{
			InterestRate:          app.InterestRate,
			CorrectedInterestRate: corrected,
			MonthlyInstallment:    decimal.Zero,
		},
	}
	decide := func(approved bool, message, outcome string) *assessment {
		a.verdict.Approved = approved
		a.verdict.Message = message
		if approved {
			a.verdict.MonthlyInstallment = installment
		}
		a.outcome = outcome
		logger.InfoContext(ctx, "Eligibility decided",
			slog.String("outcome", outcome),
			slog.Float64("score", score.Float64()),
			slog.String("score_kind", score.Kind.String()),
			slog.String("band", band.String()),
			slog.String("corrected_rate", corrected.String()),
		)
		return a
	}

	if band == credit.BandIneligible {
		return decide(false, MsgScoreTooLow, OutcomeRejectedScore), nil
	}

	active, err := e.store.ListActiveLoans(ctx, cust.ID, today)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load active loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: loading active loans: %w", apperrors.ErrInternalServer, err)
	}
	committed := loan.TotalRepayment(active).Add(installment)
	if committed.GreaterThan(money.Percent(cust.MonthlySalary, maxEMISalaryShare)) {
		return decide(false, MsgEMIExceedsSalary, OutcomeRejectedEMI), nil
	}

	switch band {
	case credit.BandPrime:
		return decide(true, MsgApproved, OutcomeApproved), nil
	case credit.BandStandard, credit.BandSubprime:
		floor, _ := band.MinimumRate()
		if corrected.LessThan(floor) {
			return decide(false, MsgRateTooLow, OutcomeRejectedRate), nil
		}
		return decide(true, MsgApprovedCorrected, OutcomeApprovedCorrected), nil
	default:
		return decide(false, MsgScoreTooLow, OutcomeRejectedScore), nil
	}
}
