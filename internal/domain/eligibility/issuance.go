package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

const MsgLoanIssued = "Loan approved successfully"

type IssueStatus int

const (
	IssueCreated IssueStatus = iota
	IssueRejected
	// IssueCustomerNotFound means the customer passed the eligibility check
	// but was gone by the time the loan was written.
	IssueCustomerNotFound
)

func (s IssueStatus) String() string {
	switch s {
	case IssueCreated:
		return "created"
	case IssueRejected:
		return "rejected"
	case IssueCustomerNotFound:
		return "customer_not_found"
	default:
		return "unknown"
	}
}

type IssueResult struct {
	Status             IssueStatus
	LoanID             *int64
	CustomerID         int64
	Approved           bool
	Message            string
	MonthlyInstallment decimal.Decimal
	Loan               *loan.Loan
}

func (e *engine) IssueLoan(ctx context.Context, app Application) (*IssueResult, error) {
	a, err := e.assess(ctx, app)
	if err != nil {
		return nil, err
	}
	monitoring.RecordEligibilityDecision(a.outcome)
	logger := e.logger.With(slog.Int64("customerID", app.CustomerID))

	if !a.verdict.Approved {
		logger.InfoContext(ctx, "Loan not issued", slog.String("reason", a.verdict.Message))
		return &IssueResult{
			Status:     IssueRejected,
			CustomerID: app.CustomerID,
			Message:    a.verdict.Message,
		}, nil
	}

	cust, err := e.store.GetCustomer(ctx, app.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer removed between eligibility check and issuance")
			return customerGone(app.CustomerID), nil
		}
		logger.ErrorContext(ctx, "Failed to re-fetch customer", slog.Any("error", err))
		return nil, fmt.Errorf("%w: re-fetching customer %d: %w", apperrors.ErrInternalServer, app.CustomerID, err)
	}

	newLoan, err := loan.NewLoan(cust.ID, app.LoanAmount, app.Tenure, a.verdict.CorrectedInterestRate, a.verdict.MonthlyInstallment, a.today)
	if err != nil {
		return nil, fmt.Errorf("%w: building loan: %w", apperrors.ErrInternalServer, err)
	}

	adj := customer.DebtAdjustment{
		CustomerID:    cust.ID,
		Delta:         app.LoanAmount,
		MaxMonthlyEMI: money.Percent(cust.MonthlySalary, maxEMISalaryShare),
	}
	created, err := e.store.CreateLoanWithDebt(ctx, newLoan, adj)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer row vanished inside issuance transaction")
			return customerGone(app.CustomerID), nil
		}
		if errors.Is(err, loan.ErrEMILimitExceeded) {
			logger.InfoContext(ctx, "Loan not issued", slog.String("reason", MsgEMIExceedsSalary))
			return &IssueResult{
				Status:     IssueRejected,
				CustomerID: app.CustomerID,
				Message:    MsgEMIExceedsSalary,
			}, nil
		}
		logger.ErrorContext(ctx, "Issuance transaction failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: issuing loan: %w", apperrors.ErrInternalServer, err)
	}

	logger.InfoContext(ctx, "Loan issued",
		slog.Int64("loanID", created.ID),
		slog.String("loan_amount", created.LoanAmount.String()),
		slog.String("interest_rate", created.InterestRate.String()),
		slog.String("monthly_installment", created.MonthlyRepayment.String()),
	)
	monitoring.RecordLoanIssued(created.LoanAmount.InexactFloat64())
	e.publishIssued(ctx, created)

	loanID := created.ID
	return &IssueResult{
		Status:             IssueCreated,
		LoanID:             &loanID,
		CustomerID:         cust.ID,
		Approved:           true,
		Message:            MsgLoanIssued,
		MonthlyInstallment: created.MonthlyRepayment,
		Loan:               created,
	}, nil
}

func customerGone(customerID int64) *IssueResult {
	return &IssueResult{
		Status:     IssueCustomerNotFound,
		CustomerID: customerID,
		Message:    MsgCustomerNotFound,
	}
}

// publishIssued runs after commit; a failed publish leaves the loan in place.
func (e *engine) publishIssued(ctx context.Context, l *loan.Loan) {
	evt := event.LoanIssuedEvent{
		Timestamp:          e.clock(),
		LoanID:             l.ID,
		CustomerID:         l.CustomerID,
		LoanAmount:         l.LoanAmount,
		InterestRate:       l.InterestRate,
		MonthlyInstallment: l.MonthlyRepayment,
		Tenure:             l.Tenure,
		StartDate:          l.StartDate,
		EndDate:            l.EndDate,
	}
	if err := e.pub.PublishLoanIssued(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish loan issued event", slog.Int64("loanID", l.ID), slog.Any("error", err))
	}
}
