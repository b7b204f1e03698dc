package loan

import (
	"context"
	"fmt"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"
)

// ErrEMILimitExceeded is returned by CreateWithDebt when loans committed since
// the eligibility check push the customer past adj.MaxMonthlyEMI.
var ErrEMILimitExceeded = fmt.Errorf("%w: total EMI would exceed the allowed share of salary", apperrors.ErrConflict)

type Repository interface {
	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListByCustomer(ctx context.Context, customerID int64) ([]Loan, error)

	// ListActiveByCustomer returns loans whose end date is on or after asOf.
	ListActiveByCustomer(ctx context.Context, customerID int64, asOf time.Time) ([]Loan, error)

	// CreateWithDebt inserts the loan and applies adj to the owning customer in
	// one transaction. It returns customer.ErrNotFound when the customer row is gone
	// and ErrEMILimitExceeded when adj.MaxMonthlyEMI would be breached.
	CreateWithDebt(ctx context.Context, l *Loan, adj customer.DebtAdjustment) (*Loan, error)

	Upsert(ctx context.Context, l *Loan) (bool, error)

	SyncIDSequence(ctx context.Context) error
}
