package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"
)

// CustomerFinder is the part of customer.CustomerService the loan views need.
type CustomerFinder interface {
	GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error)
}

type LoanDetail struct {
	Loan     *Loan
	Customer *customer.Customer
}

type LoanSummary struct {
	Loan
	RepaymentsLeft int
}

type LoanService interface {
	GetLoanDetail(ctx context.Context, loanID int64) (*LoanDetail, error)

	ListCustomerLoans(ctx context.Context, customerID int64) ([]LoanSummary, error)
}

type loanServiceImpl struct {
	repo      Repository
	customers CustomerFinder
	clock     Clock
	logger    *slog.Logger
}

var _ LoanService = (*loanServiceImpl)(nil)

func NewLoanService(r Repository, customers CustomerFinder, clock Clock, logger *slog.Logger) LoanService {
	if clock == nil {
		clock = SystemClock
	}
	return &loanServiceImpl{
		repo:      r,
		customers: customers,
		clock:     clock,
		logger:    logger.With(slog.String("component", "loanService")),
	}
}

func (s *loanServiceImpl) GetLoanDetail(ctx context.Context, loanID int64) (*LoanDetail, error) {
	if loanID <= 0 {
		return nil, fmt.Errorf("%w: loan id must be positive", apperrors.ErrInvalidArgument)
	}
	logger := s.logger.With(slog.Int64("loanID", loanID))

	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Loan not found")
		} else {
			logger.ErrorContext(ctx, "Failed to load loan", slog.Any("error", err))
		}
		return nil, err
	}

	cust, err := s.customers.GetCustomer(ctx, l.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// The foreign key cascades, so an orphaned loan means it was deleted mid-request.
			logger.WarnContext(ctx, "Owning customer disappeared", slog.Int64("customerID", l.CustomerID))
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		return nil, err
	}

	return &LoanDetail{Loan: l, Customer: cust}, nil
}

func (s *loanServiceImpl) ListCustomerLoans(ctx context.Context, customerID int64) ([]LoanSummary, error) {
	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	loans, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list customer loans", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, err
	}

	today := s.clock()
	summaries := make([]LoanSummary, 0, len(loans))
	for _, l := range loans {
		summaries = append(summaries, LoanSummary{Loan: l, RepaymentsLeft: l.RepaymentsLeft(today)})
	}
	s.logger.DebugContext(ctx, "Listed customer loans", slog.Int64("customerID", customerID), slog.Int("count", len(summaries)))
	return summaries, nil
}
