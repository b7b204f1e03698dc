package eligibility

import (
	"context"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
)

// Store is the storage the engine reads history from and writes issued loans to.
type Store interface {
	GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error)
	ListLoans(ctx context.Context, customerID int64) ([]loan.Loan, error)
	ListActiveLoans(ctx context.Context, customerID int64, asOf time.Time) ([]loan.Loan, error)
	CreateLoanWithDebt(ctx context.Context, l *loan.Loan, adj customer.DebtAdjustment) (*loan.Loan, error)
}

type repositoryStore struct {
	customers customer.CustomerRepository
	loans     loan.Repository
}

var _ Store = (*repositoryStore)(nil)

// NewRepositoryStore composes the customer and loan repositories into a Store.
func NewRepositoryStore(customers customer.CustomerRepository, loans loan.Repository) Store {
	return &repositoryStore{customers: customers, loans: loans}
}

func (s *repositoryStore) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	return s.customers.FindByID(ctx, customerID)
}

func (s *repositoryStore) ListLoans(ctx context.Context, customerID int64) ([]loan.Loan, error) {
	return s.loans.ListByCustomer(ctx, customerID)
}

func (s *repositoryStore) ListActiveLoans(ctx context.Context, customerID int64, asOf time.Time) ([]loan.Loan, error) {
	return s.loans.ListActiveByCustomer(ctx, customerID, asOf)
}

func (s *repositoryStore) CreateLoanWithDebt(ctx context.Context, l *loan.Loan, adj customer.DebtAdjustment) (*loan.Loan, error) {
	return s.loans.CreateWithDebt(ctx, l, adj)
}
