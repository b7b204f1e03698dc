package eligibility

import (
	"context"
	"sync"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/event"

	"github.com/stretchr/testify/mock"
)

// memoryStore serializes writes per store the way the row lock does per customer.
type memoryStore struct {
	mu        sync.Mutex
	customers map[int64]*customer.Customer
	loans     []loan.Loan
	nextLoan  int64

	getCustomerCalls int
	// vanishOnCall deletes the customer when GetCustomer is called for the nth time.
	vanishOnCall int
	createErr    error
	listErr      error

	// committedMeanwhile lands inside CreateLoanWithDebt ahead of the new loan,
	// as if another request had committed between assessment and write.
	committedMeanwhile []loan.Loan
}

var _ Store = (*memoryStore)(nil)

func newMemoryStore(customers ...*customer.Customer) *memoryStore {
	s := &memoryStore{customers: map[int64]*customer.Customer{}, nextLoan: 1}
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	return s
}

func (s *memoryStore) addLoans(loans ...loan.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range loans {
		l.ID = s.nextLoan
		s.nextLoan++
		s.loans = append(s.loans, l)
	}
}

func (s *memoryStore) GetCustomer(_ context.Context, id int64) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCustomerCalls++
	if s.vanishOnCall > 0 && s.getCustomerCalls == s.vanishOnCall {
		delete(s.customers, id)
	}
	c, ok := s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) ListLoans(_ context.Context, customerID int64) ([]loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []loan.Loan
	for _, l := range s.loans {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memoryStore) ListActiveLoans(ctx context.Context, customerID int64, asOf time.Time) ([]loan.Loan, error) {
	all, err := s.ListLoans(ctx, customerID)
	if err != nil {
		return nil, err
	}
	var out []loan.Loan
	for _, l := range all {
		if l.IsActive(asOf) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateLoanWithDebt(_ context.Context, l *loan.Loan, adj customer.DebtAdjustment) (*loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	c, ok := s.customers[adj.CustomerID]
	if !ok {
		return nil, customer.ErrNotFound
	}
	for _, other := range s.committedMeanwhile {
		other.ID = s.nextLoan
		s.nextLoan++
		s.loans = append(s.loans, other)
	}
	s.committedMeanwhile = nil
	if adj.MaxMonthlyEMI.IsPositive() {
		var active []loan.Loan
		for _, existing := range s.loans {
			if existing.CustomerID == adj.CustomerID && existing.IsActive(l.StartDate) {
				active = append(active, existing)
			}
		}
		if loan.TotalRepayment(active).Add(l.MonthlyRepayment).GreaterThan(adj.MaxMonthlyEMI) {
			return nil, loan.ErrEMILimitExceeded
		}
	}
	created := *l
	created.ID = s.nextLoan
	s.nextLoan++
	s.loans = append(s.loans, created)
	c.CurrentDebt = c.CurrentDebt.Add(adj.Delta)
	return &created, nil
}

func (s *memoryStore) customer(id int64) customer.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.customers[id]
}

func (s *memoryStore) loanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishCustomerRegistered(ctx context.Context, evt event.CustomerRegisteredEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventPublisher) PublishLoanIssued(ctx context.Context, evt event.LoanIssuedEvent) error {
	return m.Called(ctx, evt).Error(0)
}
