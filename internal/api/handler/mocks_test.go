package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/eligibility"
	"loan-engine/internal/domain/loan"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Register(ctx context.Context, reg customer.Registration) (*customer.Customer, error) {
	args := m.Called(ctx, reg)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEligibilityService struct {
	mock.Mock
}

func (m *MockEligibilityService) CheckEligibility(ctx context.Context, app eligibility.Application) (eligibility.Verdict, error) {
	args := m.Called(ctx, app)
	return args.Get(0).(eligibility.Verdict), args.Error(1)
}

func (m *MockEligibilityService) IssueLoan(ctx context.Context, app eligibility.Application) (*eligibility.IssueResult, error) {
	args := m.Called(ctx, app)
	if res, ok := args.Get(0).(*eligibility.IssueResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEligibilityService) CreditScore(cust *customer.Customer, loans []loan.Loan) float64 {
	return m.Called(cust, loans).Get(0).(float64)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) GetLoanDetail(ctx context.Context, loanID int64) (*loan.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	if d, ok := args.Get(0).(*loan.LoanDetail); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListCustomerLoans(ctx context.Context, customerID int64) ([]loan.LoanSummary, error) {
	args := m.Called(ctx, customerID)
	if s, ok := args.Get(0).([]loan.LoanSummary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
