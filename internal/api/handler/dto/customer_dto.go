package dto

import (
	"loan-engine/internal/domain/customer"

	"github.com/shopspring/decimal"
)

type RegisterCustomerRequest struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Age           int             `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	PhoneNumber   int64           `json:"phone_number"`
}

func (r *RegisterCustomerRequest) ToRegistration() customer.Registration {
	return customer.Registration{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Age:           r.Age,
		MonthlyIncome: r.MonthlyIncome,
		PhoneNumber:   r.PhoneNumber,
	}
}

func (r *RegisterCustomerRequest) Validate() error {
	return r.ToRegistration().Validate()
}

type CustomerResponse struct {
	CustomerID    int64  `json:"customer_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	MonthlyIncome string `json:"monthly_income"`
	ApprovedLimit string `json:"approved_limit"`
	PhoneNumber   int64  `json:"phone_number"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		CustomerID:    cust.ID,
		Name:          cust.FullName(),
		Age:           cust.Age,
		MonthlyIncome: Amount(cust.MonthlySalary),
		ApprovedLimit: Amount(cust.ApprovedLimit),
		PhoneNumber:   cust.PhoneNumber,
	}
}

// LoanCustomerResponse is the customer block embedded in a loan detail.
type LoanCustomerResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber int64  `json:"phone_number"`
	Age         int    `json:"age"`
}

func NewLoanCustomerResponse(cust *customer.Customer) LoanCustomerResponse {
	if cust == nil {
		return LoanCustomerResponse{}
	}
	return LoanCustomerResponse{
		ID:          cust.ID,
		FirstName:   cust.FirstName,
		LastName:    cust.LastName,
		PhoneNumber: cust.PhoneNumber,
		Age:         cust.Age,
	}
}
