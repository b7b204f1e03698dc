package dto

import (
	"loan-engine/internal/domain/eligibility"
	"loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

// LoanRequest is the body of both /check-eligibility and /create-loan.
type LoanRequest struct {
	CustomerID   int64           `json:"customer_id"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Tenure       int             `json:"tenure"`
}

func (r *LoanRequest) ToApplication() eligibility.Application {
	return eligibility.Application{
		CustomerID:   r.CustomerID,
		LoanAmount:   r.LoanAmount,
		InterestRate: r.InterestRate,
		Tenure:       r.Tenure,
	}
}

func (r *LoanRequest) Validate() error {
	return r.ToApplication().Validate()
}

type EligibilityResponse struct {
	CustomerID            int64  `json:"customer_id"`
	Approval              bool   `json:"approval"`
	Message               string `json:"message"`
	InterestRate          string `json:"interest_rate"`
	CorrectedInterestRate string `json:"corrected_interest_rate"`
	Tenure                int    `json:"tenure"`
	MonthlyInstallment    string `json:"monthly_installment"`
}

func NewEligibilityResponse(req LoanRequest, v eligibility.Verdict) EligibilityResponse {
	return EligibilityResponse{
		CustomerID:            req.CustomerID,
		Approval:              v.Approved,
		Message:               v.Message,
		InterestRate:          Amount(v.InterestRate),
		CorrectedInterestRate: Amount(v.CorrectedInterestRate),
		Tenure:                req.Tenure,
		MonthlyInstallment:    Amount(v.MonthlyInstallment),
	}
}

// CreateLoanResponse carries null loan_id and monthly_installment when no loan was written.
type CreateLoanResponse struct {
	LoanID             *int64  `json:"loan_id"`
	CustomerID         int64   `json:"customer_id"`
	LoanApproved       bool    `json:"loan_approved"`
	Message            string  `json:"message"`
	MonthlyInstallment *string `json:"monthly_installment"`
}

func NewCreateLoanResponse(res *eligibility.IssueResult) CreateLoanResponse {
	resp := CreateLoanResponse{
		LoanID:       res.LoanID,
		CustomerID:   res.CustomerID,
		LoanApproved: res.Approved,
		Message:      res.Message,
	}
	if res.Status == eligibility.IssueCreated {
		installment := Amount(res.MonthlyInstallment)
		resp.MonthlyInstallment = &installment
	}
	return resp
}

type LoanDetailResponse struct {
	LoanID             int64                `json:"loan_id"`
	Customer           LoanCustomerResponse `json:"customer"`
	LoanAmount         string               `json:"loan_amount"`
	InterestRate       string               `json:"interest_rate"`
	MonthlyInstallment string               `json:"monthly_installment"`
	Tenure             int                  `json:"tenure"`
	LoanApproved       bool                 `json:"loan_approved"`
}

func NewLoanDetailResponse(d *loan.LoanDetail) LoanDetailResponse {
	if d == nil || d.Loan == nil {
		return LoanDetailResponse{}
	}
	return LoanDetailResponse{
		LoanID:             d.Loan.ID,
		Customer:           NewLoanCustomerResponse(d.Customer),
		LoanAmount:         Amount(d.Loan.LoanAmount),
		InterestRate:       Amount(d.Loan.InterestRate),
		MonthlyInstallment: Amount(d.Loan.MonthlyRepayment),
		Tenure:             d.Loan.Tenure,
		LoanApproved:       true,
	}
}

type LoanSummaryResponse struct {
	LoanID             int64  `json:"loan_id"`
	LoanAmount         string `json:"loan_amount"`
	InterestRate       string `json:"interest_rate"`
	MonthlyInstallment string `json:"monthly_installment"`
	RepaymentsLeft     int    `json:"repayments_left"`
}

func NewLoanSummaryResponses(summaries []loan.LoanSummary) []LoanSummaryResponse {
	resp := make([]LoanSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = LoanSummaryResponse{
			LoanID:             s.ID,
			LoanAmount:         Amount(s.LoanAmount),
			InterestRate:       Amount(s.InterestRate),
			MonthlyInstallment: Amount(s.MonthlyRepayment),
			RepaymentsLeft:     s.RepaymentsLeft,
		}
	}
	return resp
}
