package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/eligibility"
	"loan-engine/internal/pkg/apperrors"
)

type EligibilityHandler struct {
	service eligibility.Service
	logger  *slog.Logger
}

func NewEligibilityHandler(s eligibility.Service, l *slog.Logger) *EligibilityHandler {
	if s == nil {
		panic("eligibility service cannot be nil")
	}
	return &EligibilityHandler{
		service: s,
		logger:  l.With("component", "EligibilityHandler"),
	}
}

func (h *EligibilityHandler) decodeLoanRequest(w http.ResponseWriter, r *http.Request) (dto.LoanRequest, bool) {
	var req dto.LoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return req, false
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Loan request validation failed", slog.Any("error", err))
		respondError(w, err)
		return req, false
	}
	return req, true
}

// CheckEligibility handles POST /check-eligibility
// @Summary Check loan eligibility
// @Description Scores the customer's history and returns the approval decision with the corrected interest rate and monthly installment. Nothing is written.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanRequest true "Loan application"
// @Success 200 {object} dto.EligibilityResponse "Eligibility decision"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /check-eligibility [post]
func (h *EligibilityHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLoanRequest(w, r)
	if !ok {
		return
	}

	verdict, err := h.service.CheckEligibility(r.Context(), req.ToApplication())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Eligibility check failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewEligibilityResponse(req, verdict))
}

// CreateLoan handles POST /create-loan
// @Summary Issue a loan
// @Description Re-runs the eligibility check and, when approved, records the loan at the corrected rate and adds the amount to the customer's debt.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanRequest true "Loan application"
// @Success 201 {object} dto.CreateLoanResponse "Loan issued"
// @Success 200 {object} dto.CreateLoanResponse "Loan rejected"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.CreateLoanResponse "Customer removed before the loan was written"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /create-loan [post]
func (h *EligibilityHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLoanRequest(w, r)
	if !ok {
		return
	}

	res, err := h.service.IssueLoan(r.Context(), req.ToApplication())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Loan issuance failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	status := http.StatusOK
	switch res.Status {
	case eligibility.IssueCreated:
		status = http.StatusCreated
	case eligibility.IssueCustomerNotFound:
		status = http.StatusNotFound
	}
	respondJSON(w, status, dto.NewCreateLoanResponse(res))
}
