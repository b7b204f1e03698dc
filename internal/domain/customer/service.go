package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Registration carries the fields a new customer supplies.
type Registration struct {
	FirstName     string
	LastName      string
	Age           int
	MonthlyIncome decimal.Decimal
	PhoneNumber   int64
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.NewValidationError("first_name", "cannot be empty")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.NewValidationError("last_name", "cannot be empty")
	}
	if r.Age < MinAge || r.Age > MaxAge {
		return apperrors.NewValidationError("age", fmt.Sprintf("must be between %d and %d", MinAge, MaxAge))
	}
	if !r.MonthlyIncome.IsPositive() {
		return apperrors.NewValidationError("monthly_income", "must be positive")
	}
	if r.PhoneNumber <= 0 {
		return apperrors.NewValidationError("phone_number", "must be a positive number")
	}
	return nil
}

type CustomerService interface {
	Register(ctx context.Context, reg Registration) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, pub event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &customerService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		CustomerID:    cust.ID,
		FirstName:     cust.FirstName,
		LastName:      cust.LastName,
		Age:           cust.Age,
		PhoneNumber:   cust.PhoneNumber,
		MonthlySalary: cust.MonthlySalary,
		ApprovedLimit: cust.ApprovedLimit,
		CreatedAt:     cust.CreatedAt,
	}
}

func (s *customerService) Register(ctx context.Context, reg Registration) (*Customer, error) {
	if err := reg.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Registration rejected by validation", slog.Any("error", err))
		return nil, err
	}

	exists, err := s.repo.ExistsByPhone(ctx, reg.PhoneNumber)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check phone number uniqueness", slog.Any("error", err))
		return nil, err
	}
	if exists {
		s.logger.WarnContext(ctx, "Phone number already registered")
		return nil, ErrPhoneExists
	}

	cust := NewCustomer(reg.FirstName, reg.LastName, reg.Age, reg.PhoneNumber, reg.MonthlyIncome)
	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Phone number registered concurrently", slog.Any("error", err))
			return nil, ErrPhoneExists
		}
		s.logger.ErrorContext(ctx, "Repository failed to save customer", slog.Any("error", err))
		return nil, err
	}

	monitoring.RecordCustomerRegistered()
	logger := s.logger.With(slog.Int64("customerID", cust.ID))
	logger.InfoContext(ctx, "Customer registered", slog.String("approved_limit", cust.ApprovedLimit.String()))

	evt := event.CustomerRegisteredEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(cust),
	}
	if err := s.pub.PublishCustomerRegistered(ctx, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish customer registered event", slog.Any("error", err))
	}

	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", apperrors.ErrInvalidArgument)
	}
	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found by repository", slog.Int64("customerID", customerID))
		} else {
			s.logger.ErrorContext(ctx, "Repository failed to find customer", slog.Int64("customerID", customerID), slog.Any("error", err))
		}
		return nil, err
	}
	return cust, nil
}
