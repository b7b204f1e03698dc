package customer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/event"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupTest() (*customer.MockCustomerRepository, *customer.MockEventPublisher, customer.CustomerService) {
	mockRepo := new(customer.MockCustomerRepository)
	mockPub := new(customer.MockEventPublisher)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, mockPub, logger)
	return mockRepo, mockPub, service
}

func validRegistration() customer.Registration {
	return customer.Registration{
		FirstName:     "Asha",
		LastName:      "Rao",
		Age:           29,
		MonthlyIncome: decimal.NewFromInt(60000),
		PhoneNumber:   9123456780,
	}
}

func TestCustomerService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		reg := validRegistration()

		mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(false, nil).Once()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.FirstName == "Asha" && c.ApprovedLimit.Equal(decimal.NewFromInt(2200000))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*customer.Customer).ID = 7
		}).Return(nil).Once()
		mockPub.On("PublishCustomerRegistered", ctx, mock.MatchedBy(func(evt event.CustomerRegisteredEvent) bool {
			return evt.Payload.CustomerID == 7
		})).Return(nil).Once()

		created, err := service.Register(ctx, reg)

		assert.NoError(t, err)
		if assert.NotNil(t, created) {
			assert.Equal(t, int64(7), created.ID)
			assert.True(t, created.CurrentDebt.IsZero())
		}
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Publish failure does not fail registration", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		reg := validRegistration()

		mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(false, nil).Once()
		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishCustomerRegistered", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		created, err := service.Register(ctx, reg)

		assert.NoError(t, err)
		assert.NotNil(t, created)
	})

	t.Run("Duplicate phone", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		reg := validRegistration()
		mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(true, nil).Once()

		created, err := service.Register(ctx, reg)

		assert.Nil(t, created)
		assert.ErrorIs(t, err, customer.ErrPhoneExists)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate phone detected by constraint", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		reg := validRegistration()
		mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(false, nil).Once()
		mockRepo.On("Save", ctx, mock.Anything).
			Return(fmt.Errorf("%w: customers_phone_number_key", apperrors.ErrAlreadyExists)).Once()

		_, err := service.Register(ctx, reg)

		assert.ErrorIs(t, err, customer.ErrPhoneExists)
	})

	t.Run("Repository failure", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		reg := validRegistration()
		dbErr := fmt.Errorf("%w: connection refused", apperrors.ErrDatabase)
		mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(false, dbErr).Once()

		_, err := service.Register(ctx, reg)

		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})

	validationCases := []struct {
		name   string
		mutate func(r *customer.Registration)
		field  string
	}{
		{"Empty first name", func(r *customer.Registration) { r.FirstName = "  " }, "first_name"},
		{"Empty last name", func(r *customer.Registration) { r.LastName = "" }, "last_name"},
		{"Underage", func(r *customer.Registration) { r.Age = 17 }, "age"},
		{"Too old", func(r *customer.Registration) { r.Age = 101 }, "age"},
		{"Zero income", func(r *customer.Registration) { r.MonthlyIncome = decimal.Zero }, "monthly_income"},
		{"Bad phone", func(r *customer.Registration) { r.PhoneNumber = 0 }, "phone_number"},
	}
	for _, tc := range validationCases {
		t.Run("Validation - "+tc.name, func(t *testing.T) {
			mockRepo, _, service := setupTest()
			reg := validRegistration()
			tc.mutate(&reg)

			_, err := service.Register(ctx, reg)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			var vErr *apperrors.ValidationError
			if assert.ErrorAs(t, err, &vErr) {
				assert.Equal(t, tc.field, vErr.Field)
			}
			mockRepo.AssertNotCalled(t, "ExistsByPhone", mock.Anything, mock.Anything)
		})
	}
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		expected := &customer.Customer{ID: 3, FirstName: "Ravi"}
		mockRepo.On("FindByID", ctx, int64(3)).Return(expected, nil).Once()

		got, err := service.GetCustomer(ctx, 3)

		assert.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("Not found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(99)).Return(nil, customer.ErrNotFound).Once()

		got, err := service.GetCustomer(ctx, 99)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Invalid id", func(t *testing.T) {
		_, _, service := setupTest()
		_, err := service.GetCustomer(ctx, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})
}

func TestNewCustomerService_NilPublisherUsesNoop(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(customer.MockCustomerRepository)
	service := customer.NewCustomerService(mockRepo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg := validRegistration()
	mockRepo.On("ExistsByPhone", ctx, reg.PhoneNumber).Return(false, nil).Once()
	mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

	_, err := service.Register(ctx, reg)
	assert.NoError(t, err)
}
