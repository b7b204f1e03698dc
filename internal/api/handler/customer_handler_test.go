package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/customer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCustomerHandlerRegister(t *testing.T) {
	const body = `{"first_name":"Aarav","last_name":"Shah","age":30,"monthly_income":60000,"phone_number":9876543210}`

	t.Run("registers customer", func(t *testing.T) {
		svc := new(MockCustomerService)
		h := NewCustomerHandler(svc, testLogger)

		created := customer.NewCustomer("Aarav", "Shah", 30, 9876543210, decimal.NewFromInt(60000))
		created.ID = 12
		svc.On("Register", mock.Anything, mock.MatchedBy(func(reg customer.Registration) bool {
			return reg.FirstName == "Aarav" && reg.PhoneNumber == 9876543210 && reg.MonthlyIncome.Equal(decimal.NewFromInt(60000))
		})).Return(created, nil).Once()

		rec := httptest.NewRecorder()
		h.Register(rec, newJSONRequest(http.MethodPost, "/register", body))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CustomerResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(12), resp.CustomerID)
		assert.Equal(t, "Aarav Shah", resp.Name)
		assert.Equal(t, "2200000.00", resp.ApprovedLimit)
		svc.AssertExpectations(t)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		svc := new(MockCustomerService)
		h := NewCustomerHandler(svc, testLogger)

		rec := httptest.NewRecorder()
		h.Register(rec, newJSONRequest(http.MethodPost, "/register", `{"first_name":"A","nickname":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("reports the invalid field", func(t *testing.T) {
		svc := new(MockCustomerService)
		h := NewCustomerHandler(svc, testLogger)

		rec := httptest.NewRecorder()
		h.Register(rec, newJSONRequest(http.MethodPost, "/register",
			`{"first_name":"Aarav","last_name":"Shah","age":12,"monthly_income":60000,"phone_number":9876543210}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "age", resp.Error.Field)
		assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	})

	t.Run("duplicate phone is a conflict", func(t *testing.T) {
		svc := new(MockCustomerService)
		h := NewCustomerHandler(svc, testLogger)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, customer.ErrPhoneExists).Once()

		rec := httptest.NewRecorder()
		h.Register(rec, newJSONRequest(http.MethodPost, "/register", body))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unexpected service error", func(t *testing.T) {
		svc := new(MockCustomerService)
		h := NewCustomerHandler(svc, testLogger)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		rec := httptest.NewRecorder()
		h.Register(rec, newJSONRequest(http.MethodPost, "/register", body))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "An unexpected error occurred.", resp.Error.Message)
	})
}

func TestNewCustomerHandlerPanicsOnNilService(t *testing.T) {
	assert.Panics(t, func() { NewCustomerHandler(nil, testLogger) })
}
