package customer

import (
	"context"

	"loan-engine/internal/event"

	"github.com/stretchr/testify/mock"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (_m *MockCustomerRepository) Save(ctx context.Context, customer *Customer) error {
	ret := _m.Called(ctx, customer)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *Customer) error); ok {
		r0 = rf(ctx, customer)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *MockCustomerRepository) FindByID(ctx context.Context, customerID int64) (*Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) ExistsByPhone(ctx context.Context, phoneNumber int64) (bool, error) {
	ret := _m.Called(ctx, phoneNumber)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockCustomerRepository) Upsert(ctx context.Context, customer *Customer) (bool, error) {
	ret := _m.Called(ctx, customer)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockCustomerRepository) SyncIDSequence(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
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
