package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customerColumnNames = []string{"id", "first_name", "last_name", "age", "phone_number", "monthly_salary", "approved_limit", "current_debt", "created_at", "updated_at"}

func newCustomerFixture() *customer.Customer {
	return &customer.Customer{
		ID:            1,
		FirstName:     "Aarav",
		LastName:      "Shah",
		Age:           31,
		PhoneNumber:   9876543210,
		MonthlySalary: decimal.NewFromInt(60000),
		ApprovedLimit: decimal.NewFromInt(2200000),
		CurrentDebt:   decimal.Zero,
		CreatedAt:     time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC),
	}
}

func setupCustomerRepo(t *testing.T) (context.Context, *CustomerRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), NewCustomerRepository(mockPool, logger), mockPool
}

func TestSaveCustomerWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()
	cust.ID = 0

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerSQL)).WithArgs(
		cust.FirstName, cust.LastName, cust.Age, cust.PhoneNumber,
		cust.MonthlySalary, cust.ApprovedLimit, cust.CurrentDebt,
	).WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow(int64(42), cust.CreatedAt, cust.UpdatedAt))

	err := repo.Save(ctx, cust)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), cust.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveCustomerDuplicatePhone(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerSQL)).WithArgs(
		cust.FirstName, cust.LastName, cust.Age, cust.PhoneNumber,
		cust.MonthlySalary, cust.ApprovedLimit, cust.CurrentDebt,
	).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "customers_phone_number_key"})

	err := repo.Save(ctx, cust)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveCustomerDatabaseFailure(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	cust := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(insertCustomerSQL)).WithArgs(
		cust.FirstName, cust.LastName, cust.Age, cust.PhoneNumber,
		cust.MonthlySalary, cust.ApprovedLimit, cust.CurrentDebt,
	).
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(ctx, cust)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DB_ERROR", appErr.Code)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveNilCustomer(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	assert.ErrorIs(t, repo.Save(ctx, nil), apperrors.ErrInvalidArgument)
}

func TestFindCustomerByIDReturnOne(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	c := newCustomerFixture()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDSQL)).WithArgs(c.ID).
		WillReturnRows(pgxmock.NewRows(customerColumnNames).AddRow(
			c.ID, c.FirstName, c.LastName, c.Age, c.PhoneNumber,
			c.MonthlySalary, c.ApprovedLimit, c.CurrentDebt, c.CreatedAt, c.UpdatedAt,
		))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Aarav", got.FirstName)
	assert.True(t, got.ApprovedLimit.Equal(decimal.NewFromInt(2200000)))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindCustomerByIDReturnNone(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDSQL)).WithArgs(int64(77)).WillReturnError(pgx.ErrNoRows)

	got, err := repo.FindByID(ctx, 77)
	assert.ErrorIs(t, err, customer.ErrNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, got)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestExistsByPhone(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(customerPhoneExistsSQL)).WithArgs(int64(9876543210)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByPhone(ctx, 9876543210)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpsertCustomer(t *testing.T) {
	tests := []struct {
		name     string
		inserted bool
	}{
		{"new row", true},
		{"existing row overwritten", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, repo, mockPool := setupCustomerRepo(t)
			defer mockPool.Close()
			c := newCustomerFixture()

			mockPool.ExpectQuery(regexp.QuoteMeta(upsertCustomerSQL)).WithArgs(
				c.ID, c.FirstName, c.LastName, c.Age, c.PhoneNumber,
				c.MonthlySalary, c.ApprovedLimit, c.CurrentDebt,
			).WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(tt.inserted))

			inserted, err := repo.Upsert(ctx, c)
			require.NoError(t, err)
			assert.Equal(t, tt.inserted, inserted)
			assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
		})
	}
}

func TestUpsertCustomerRequiresID(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()
	c := newCustomerFixture()
	c.ID = 0

	_, err := repo.Upsert(ctx, c)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestSyncCustomerIDSequence(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(syncCustomerSequenceSQL)).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	assert.NoError(t, repo.SyncIDSequence(ctx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
