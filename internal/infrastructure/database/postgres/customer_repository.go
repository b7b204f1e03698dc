package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const (
	customerColumns = `id, first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at`

	insertCustomerSQL = `
        INSERT INTO customers (first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	findCustomerByIDSQL = `
        SELECT ` + customerColumns + `
        FROM customers
        WHERE id = $1`

	customerPhoneExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE phone_number = $1)`

	upsertCustomerSQL = `
        INSERT INTO customers (id, first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE
        SET first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            age = EXCLUDED.age,
            phone_number = EXCLUDED.phone_number,
            monthly_salary = EXCLUDED.monthly_salary,
            approved_limit = EXCLUDED.approved_limit,
            current_debt = EXCLUDED.current_debt,
            updated_at = NOW()
        RETURNING (xmax = 0) AS inserted`

	syncCustomerSequenceSQL = `SELECT setval(pg_get_serial_sequence('customers', 'id'), COALESCE((SELECT MAX(id) FROM customers), 0) + 1, false)`
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

// Save inserts a new customer and fills in the generated id and timestamps.
func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) (err error) {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	done := monitoring.ObserveQuery("InsertCustomer")
	defer func() { done(err) }()

	err = r.db.QueryRow(ctx, insertCustomerSQL,
		cust.FirstName,
		cust.LastName,
		cust.Age,
		cust.PhoneNumber,
		cust.MonthlySalary,
		cust.ApprovedLimit,
		cust.CurrentDebt,
	).Scan(&cust.ID, &cust.CreatedAt, &cust.UpdatedAt)
	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation", slog.Int64("phoneNumber", cust.PhoneNumber))
			return translated
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to insert customer")
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.ID))
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (_ *customer.Customer, err error) {
	done := monitoring.ObserveQuery("FindCustomerByID")
	defer func() { done(err) }()

	cust, err := scanCustomer(r.db.QueryRow(ctx, findCustomerByIDSQL, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.DebugContext(ctx, "Customer not found", slog.Int64("customerID", customerID))
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer by ID", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to get customer by ID")
	}
	return cust, nil
}

func (r *CustomerRepository) ExistsByPhone(ctx context.Context, phoneNumber int64) (exists bool, err error) {
	done := monitoring.ObserveQuery("CustomerPhoneExists")
	defer func() { done(err) }()

	if err = r.db.QueryRow(ctx, customerPhoneExistsSQL, phoneNumber).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check phone number", slog.Any("error", err))
		return false, apperrors.WrapDatabaseError(err, "failed to check phone number")
	}
	return exists, nil
}

// Upsert writes the customer under its own id, overwriting any existing row.
func (r *CustomerRepository) Upsert(ctx context.Context, cust *customer.Customer) (inserted bool, err error) {
	if cust == nil || cust.ID <= 0 {
		return false, fmt.Errorf("%w: upsert requires a customer with an id", apperrors.ErrInvalidArgument)
	}
	done := monitoring.ObserveQuery("UpsertCustomer")
	defer func() { done(err) }()

	err = r.db.QueryRow(ctx, upsertCustomerSQL,
		cust.ID,
		cust.FirstName,
		cust.LastName,
		cust.Age,
		cust.PhoneNumber,
		cust.MonthlySalary,
		cust.ApprovedLimit,
		cust.CurrentDebt,
	).Scan(&inserted)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert customer", slog.Int64("customerID", cust.ID), slog.Any("error", err))
		return false, translateDBError(err, r.logger)
	}
	return inserted, nil
}

// SyncIDSequence moves the id sequence past the highest stored id so
// registrations after a bulk import do not collide with imported ids.
func (r *CustomerRepository) SyncIDSequence(ctx context.Context) (err error) {
	done := monitoring.ObserveQuery("SyncCustomerSequence")
	defer func() { done(err) }()

	if _, err = r.db.Exec(ctx, syncCustomerSequenceSQL); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sync customer id sequence", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to sync customer id sequence")
	}
	return nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Age,
		&c.PhoneNumber,
		&c.MonthlySalary,
		&c.ApprovedLimit,
		&c.CurrentDebt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
