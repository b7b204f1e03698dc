package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	loanColumns = `id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at`

	getLoanByIDSQL = `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE id = $1`

	listLoansByCustomerSQL = `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE customer_id = $1
        ORDER BY id ASC`

	listActiveLoansByCustomerSQL = `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE customer_id = $1 AND end_date >= $2
        ORDER BY id ASC`

	lockCustomerSQL = `SELECT id FROM customers WHERE id = $1 FOR UPDATE`

	sumActiveEMISQL = `
        SELECT COALESCE(SUM(monthly_repayment), 0)
        FROM loans
        WHERE customer_id = $1 AND end_date >= $2`

	insertLoanSQL = `
        INSERT INTO loans (customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING ` + loanColumns

	addCustomerDebtSQL = `
        UPDATE customers
        SET current_debt = current_debt + $1, updated_at = NOW()
        WHERE id = $2`

	upsertLoanSQL = `
        INSERT INTO loans (id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE
        SET customer_id = EXCLUDED.customer_id,
            loan_amount = EXCLUDED.loan_amount,
            tenure = EXCLUDED.tenure,
            interest_rate = EXCLUDED.interest_rate,
            monthly_repayment = EXCLUDED.monthly_repayment,
            emis_paid_on_time = EXCLUDED.emis_paid_on_time,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            updated_at = NOW()
        RETURNING (xmax = 0) AS inserted`

	syncLoanSequenceSQL = `SELECT setval(pg_get_serial_sequence('loans', 'id'), COALESCE((SELECT MAX(id) FROM loans), 0) + 1, false)`
)

type LoanRepository struct {
	txRunner
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	if db == nil {
		panic("DBPool cannot be nil for LoanRepository")
	}
	return &LoanRepository{txRunner{db: db, logger: logger.With("component", "LoanRepository")}}
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (_ *loan.Loan, err error) {
	done := monitoring.ObserveQuery("GetLoanByID")
	defer func() { done(err) }()

	l, err := scanLoan(r.db.QueryRow(ctx, getLoanByIDSQL, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.NewNotFoundError("loan", loanID)
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, apperrors.WrapDatabaseError(err, "failed to get loan")
	}
	return l, nil
}

func (r *LoanRepository) ListByCustomer(ctx context.Context, customerID int64) (_ []loan.Loan, err error) {
	done := monitoring.ObserveQuery("ListLoansByCustomer")
	defer func() { done(err) }()

	return r.queryLoans(ctx, listLoansByCustomerSQL, customerID)
}

func (r *LoanRepository) ListActiveByCustomer(ctx context.Context, customerID int64, asOf time.Time) (_ []loan.Loan, err error) {
	done := monitoring.ObserveQuery("ListActiveLoansByCustomer")
	defer func() { done(err) }()

	return r.queryLoans(ctx, listActiveLoansByCustomerSQL, customerID, loan.DateOf(asOf))
}

func (r *LoanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]loan.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "args", args, "error", err)
		return nil, apperrors.WrapDatabaseError(err, "failed to query loans")
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, apperrors.WrapDatabaseError(err, "failed to scan loan row")
		}
		loans = append(loans, *l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "error", err)
		return nil, apperrors.WrapDatabaseError(err, "failed to read loan rows")
	}
	return loans, nil
}

// CreateWithDebt locks the customer row, inserts the loan and adds adj.Delta
// to the customer's current debt. Either both writes land or neither does.
func (r *LoanRepository) CreateWithDebt(ctx context.Context, newLoan *loan.Loan, adj customer.DebtAdjustment) (_ *loan.Loan, err error) {
	if newLoan == nil || newLoan.CustomerID != adj.CustomerID {
		return nil, fmt.Errorf("%w: loan and debt adjustment must target the same customer", apperrors.ErrInvalidArgument)
	}
	done := monitoring.ObserveQuery("CreateLoanWithDebt")
	defer func() { done(err) }()

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer r.RollbackTx(ctx, tx)

	var lockedID int64
	if err = tx.QueryRow(ctx, lockCustomerSQL, adj.CustomerID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer missing while issuing loan", slog.Int64("customerID", adj.CustomerID))
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock customer row", slog.Int64("customerID", adj.CustomerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to lock customer")
	}

	if adj.MaxMonthlyEMI.IsPositive() {
		var activeEMI decimal.Decimal
		if err = tx.QueryRow(ctx, sumActiveEMISQL, adj.CustomerID, newLoan.StartDate).Scan(&activeEMI); err != nil {
			r.logger.ErrorContext(ctx, "Failed to sum active EMIs", slog.Int64("customerID", adj.CustomerID), slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to sum active EMIs")
		}
		if activeEMI.Add(newLoan.MonthlyRepayment).GreaterThan(adj.MaxMonthlyEMI) {
			r.logger.WarnContext(ctx, "EMI limit reached while issuing loan",
				slog.Int64("customerID", adj.CustomerID),
				slog.String("active_emi", activeEMI.String()),
				slog.String("limit", adj.MaxMonthlyEMI.String()),
			)
			err = loan.ErrEMILimitExceeded
			return nil, err
		}
	}

	created, err := scanLoan(tx.QueryRow(ctx, insertLoanSQL,
		newLoan.CustomerID,
		newLoan.LoanAmount,
		newLoan.Tenure,
		newLoan.InterestRate,
		newLoan.MonthlyRepayment,
		newLoan.EMIsPaidOnTime,
		newLoan.StartDate,
		newLoan.EndDate,
	))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to insert loan")
	}

	cmdTag, err := tx.Exec(ctx, addCustomerDebtSQL, adj.Delta, adj.CustomerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update customer debt", slog.Int64("customerID", adj.CustomerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to update customer debt")
	}
	if cmdTag.RowsAffected() != 1 {
		err = customer.ErrNotFound
		return nil, err
	}

	if err = r.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID, "customer_id", created.CustomerID)
	return created, nil
}

// Upsert writes the loan under its own id. A missing customer surfaces as ErrNotFound.
func (r *LoanRepository) Upsert(ctx context.Context, l *loan.Loan) (inserted bool, err error) {
	if l == nil || l.ID <= 0 {
		return false, fmt.Errorf("%w: upsert requires a loan with an id", apperrors.ErrInvalidArgument)
	}
	done := monitoring.ObserveQuery("UpsertLoan")
	defer func() { done(err) }()

	err = r.db.QueryRow(ctx, upsertLoanSQL,
		l.ID,
		l.CustomerID,
		l.LoanAmount,
		l.Tenure,
		l.InterestRate,
		l.MonthlyRepayment,
		l.EMIsPaidOnTime,
		l.StartDate,
		l.EndDate,
	).Scan(&inserted)
	if err != nil {
		return false, translateDBError(err, r.logger.With(slog.Int64("loanID", l.ID)))
	}
	return inserted, nil
}

func (r *LoanRepository) SyncIDSequence(ctx context.Context) (err error) {
	done := monitoring.ObserveQuery("SyncLoanSequence")
	defer func() { done(err) }()

	if _, err = r.db.Exec(ctx, syncLoanSequenceSQL); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sync loan id sequence", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to sync loan id sequence")
	}
	return nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID,
		&l.CustomerID,
		&l.LoanAmount,
		&l.Tenure,
		&l.InterestRate,
		&l.MonthlyRepayment,
		&l.EMIsPaidOnTime,
		&l.StartDate,
		&l.EndDate,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
