package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"loan-engine/internal/config"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultIngestionWorkers = 4
	defaultCustomerAge      = 30

	entityCustomer = "customer"
	entityLoan     = "loan"
)

var (
	customerColumns = []string{"customer_id", "first_name", "last_name", "phone_number", "monthly_salary", "approved_limit"}
	loanColumns     = []string{"customer id", "loan id", "loan amount", "tenure", "interest rate", "monthly repayment (emi)", "EMIs paid on time", "start date", "end date"}
)

type IngestionReport struct {
	CustomersCreated int64
	CustomersUpdated int64
	LoansCreated     int64
	LoansUpdated     int64
	Skipped          int64
}

type ingestionCounters struct {
	created atomic.Int64
	updated atomic.Int64
	skipped atomic.Int64
}

// IngestionJob loads historical customers and loans from the customer and
// loan workbooks, upserting each row by its id.
type IngestionJob struct {
	customers customer.CustomerRepository
	loans     loan.Repository
	cfg       config.IngestionConfig
	logger    *slog.Logger
}

func NewIngestionJob(customers customer.CustomerRepository, loans loan.Repository, cfg config.IngestionConfig, logger *slog.Logger) *IngestionJob {
	if customers == nil || loans == nil || logger == nil {
		panic("IngestionJob dependencies cannot be nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultIngestionWorkers
	}
	return &IngestionJob{
		customers: customers,
		loans:     loans,
		cfg:       cfg,
		logger:    logger.With("job", "Ingestion"),
	}
}

// Run imports customers first so loans can reference them. A missing or
// unreadable workbook fails that half of the import; bad rows are skipped.
func (j *IngestionJob) Run(ctx context.Context) (IngestionReport, error) {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting spreadsheet ingestion job.", slog.String("data_dir", j.cfg.DataDir))

	var report IngestionReport
	var customerCounts, loanCounts ingestionCounters

	customerErr := j.ingest(ctx, j.path(j.cfg.CustomerFile), customerColumns, entityCustomer, &customerCounts, j.applyCustomer, j.customers.SyncIDSequence)
	loanErr := j.ingest(ctx, j.path(j.cfg.LoanFile), loanColumns, entityLoan, &loanCounts, j.applyLoan, j.loans.SyncIDSequence)

	report.CustomersCreated = customerCounts.created.Load()
	report.CustomersUpdated = customerCounts.updated.Load()
	report.LoansCreated = loanCounts.created.Load()
	report.LoansUpdated = loanCounts.updated.Load()
	report.Skipped = customerCounts.skipped.Load() + loanCounts.skipped.Load()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int64("customers_created", report.CustomersCreated),
		slog.Int64("customers_updated", report.CustomersUpdated),
		slog.Int64("loans_created", report.LoansCreated),
		slog.Int64("loans_updated", report.LoansUpdated),
		slog.Int64("rows_skipped", report.Skipped),
	)

	if err := errors.Join(customerErr, loanErr); err != nil {
		summaryLog.WarnContext(ctx, "Spreadsheet ingestion job finished with errors.", slog.Any("error", err))
		return report, err
	}
	summaryLog.InfoContext(ctx, "Spreadsheet ingestion job finished successfully.")
	return report, nil
}

func (j *IngestionJob) path(name string) string {
	return filepath.Join(j.cfg.DataDir, name)
}

type rowApplier func(ctx context.Context, r row) (created bool, err error)

func (j *IngestionJob) ingest(
	ctx context.Context,
	path string,
	columns []string,
	entity string,
	counts *ingestionCounters,
	apply rowApplier,
	syncSequence func(context.Context) error,
) error {
	logger := j.logger.With(slog.String("entity", entity), slog.String("file", path))

	if _, err := os.Stat(path); err != nil {
		logger.ErrorContext(ctx, "Workbook not found.", slog.Any("error", err))
		return fmt.Errorf("%s workbook: %w", entity, err)
	}

	s, err := openSheet(path)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open workbook.", slog.Any("error", err))
		return fmt.Errorf("%s workbook: %w", entity, err)
	}
	defer s.Close()

	if err := s.require(columns...); err != nil {
		logger.ErrorContext(ctx, "Workbook is missing required columns.", slog.Any("error", err))
		return fmt.Errorf("%s workbook: %w", entity, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Workers)

	for i, cells := range s.rows {
		r := row{sheet: s, cells: cells, number: i + 2}
		if r.isBlank() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			created, err := apply(gctx, r)
			switch {
			case err != nil:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				counts.skipped.Add(1)
				monitoring.RecordIngestedRow(entity, "skipped")
				logger.WarnContext(gctx, "Skipping row.", slog.Int("row", r.number), slog.Any("error", err))
			case created:
				counts.created.Add(1)
				monitoring.RecordIngestedRow(entity, "created")
			default:
				counts.updated.Add(1)
				monitoring.RecordIngestedRow(entity, "updated")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Ingestion interrupted.", slog.Any("error", err))
		return fmt.Errorf("%s ingestion interrupted: %w", entity, err)
	}

	if counts.created.Load()+counts.updated.Load() > 0 {
		if err := syncSequence(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to advance id sequence.", slog.Any("error", err))
			return fmt.Errorf("%s sequence sync: %w", entity, err)
		}
	}
	return nil
}

func (j *IngestionJob) applyCustomer(ctx context.Context, r row) (bool, error) {
	cust, err := parseCustomerRow(r)
	if err != nil {
		return false, err
	}
	return j.customers.Upsert(ctx, cust)
}

func (j *IngestionJob) applyLoan(ctx context.Context, r row) (bool, error) {
	l, err := parseLoanRow(r)
	if err != nil {
		return false, err
	}
	created, err := j.loans.Upsert(ctx, l)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("customer %d not found for loan %d: %w", l.CustomerID, l.ID, err)
	}
	return created, err
}

func parseCustomerRow(r row) (*customer.Customer, error) {
	id, err := r.int64Cell("customer_id")
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("customer_id must be positive, got %d", id)
	}
	phone, err := r.int64Cell("phone_number")
	if err != nil {
		return nil, err
	}
	salary, err := r.decimalCell("monthly_salary")
	if err != nil {
		return nil, err
	}
	limit, err := r.decimalCell("approved_limit")
	if err != nil {
		return nil, err
	}
	debt, err := r.decimalCellOr("current_debt", decimal.Zero)
	if err != nil {
		return nil, err
	}
	age, err := r.intCellOr("age", defaultCustomerAge)
	if err != nil {
		return nil, err
	}

	firstName, lastName := r.text("first_name"), r.text("last_name")
	if firstName == "" {
		return nil, fmt.Errorf("first_name: %w", errMissingValue)
	}

	return &customer.Customer{
		ID:            id,
		FirstName:     firstName,
		LastName:      lastName,
		Age:           age,
		PhoneNumber:   phone,
		MonthlySalary: salary,
		ApprovedLimit: money.RoundToLakh(limit),
		CurrentDebt:   debt,
	}, nil
}

func parseLoanRow(r row) (*loan.Loan, error) {
	customerID, err := r.int64Cell("customer id")
	if err != nil {
		return nil, err
	}
	loanID, err := r.int64Cell("loan id")
	if err != nil {
		return nil, err
	}
	if loanID <= 0 {
		return nil, fmt.Errorf("loan id must be positive, got %d", loanID)
	}
	amount, err := r.decimalCell("loan amount")
	if err != nil {
		return nil, err
	}
	tenure, err := r.int64Cell("tenure")
	if err != nil {
		return nil, err
	}
	rate, err := r.decimalCell("interest rate")
	if err != nil {
		return nil, err
	}
	emi, err := r.decimalCell("monthly repayment (emi)")
	if err != nil {
		return nil, err
	}
	paidOnTime, err := r.int64Cell("EMIs paid on time")
	if err != nil {
		return nil, err
	}
	start, err := r.dateCell("start date")
	if err != nil {
		return nil, err
	}
	end, err := r.dateCell("end date")
	if err != nil {
		return nil, err
	}

	return &loan.Loan{
		ID:               loanID,
		CustomerID:       customerID,
		LoanAmount:       amount,
		Tenure:           int(tenure),
		InterestRate:     rate,
		MonthlyRepayment: emi,
		EMIsPaidOnTime:   int(paidOnTime),
		StartDate:        start,
		EndDate:          end,
	}, nil
}
