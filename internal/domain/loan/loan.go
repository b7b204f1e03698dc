package loan

import (
	"fmt"
	"time"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	MinTenureMonths = 1
	MaxTenureMonths = 360
)

var maxInterestRate = decimal.NewFromInt(100)

type Loan struct {
	ID               int64
	CustomerID       int64
	LoanAmount       decimal.Decimal
	Tenure           int
	InterestRate     decimal.Decimal
	MonthlyRepayment decimal.Decimal
	EMIsPaidOnTime   int
	StartDate        time.Time
	EndDate          time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clock supplies the current instant. Date-dependent rules read "today" from it.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now() }

// NewLoan builds an unsaved loan starting on start's calendar date.
func NewLoan(customerID int64, amount decimal.Decimal, tenure int, annualRate, installment decimal.Decimal, start time.Time) (*Loan, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", apperrors.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", apperrors.ErrInvalidArgument)
	}
	if tenure < MinTenureMonths || tenure > MaxTenureMonths {
		return nil, fmt.Errorf("%w: tenure must be between %d and %d months", apperrors.ErrInvalidArgument, MinTenureMonths, MaxTenureMonths)
	}
	if annualRate.IsNegative() || annualRate.GreaterThan(maxInterestRate) {
		return nil, fmt.Errorf("%w: interest rate must be between 0 and 100", apperrors.ErrInvalidArgument)
	}

	startDate := DateOf(start)
	return &Loan{
		CustomerID:       customerID,
		LoanAmount:       amount,
		Tenure:           tenure,
		InterestRate:     annualRate,
		MonthlyRepayment: installment,
		EMIsPaidOnTime:   0,
		StartDate:        startDate,
		EndDate:          AddMonths(startDate, tenure),
	}, nil
}

// IsActive reports whether the loan still has installments due on or after asOf.
func (l *Loan) IsActive(asOf time.Time) bool {
	return !DateOf(l.EndDate).Before(DateOf(asOf))
}

// RepaymentsLeft counts calendar months between today and the end date.
func (l *Loan) RepaymentsLeft(today time.Time) int {
	today = DateOf(today)
	end := DateOf(l.EndDate)
	if today.After(end) {
		return 0
	}
	months := (end.Year()-today.Year())*12 + int(end.Month()) - int(today.Month())
	return max(0, months)
}

// DateOf truncates t to midnight UTC of its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds whole months, clamping the day to the end of the target month
// (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	total := int(m) - 1 + months
	y += total / 12
	mo := total % 12
	if mo < 0 {
		mo += 12
		y--
	}
	target := time.Month(mo + 1)
	if last := daysIn(y, target); day > last {
		day = last
	}
	return time.Date(y, target, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
