package customer

import (
	"strings"
	"time"

	"loan-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

const (
	MinAge = 18
	MaxAge = 100

	// approvedLimitMultiplier is applied to monthly salary before rounding to a lakh.
	approvedLimitMultiplier = 36
)

type Customer struct {
	ID            int64           `json:"customerId"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Age           int             `json:"age"`
	PhoneNumber   int64           `json:"phoneNumber"`
	MonthlySalary decimal.Decimal `json:"monthlySalary"`
	ApprovedLimit decimal.Decimal `json:"approvedLimit"`
	CurrentDebt   decimal.Decimal `json:"currentDebt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DebtAdjustment is applied to a customer's current debt inside the
// transaction that creates the loan it accounts for. A positive MaxMonthlyEMI
// caps the customer's active EMIs, the new loan's included, under the row lock.
type DebtAdjustment struct {
	CustomerID    int64
	Delta         decimal.Decimal
	MaxMonthlyEMI decimal.Decimal
}

// ApprovedLimitFor returns round_to_lakh(36 * monthlySalary).
func ApprovedLimitFor(monthlySalary decimal.Decimal) decimal.Decimal {
	return money.RoundToLakh(monthlySalary.Mul(decimal.NewFromInt(approvedLimitMultiplier)))
}

func NewCustomer(firstName, lastName string, age int, phoneNumber int64, monthlySalary decimal.Decimal) *Customer {
	now := time.Now()
	return &Customer{
		FirstName:     strings.TrimSpace(firstName),
		LastName:      strings.TrimSpace(lastName),
		Age:           age,
		PhoneNumber:   phoneNumber,
		MonthlySalary: monthlySalary,
		ApprovedLimit: ApprovedLimitFor(monthlySalary),
		CurrentDebt:   decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
