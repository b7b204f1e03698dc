package loan

import (
	"math"

	"loan-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// MonthlyInstallment returns the amortized monthly payment for principal at
// annualRatePercent over tenureMonths, rounded half-up to cents.
func MonthlyInstallment(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	if tenureMonths <= 0 {
		return decimal.Zero
	}
	p := principal.InexactFloat64()
	r := annualRatePercent.InexactFloat64() / 1200
	n := float64(tenureMonths)

	if r == 0 {
		return money.RoundCents(money.FromFloat(p / n))
	}

	growth := math.Pow(1+r, n)
	emi := p * r * growth / (growth - 1)
	return money.RoundCents(money.FromFloat(emi))
}

// TotalRepayment sums the monthly repayment of every loan.
func TotalRepayment(loans []Loan) decimal.Decimal {
	total := decimal.Zero
	for i := range loans {
		total = total.Add(loans[i].MonthlyRepayment)
	}
	return total
}
