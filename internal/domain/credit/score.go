// Package credit derives a customer's credit score from loan history and maps
// it to the minimum interest rate the customer may borrow at.
package credit

import (
	"math"
	"time"

	"loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

const (
	NeutralScore      = 50.0
	OverextendedScore = 0.0
	MaxScore          = 100.0

	onTimeWeight   = 40.0
	countWeight    = 20.0
	countPenalty   = 2.0
	activityWeight = 20.0
	activityPoints = 5.0
	volumeWeight   = 20.0
)

type Kind int

const (
	// Neutral is returned for customers with no loan history.
	Neutral Kind = iota
	// Overextended is returned when summed loan amounts exceed the approved limit.
	Overextended
	Computed
)

func (k Kind) String() string {
	switch k {
	case Neutral:
		return "neutral"
	case Overextended:
		return "overextended"
	case Computed:
		return "computed"
	default:
		return "unknown"
	}
}

// Result is the outcome of scoring. Value is meaningful only for Computed.
type Result struct {
	Kind  Kind
	Value float64
}

func (r Result) Float64() float64 {
	switch r.Kind {
	case Neutral:
		return NeutralScore
	case Overextended:
		return OverextendedScore
	default:
		return r.Value
	}
}

// Components breaks a computed score into its weighted parts.
type Components struct {
	OnTime   float64
	Count    float64
	Activity float64
	Volume   float64
}

func (c Components) Total() float64 {
	return clamp(c.OnTime+c.Count+c.Activity+c.Volume, 0, MaxScore)
}

// Calculate scores a customer's loan history against their approved limit.
// now determines the current calendar year for the activity component.
func Calculate(approvedLimit decimal.Decimal, loans []loan.Loan, now time.Time) Result {
	if len(loans) == 0 {
		return Result{Kind: Neutral}
	}

	totalAmount := decimal.Zero
	for i := range loans {
		totalAmount = totalAmount.Add(loans[i].LoanAmount)
	}
	if totalAmount.GreaterThan(approvedLimit) {
		return Result{Kind: Overextended}
	}

	return Result{Kind: Computed, Value: ScoreComponents(approvedLimit, totalAmount, loans, now).Total()}
}

// ScoreComponents computes the four weighted parts without the overextension override.
func ScoreComponents(approvedLimit, totalAmount decimal.Decimal, loans []loan.Loan, now time.Time) Components {
	var totalTenure, totalOnTime, currentYear int
	year := now.Year()
	for i := range loans {
		totalTenure += loans[i].Tenure
		totalOnTime += loans[i].EMIsPaidOnTime
		if loans[i].StartDate.Year() == year {
			currentYear++
		}
	}

	onTimeRatio := float64(totalOnTime) / float64(max(totalTenure, 1))

	return Components{
		OnTime:   math.Min(onTimeWeight, onTimeRatio*onTimeWeight),
		Count:    math.Max(0, countWeight-countPenalty*float64(len(loans))),
		Activity: math.Min(activityWeight, activityPoints*float64(currentYear)),
		Volume:   volumeRatio(totalAmount, approvedLimit) * volumeWeight,
	}
}

func volumeRatio(total, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		if total.IsPositive() {
			return 1
		}
		return 0
	}
	return math.Min(1, total.InexactFloat64()/limit.InexactFloat64())
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
