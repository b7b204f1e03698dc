package credit

import "github.com/shopspring/decimal"

// Band groups scores that share a minimum interest rate.
type Band int

const (
	BandIneligible Band = iota // score <= 10
	BandSubprime               // 10 < score <= 30
	BandStandard               // 30 < score <= 50
	BandPrime                  // score > 50
)

var (
	subprimeFloor = decimal.NewFromInt(16)
	standardFloor = decimal.NewFromInt(12)
)

func BandFor(score float64) Band {
	switch {
	case score > 50:
		return BandPrime
	case score > 30:
		return BandStandard
	case score > 10:
		return BandSubprime
	default:
		return BandIneligible
	}
}

func (b Band) String() string {
	switch b {
	case BandPrime:
		return "prime"
	case BandStandard:
		return "standard"
	case BandSubprime:
		return "subprime"
	default:
		return "ineligible"
	}
}

// MinimumRate is the lowest annual rate the band may borrow at. Ineligible
// has no floor since it is rejected before rates matter.
func (b Band) MinimumRate() (decimal.Decimal, bool) {
	switch b {
	case BandPrime:
		return decimal.Zero, true
	case BandStandard:
		return standardFloor, true
	case BandSubprime:
		return subprimeFloor, true
	default:
		return decimal.Decimal{}, false
	}
}

// CorrectedRate raises requested to the band's floor.
func CorrectedRate(score float64, requested decimal.Decimal) decimal.Decimal {
	floor, ok := BandFor(score).MinimumRate()
	if !ok {
		return requested
	}
	return decimal.Max(requested, floor)
}
