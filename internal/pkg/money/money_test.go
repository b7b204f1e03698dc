package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundCents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8884.8826", "8884.88"},
		{"0.125", "0.13"},
		{"0.124", "0.12"},
		{"100", "100"},
		{"9999.995", "10000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundCents(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestRoundToLakh(t *testing.T) {
	tests := []struct {
		name string
		in   decimal.Decimal
		want int64
	}{
		{"36 times 60000", decimal.NewFromInt(36 * 60000), 2200000},
		{"exact half rounds up", decimal.NewFromInt(150000), 200000},
		{"below half rounds down", decimal.NewFromInt(149999), 100000},
		{"small salary", decimal.NewFromInt(36 * 1000), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, RoundToLakh(tt.in).Equal(decimal.NewFromInt(tt.want)))
		})
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(50000), decimal.NewFromInt(50))
	assert.True(t, got.Equal(decimal.NewFromInt(25000)))
}

func TestFromFloatKeepsShortestForm(t *testing.T) {
	assert.Equal(t, "0.125", FromFloat(0.125).String())
	assert.Equal(t, "0.13", RoundCents(FromFloat(0.125)).String())
}

func TestSum(t *testing.T) {
	got := Sum(decimal.NewFromInt(1), decimal.RequireFromString("2.5"), decimal.Zero)
	assert.Equal(t, "3.5", got.String())
	assert.True(t, Sum().IsZero())
}
