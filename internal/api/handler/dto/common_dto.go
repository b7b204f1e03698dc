package dto

import "github.com/shopspring/decimal"

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Amount renders money and rates with exactly two decimal places.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
