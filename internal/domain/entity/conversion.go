package entity

import "time"

// ConversionResult represents a completed currency conversion. Created
// fresh on every conversion; never mutated or persisted by this subsystem.
type ConversionResult struct {
	Amount    float64   `json:"amount"`
	Converted float64   `json:"converted"`
	Rate      float64   `json:"rate"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	Estimated bool      `json:"estimated"`
}

// IdentityConversion builds the result for a same-currency conversion.
func IdentityConversion(amount float64, code string, date time.Time) *ConversionResult {
	return &ConversionResult{
		Amount:    amount,
		Converted: amount,
		Rate:      1,
		From:      code,
		To:        code,
		Date:      date,
		Source:    SourceIdentity,
	}
}
