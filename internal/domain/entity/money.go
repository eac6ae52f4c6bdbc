package entity

import "time"

// ExchangeRate records the conversion of a Money value into base currency.
type ExchangeRate struct {
	Date   time.Time `json:"date"`
	Rate   float64   `json:"rate"`
	Amount float64   `json:"amount"`
}

// Money is an amount in some currency, optionally converted to base currency.
type Money struct {
	Amount       float64       `json:"amount"`
	Currency     string        `json:"currency"`
	ExchangeRate *ExchangeRate `json:"exchangeRate,omitempty"`
	// Warning is set when no exchange rate could be resolved.
	Warning string `json:"warning,omitempty"`
}

// NeedsConversion reports whether the value must carry an exchange rate.
func (m Money) NeedsConversion(base string) bool {
	return m.Amount > 0 && m.Currency != "" && m.Currency != base
}

// BaseAmount returns the value in base currency. ok is false when the value is
// in a foreign currency and was never converted.
func (m Money) BaseAmount(base string) (amount float64, ok bool) {
	if m.ExchangeRate != nil {
		return m.ExchangeRate.Amount, true
	}
	if m.NeedsConversion(base) {
		return 0, false
	}
	return m.Amount, true
}
