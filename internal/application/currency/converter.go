// Package currency attaches base currency conversions to monetary values.
package currency

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/money"
)

// Converter converts foreign amounts into the base currency.
type Converter struct {
	rates  port.RateProvider
	base   string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Converter
type Option func(*Converter)

// WithClock overrides the clock used to clamp future dates.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// NewConverter creates a converter for the base currency.
func NewConverter(rates port.RateProvider, base string, logger *zap.Logger, opts ...Option) *Converter {
	c := &Converter{rates: rates, base: base, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert returns m with its exchange rate resolved for date. A missing rate
// leaves ExchangeRate nil and records a warning; it is never an error.
func (c *Converter) Convert(ctx context.Context, m entity.Money, date time.Time) entity.Money {
	m.ExchangeRate = nil
	m.Warning = ""
	if !m.NeedsConversion(c.base) {
		return m
	}

	if now := c.now(); date.IsZero() || date.After(now) {
		date = now
	}

	rate, ok, err := c.rates.Rate(ctx, m.Currency, date)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("Exchange rate lookup failed",
				zap.String("currency", m.Currency),
				zap.Time("date", date),
				zap.Error(err))
		}
		m.Warning = fmt.Sprintf("no exchange rate for %s on %s", m.Currency, date.Format("2006-01-02"))
		return m
	}

	m.ExchangeRate = &entity.ExchangeRate{
		Date:   date,
		Rate:   rate,
		Amount: money.Mul(m.Amount, rate),
	}
	return m
}
