package currency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
)

const euro = "EUR"

// MonthlyRateProvider resolves rates from the monthly cache, filling it from
// the remote source on a miss.
type MonthlyRateProvider struct {
	repo   port.RateRepository
	source port.RateSource
	base   string
	logger *zap.Logger

	mu      sync.Mutex
	fetched map[string]bool
}

// NewMonthlyRateProvider creates a provider. source may be nil for offline
// deployments that import rates manually.
func NewMonthlyRateProvider(repo port.RateRepository, source port.RateSource, base string, logger *zap.Logger) *MonthlyRateProvider {
	return &MonthlyRateProvider{
		repo:    repo,
		source:  source,
		base:    base,
		logger:  logger,
		fetched: make(map[string]bool),
	}
}

// MonthOf truncates t to the first day of its month in UTC.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Rate returns base currency per unit of currency. Rates are quoted per euro,
// so non-euro bases use the cross rate.
func (p *MonthlyRateProvider) Rate(ctx context.Context, currency string, date time.Time) (float64, bool, error) {
	month := MonthOf(date)

	perEuro, ok, err := p.perEuro(ctx, currency, month)
	if err != nil || !ok {
		return 0, false, err
	}
	basePerEuro, ok, err := p.perEuro(ctx, p.base, month)
	if err != nil || !ok {
		return 0, false, err
	}
	if perEuro == 0 {
		return 0, false, nil
	}
	return basePerEuro / perEuro, true, nil
}

func (p *MonthlyRateProvider) perEuro(ctx context.Context, currency string, month time.Time) (float64, bool, error) {
	if currency == euro {
		return 1, true, nil
	}

	v, ok, err := p.repo.Get(ctx, currency, month)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cached rate: %w", err)
	}
	if ok {
		return v, true, nil
	}

	if err := p.fetch(ctx, month); err != nil {
		return 0, false, err
	}
	return p.repo.Get(ctx, currency, month)
}

// fetch loads a month from the remote source at most once per process.
func (p *MonthlyRateProvider) fetch(ctx context.Context, month time.Time) error {
	if p.source == nil {
		return nil
	}
	key := month.Format("2006-01")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetched[key] {
		return nil
	}

	rates, err := p.source.MonthlyRates(ctx, month)
	if err != nil {
		return fmt.Errorf("failed to fetch rates for %s: %w", key, err)
	}
	if err := p.repo.SaveMonth(ctx, month, rates); err != nil {
		return fmt.Errorf("failed to cache rates for %s: %w", key, err)
	}
	p.fetched[key] = true

	p.logger.Info("Cached monthly exchange rates",
		zap.String("month", key),
		zap.Int("currencies", len(rates)))
	return nil
}
