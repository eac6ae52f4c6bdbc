package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

const monthLayout = "2006-01"

// RateRepository caches monthly exchange rates
type RateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *sql.DB, logger *zap.Logger) *RateRepository {
	return &RateRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the units of currency per euro for a month
func (r *RateRepository) Get(ctx context.Context, currency string, month time.Time) (float64, bool, error) {
	var perEuro float64
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT per_euro FROM exchange_rates WHERE currency = ? AND month = ?`,
		currency, month.Format(monthLayout),
	).Scan(&perEuro)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rate: %w", err)
	}
	return perEuro, true, nil
}

// SaveMonth stores all rates of a month, replacing existing values
func (r *RateRepository) SaveMonth(ctx context.Context, month time.Time, perEuro map[string]float64) error {
	exec := r.getExecutor(ctx)
	key := month.Format(monthLayout)
	for currency, v := range perEuro {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO exchange_rates (currency, month, per_euro) VALUES (?, ?, ?)
			ON CONFLICT(currency, month) DO UPDATE SET per_euro = excluded.per_euro
		`, currency, key, v)
		if err != nil {
			r.logger.Error("Failed to save rate",
				zap.String("currency", currency),
				zap.String("month", key),
				zap.Error(err))
			return fmt.Errorf("failed to save rate: %w", err)
		}
	}
	return nil
}

func (r *RateRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.RateRepository = (*RateRepository)(nil)
