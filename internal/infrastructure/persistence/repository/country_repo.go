package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

// CountryRepository implements port.CountryRepository
type CountryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCountryRepository creates a new country repository
func NewCountryRepository(db *sql.DB, logger *zap.Logger) *CountryRepository {
	return &CountryRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces a country
func (r *CountryRepository) Upsert(ctx context.Context, country *entity.Country) error {
	doc, err := json.Marshal(country)
	if err != nil {
		return fmt.Errorf("failed to encode country: %w", err)
	}

	query := `
		INSERT INTO countries (code, currency, lump_sums_from, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			currency = excluded.currency,
			lump_sums_from = excluded.lump_sums_from,
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		country.Code,
		country.Currency,
		country.LumpSumsFrom,
		string(doc),
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert country", zap.String("code", country.Code), zap.Error(err))
		return fmt.Errorf("failed to upsert country: %w", err)
	}
	return nil
}

// GetByCode retrieves a country
func (r *CountryRepository) GetByCode(ctx context.Context, code string) (*entity.Country, error) {
	var doc string
	err := r.getExecutor(ctx).QueryRowContext(ctx, `SELECT document FROM countries WHERE code = ?`, code).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "country", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get country: %w", err)
	}

	var c entity.Country
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("failed to decode country: %w", err)
	}
	return &c, nil
}

// List returns all countries ordered by code
func (r *CountryRepository) List(ctx context.Context) ([]*entity.Country, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT document FROM countries ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer rows.Close()

	var countries []*entity.Country
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		var c entity.Country
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("failed to decode country: %w", err)
		}
		countries = append(countries, &c)
	}
	return countries, rows.Err()
}

// Delete removes a country
func (r *CountryRepository) Delete(ctx context.Context, code string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM countries WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete country: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &entity.NotFoundError{Entity: "country", ID: code}
	}
	return nil
}

func (r *CountryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.CountryRepository = (*CountryRepository)(nil)
