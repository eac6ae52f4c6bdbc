package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/lumpsum"
)

// CountryService maintains countries and their lump sum tables
type CountryService interface {
	ImportCountries(ctx context.Context, countries []*entity.Country) (int, error)
	ImportLumpSums(ctx context.Context, sets map[string][]entity.LumpSumSet) (int, error)
	Get(ctx context.Context, code string) (*entity.Country, error)
	List(ctx context.Context) ([]*entity.Country, error)
	Delete(ctx context.Context, code string) error
	Table(ctx context.Context) (*lumpsum.Table, error)
}

type countryServiceImpl struct {
	countries port.CountryRepository
	reports   port.ReportRepository
	txManager port.TransactionManager
	fallback  string
	logger    Logger
}

// NewCountryService creates a new CountryService
func NewCountryService(
	countries port.CountryRepository,
	reports port.ReportRepository,
	txManager port.TransactionManager,
	fallback string,
	logger Logger,
) CountryService {
	return &countryServiceImpl{
		countries: countries,
		reports:   reports,
		txManager: txManager,
		fallback:  fallback,
		logger:    logger,
	}
}

// ImportCountries upserts country master data and keeps their lump sums
func (s *countryServiceImpl) ImportCountries(ctx context.Context, countries []*entity.Country) (int, error) {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, c := range countries {
			existing, err := s.countries.GetByCode(txCtx, c.Code)
			switch {
			case err == nil:
				c.LumpSums = existing.LumpSums
			case !entity.IsNotFound(err):
				return err
			}
			if err := s.countries.Upsert(txCtx, c); err != nil {
				return fmt.Errorf("country %s: %w", c.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Countries imported", "count", len(countries))
	return len(countries), nil
}

// ImportLumpSums merges dated lump sum sets into their countries. A set with
// the same validFrom replaces the stored one.
func (s *countryServiceImpl) ImportLumpSums(ctx context.Context, sets map[string][]entity.LumpSumSet) (int, error) {
	imported := 0
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for code, list := range sets {
			c, err := s.countries.GetByCode(txCtx, code)
			if err != nil {
				if entity.IsNotFound(err) {
					return &entity.ValidationError{Field: "countryCode", Message: fmt.Sprintf("unknown country %s", code)}
				}
				return err
			}
			for _, set := range list {
				c.UpsertLumpSums(set)
				imported++
			}
			if err := s.countries.Upsert(txCtx, c); err != nil {
				return fmt.Errorf("country %s: %w", code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Lump sums imported", "countries", len(sets), "sets", imported)
	return imported, nil
}

func (s *countryServiceImpl) Get(ctx context.Context, code string) (*entity.Country, error) {
	return s.countries.GetByCode(ctx, code)
}

func (s *countryServiceImpl) List(ctx context.Context) ([]*entity.Country, error) {
	return s.countries.List(ctx)
}

// Delete refuses countries still used by live reports or delegated to by
// another country
func (s *countryServiceImpl) Delete(ctx context.Context, code string) error {
	n, err := s.reports.CountReferences(ctx, entity.RefCountry, code)
	if err != nil {
		return err
	}
	if n > 0 {
		return &entity.ReferentialIntegrityError{Entity: "country", ID: code, Count: n}
	}
	all, err := s.countries.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.LumpSumsFrom == code {
			return &entity.NotAllowedError{Reason: fmt.Sprintf("country %s uses the lump sums of %s", c.Code, code)}
		}
	}
	if err := s.countries.Delete(ctx, code); err != nil {
		return err
	}
	s.logger.Info("Country deleted", "code", code)
	return nil
}

// Table loads the lookup table used by the lump sum calculator
func (s *countryServiceImpl) Table(ctx context.Context) (*lumpsum.Table, error) {
	all, err := s.countries.List(ctx)
	if err != nil {
		return nil, err
	}
	return lumpsum.NewTable(all, s.fallback), nil
}
