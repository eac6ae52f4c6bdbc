// Package lumpsum resolves per-diem rates and computes the refunds of a trip.
package lumpsum

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// ErrDelegationCycle is returned when countries delegate their lump sums in a loop.
var ErrDelegationCycle = errors.New("lump sum delegation cycle")

// Table is an in-memory country lookup.
type Table struct {
	countries map[string]*entity.Country
	fallback  string
}

// NewTable indexes countries by code. fallback names the country used when a
// country has no set valid at the queried date.
func NewTable(countries []*entity.Country, fallback string) *Table {
	m := make(map[string]*entity.Country, len(countries))
	for _, c := range countries {
		m[c.Code] = c
	}
	return &Table{countries: m, fallback: fallback}
}

// Country returns a country by code.
func (t *Table) Country(code string) (*entity.Country, bool) {
	c, ok := t.countries[code]
	return c, ok
}

// Rates returns the rates for a country and optional special city at date.
func (t *Table) Rates(code, special string, date time.Time) (entity.LumpSumRates, error) {
	set, err := t.resolve(code, date)
	if errors.Is(err, errNoValidSet) && t.fallback != "" && t.fallback != code {
		// the special city belongs to the original country only
		set, err = t.resolve(t.fallback, date)
		special = ""
	}
	if err != nil {
		return entity.LumpSumRates{}, err
	}
	return set.RatesFor(special), nil
}

var errNoValidSet = errors.New("no lump sums valid at date")

func (t *Table) resolve(code string, date time.Time) (entity.LumpSumSet, error) {
	visited := make(map[string]bool)
	for {
		if visited[code] {
			return entity.LumpSumSet{}, fmt.Errorf("%w at %s", ErrDelegationCycle, code)
		}
		visited[code] = true

		c, ok := t.countries[code]
		if !ok {
			return entity.LumpSumSet{}, &entity.NotFoundError{Entity: "country", ID: code}
		}
		if c.LumpSumsFrom != "" {
			code = c.LumpSumsFrom
			continue
		}
		set, ok := c.LumpSumsAt(date)
		if !ok {
			return entity.LumpSumSet{}, fmt.Errorf("%w: %s on %s", errNoValidSet, code, date.Format("2006-01-02"))
		}
		return set, nil
	}
}
