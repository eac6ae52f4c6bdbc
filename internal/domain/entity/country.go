package entity

import (
	"sort"
	"strings"
	"time"
)

// LumpSumRates are the three per-diem amounts of a country or special city.
type LumpSumRates struct {
	Catering8  float64 `json:"catering8"`
	Catering24 float64 `json:"catering24"`
	Overnight  float64 `json:"overnight"`
}

// For returns the rate for a refund type.
func (r LumpSumRates) For(t RefundType) float64 {
	switch t {
	case RefundCatering8:
		return r.Catering8
	case RefundCatering24:
		return r.Catering24
	case RefundOvernight:
		return r.Overnight
	}
	return 0
}

// SpecialLumpSum overrides the country rates for one city.
type SpecialLumpSum struct {
	City string `json:"city"`
	LumpSumRates
}

// LumpSumSet is the table of rates effective from ValidFrom.
type LumpSumSet struct {
	ValidFrom time.Time `json:"validFrom"`
	LumpSumRates
	Specials []SpecialLumpSum `json:"specials,omitempty"`
}

// RatesFor returns the special override for city if present, else the country rates.
func (s LumpSumSet) RatesFor(city string) LumpSumRates {
	if city != "" {
		for _, sp := range s.Specials {
			if strings.EqualFold(sp.City, city) {
				return sp.LumpSumRates
			}
		}
	}
	return s.LumpSumRates
}

// Country holds localized names and the dated lump sum tables.
type Country struct {
	Code     string            `json:"code"`
	Names    map[string]string `json:"names,omitempty"`
	Aliases  []string          `json:"aliases,omitempty"`
	Currency string            `json:"currency,omitempty"`
	// LumpSumsFrom delegates the lump sum lookup to another country.
	LumpSumsFrom string       `json:"lumpSumsFrom,omitempty"`
	LumpSums     []LumpSumSet `json:"lumpSums,omitempty"`
}

// LumpSumsAt returns the most recent set whose ValidFrom does not exceed date.
func (c *Country) LumpSumsAt(date time.Time) (LumpSumSet, bool) {
	var (
		best  LumpSumSet
		found bool
	)
	for _, set := range c.LumpSums {
		if set.ValidFrom.After(date) {
			continue
		}
		if !found || set.ValidFrom.After(best.ValidFrom) {
			best = set
			found = true
		}
	}
	return best, found
}

// UpsertLumpSums replaces the set with the same ValidFrom or adds it, keeping
// the list ordered by ValidFrom.
func (c *Country) UpsertLumpSums(set LumpSumSet) {
	replaced := false
	for i := range c.LumpSums {
		if c.LumpSums[i].ValidFrom.Equal(set.ValidFrom) {
			c.LumpSums[i] = set
			replaced = true
			break
		}
	}
	if !replaced {
		c.LumpSums = append(c.LumpSums, set)
	}
	sort.SliceStable(c.LumpSums, func(i, j int) bool {
		return c.LumpSums[i].ValidFrom.Before(c.LumpSums[j].ValidFrom)
	})
}

// Name returns the localized name, falling back to the code.
func (c *Country) Name(lang string) string {
	if n, ok := c.Names[lang]; ok && n != "" {
		return n
	}
	return c.Code
}

// Project groups reports for budgeting and approval scope.
type Project struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}
