package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

// CountryEntry is one country of a country feed
type CountryEntry struct {
	Code         string            `json:"code"`
	Names        map[string]string `json:"names"`
	Aliases      []string          `json:"aliases,omitempty"`
	Currency     string            `json:"currency"`
	LumpSumsFrom string            `json:"lumpSumsFrom,omitempty"`
}

// Country converts the entry into a country without lump sums
func (e CountryEntry) Country() (*entity.Country, error) {
	c := &entity.Country{
		Code:         utils.NormalizeCode(e.Code),
		Names:        e.Names,
		Aliases:      e.Aliases,
		Currency:     utils.NormalizeCode(e.Currency),
		LumpSumsFrom: utils.NormalizeCode(e.LumpSumsFrom),
	}
	if err := utils.ValidateCountryCode(c.Code); err != nil {
		return nil, err
	}
	if c.Currency != "" {
		if err := utils.ValidateCurrencyCode(c.Currency); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Code, err)
		}
	}
	if c.LumpSumsFrom != "" {
		if err := utils.ValidateCountryCode(c.LumpSumsFrom); err != nil {
			return nil, fmt.Errorf("%s: lumpSumsFrom: %w", c.Code, err)
		}
		if c.LumpSumsFrom == c.Code {
			return nil, fmt.Errorf("%s: lumpSumsFrom points at itself", c.Code)
		}
	}
	return c, nil
}

// ParseCountriesJSON reads a JSON array of countries
func ParseCountriesJSON(r io.Reader) ([]CountryEntry, error) {
	var entries []CountryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode countries: %w", err)
	}
	return entries, nil
}
