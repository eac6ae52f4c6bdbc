package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

// RateFile is an offline copy of one month of rates quoted per euro
type RateFile struct {
	Month string             `json:"month"` // 2006-01
	Rates map[string]float64 `json:"rates"`
}

// ParseRatesJSON reads and validates a rate file
func ParseRatesJSON(r io.Reader) (time.Time, map[string]float64, error) {
	var file RateFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	month, err := time.Parse("2006-01", file.Month)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid month %q", file.Month)
	}

	rates := make(map[string]float64, len(file.Rates))
	for code, v := range file.Rates {
		code = utils.NormalizeCode(code)
		if err := utils.ValidateCurrencyCode(code); err != nil {
			return time.Time{}, nil, err
		}
		if v <= 0 {
			return time.Time{}, nil, fmt.Errorf("%s: rate must be positive", code)
		}
		rates[code] = v
	}
	return month, rates, nil
}
