package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

// DateLayout is the date format used by every feed
const DateLayout = "2006-01-02"

// SpecialEntry is a city override inside a lump sum entry
type SpecialEntry struct {
	City       string  `json:"city"`
	Catering8  float64 `json:"catering8"`
	Catering24 float64 `json:"catering24"`
	Overnight  float64 `json:"overnight"`
}

// LumpSumEntry is one dated lump sum table of a country as published
type LumpSumEntry struct {
	CountryCode string         `json:"countryCode"`
	ValidFrom   string         `json:"validFrom"`
	Catering8   float64        `json:"catering8"`
	Catering24  float64        `json:"catering24"`
	Overnight   float64        `json:"overnight"`
	Specials    []SpecialEntry `json:"specials,omitempty"`
}

// Set converts the entry into a validated lump sum set
func (e LumpSumEntry) Set() (string, entity.LumpSumSet, error) {
	code := utils.NormalizeCode(e.CountryCode)
	if err := utils.ValidateCountryCode(code); err != nil {
		return "", entity.LumpSumSet{}, err
	}
	validFrom, err := time.Parse(DateLayout, strings.TrimSpace(e.ValidFrom))
	if err != nil {
		return "", entity.LumpSumSet{}, fmt.Errorf("%s: invalid validFrom %q", code, e.ValidFrom)
	}
	set := entity.LumpSumSet{
		ValidFrom:    validFrom,
		LumpSumRates: entity.LumpSumRates{Catering8: e.Catering8, Catering24: e.Catering24, Overnight: e.Overnight},
	}
	if err := validateRates(set.LumpSumRates); err != nil {
		return "", entity.LumpSumSet{}, fmt.Errorf("%s %s: %w", code, e.ValidFrom, err)
	}
	for _, sp := range e.Specials {
		city := strings.TrimSpace(sp.City)
		if city == "" {
			return "", entity.LumpSumSet{}, fmt.Errorf("%s %s: special without city", code, e.ValidFrom)
		}
		rates := entity.LumpSumRates{Catering8: sp.Catering8, Catering24: sp.Catering24, Overnight: sp.Overnight}
		if err := validateRates(rates); err != nil {
			return "", entity.LumpSumSet{}, fmt.Errorf("%s %s %s: %w", code, e.ValidFrom, city, err)
		}
		set.Specials = append(set.Specials, entity.SpecialLumpSum{City: city, LumpSumRates: rates})
	}
	return code, set, nil
}

func validateRates(r entity.LumpSumRates) error {
	for _, v := range []float64{r.Catering8, r.Catering24, r.Overnight} {
		if err := utils.ValidateAmount(v); err != nil {
			return err
		}
	}
	return nil
}

// ParseLumpSumsJSON reads a JSON array of lump sum entries
func ParseLumpSumsJSON(r io.Reader) ([]LumpSumEntry, error) {
	var entries []LumpSumEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode lump sums: %w", err)
	}
	return entries, nil
}

// xlsxColumns is the header row of a lump sum workbook
var xlsxColumns = []string{"countryCode", "validFrom", "catering8", "catering24", "overnight", "specialCity"}

// ParseLumpSumsXLSX reads the first sheet of a lump sum workbook. Rows with
// a specialCity belong to the country row with the same code and date.
func ParseLumpSumsXLSX(r io.Reader) ([]LumpSumEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	var (
		entries []LumpSumEntry
		index   = make(map[string]int)
		pending []pendingSpecial
	)
	for i, row := range rows[1:] {
		line := i + 2
		cells := make([]string, len(xlsxColumns))
		copy(cells, row)
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			continue
		}

		code := utils.NormalizeCode(cells[0])
		validFrom, err := cellDate(f, sheets[0], line, cells[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		var amounts [3]float64
		for j := range amounts {
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(cells[2+j], ",", ".")), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid %s %q", line, xlsxColumns[2+j], cells[2+j])
			}
			amounts[j] = v
		}

		key := code + "|" + validFrom
		if city := strings.TrimSpace(cells[5]); city != "" {
			pending = append(pending, pendingSpecial{key: key, line: line, special: SpecialEntry{
				City: city, Catering8: amounts[0], Catering24: amounts[1], Overnight: amounts[2],
			}})
			continue
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("row %d: duplicate entry for %s %s", line, code, validFrom)
		}
		index[key] = len(entries)
		entries = append(entries, LumpSumEntry{
			CountryCode: code, ValidFrom: validFrom,
			Catering8: amounts[0], Catering24: amounts[1], Overnight: amounts[2],
		})
	}

	for _, p := range pending {
		i, ok := index[p.key]
		if !ok {
			return nil, fmt.Errorf("row %d: special %s without country row", p.line, p.special.City)
		}
		entries[i].Specials = append(entries[i].Specials, p.special)
	}
	return entries, nil
}

type pendingSpecial struct {
	key     string
	line    int
	special SpecialEntry
}

func checkHeader(header []string) error {
	for i, want := range xlsxColumns[:5] {
		if i >= len(header) || !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("unexpected header, want %s", strings.Join(xlsxColumns, " | "))
		}
	}
	return nil
}

// cellDate accepts ISO dates and spreadsheet serial dates
func cellDate(f *excelize.File, sheet string, line int, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(DateLayout, raw); err == nil {
		return raw, nil
	}
	cell, _ := excelize.CoordinatesToCellName(2, line)
	if v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true}); err == nil {
		if serial, err := strconv.ParseFloat(v, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return t.Format(DateLayout), nil
			}
		}
	}
	return "", fmt.Errorf("invalid validFrom %q", raw)
}

// GroupByCountry converts entries into sets keyed by country code
func GroupByCountry(entries []LumpSumEntry) (map[string][]entity.LumpSumSet, error) {
	out := make(map[string][]entity.LumpSumSet)
	for _, e := range entries {
		code, set, err := e.Set()
		if err != nil {
			return nil, err
		}
		out[code] = append(out[code], set)
	}
	for _, sets := range out {
		sort.Slice(sets, func(i, j int) bool { return sets[i].ValidFrom.Before(sets[j].ValidFrom) })
	}
	return out, nil
}
