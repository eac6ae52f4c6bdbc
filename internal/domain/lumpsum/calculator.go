package lumpsum

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/money"
)

// Calculator computes catering, overnight and distance refunds.
type Calculator struct {
	table    *Table
	settings entity.Settings
}

// NewCalculator creates a calculator over a country table.
func NewCalculator(table *Table, settings entity.Settings) *Calculator {
	return &Calculator{table: table, settings: settings}
}

// Calculate returns a copy of the trip's days with refunds filled in. Days
// that are not professional get no refunds.
func (c *Calculator) Calculate(trip *entity.TripDetails) ([]entity.TravelDay, error) {
	days := make([]entity.TravelDay, len(trip.Days))
	copy(days, trip.Days)

	spouse := decimal.NewFromInt(1)
	if c.settings.AllowSpouseRefund && trip.ClaimSpouseRefund {
		spouse = decimal.NewFromInt(2)
	}

	for i := range days {
		day := &days[i]
		day.Refunds = nil
		if day.Purpose != entity.PurposeProfessional {
			continue
		}

		rates, err := c.table.Rates(day.Country, day.Special, day.Date)
		if err != nil {
			return nil, fmt.Errorf("lump sums for %s on %s: %w", day.Country, day.Date.Format("2006-01-02"), err)
		}

		typ := entity.RefundCatering24
		if i == 0 || i == len(days)-1 {
			typ = entity.RefundCatering8
		}
		amount := money.Dec(rates.For(typ)).
			Mul(c.leftover(day.CateringNoRefund)).
			Mul(money.Dec(c.settings.CateringFactor.For(day.Country))).
			Mul(spouse)
		day.Refunds = append(day.Refunds, c.refund(typ, amount))
	}

	if trip.ClaimOvernightLumpSum {
		if err := c.overnight(trip.Stages, days, spouse); err != nil {
			return nil, err
		}
	}
	return days, nil
}

// overnight grants the overnight lump sum for every professional day but the
// last, unless the following midnight is spent in transit on a stage.
func (c *Calculator) overnight(stages []entity.Stage, days []entity.TravelDay, spouse decimal.Decimal) error {
	if len(stages) == 0 {
		return nil
	}
	loc := c.settings.Loc()
	stageIdx := 0
	for i := 0; i < len(days)-1; i++ {
		day := &days[i]
		midnight := day.Date.In(loc).AddDate(0, 0, 1)
		for stageIdx < len(stages)-1 && midnight.After(stages[stageIdx].Arrival) {
			stageIdx++
		}
		if day.Purpose != entity.PurposeProfessional {
			continue
		}
		st := stages[stageIdx]
		if midnight.After(st.Departure) && st.Arrival.After(midnight) {
			continue
		}

		rates, err := c.table.Rates(day.Country, day.Special, day.Date)
		if err != nil {
			return fmt.Errorf("overnight lump sum for %s on %s: %w", day.Country, day.Date.Format("2006-01-02"), err)
		}
		amount := money.Dec(rates.Overnight).
			Mul(money.Dec(c.settings.OvernightFactor.For(day.Country))).
			Mul(spouse)
		day.Refunds = append(day.Refunds, c.refund(entity.RefundOvernight, amount))
	}
	return nil
}

// leftover is the share of a catering lump sum remaining after meal cuts.
func (c *Calculator) leftover(noRefund entity.Meals) decimal.Decimal {
	left := decimal.NewFromInt(1)
	cuts := c.settings.MealCuts
	if noRefund.Breakfast {
		left = left.Sub(money.Dec(cuts.Breakfast))
	}
	if noRefund.Lunch {
		left = left.Sub(money.Dec(cuts.Lunch))
	}
	if noRefund.Dinner {
		left = left.Sub(money.Dec(cuts.Dinner))
	}
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

func (c *Calculator) refund(typ entity.RefundType, amount decimal.Decimal) entity.Refund {
	return entity.Refund{
		Type: typ,
		Refund: entity.Money{
			Amount:   money.Float(money.Round(amount)),
			Currency: c.settings.BaseCurrency,
		},
	}
}

// DistanceRefund is the base currency cost of an own car stage. ok is false
// for other transport or a zero distance.
func (c *Calculator) DistanceRefund(st entity.Stage) (entity.Money, bool) {
	if st.Transport.Type != entity.TransportOwnCar || st.Transport.Distance <= 0 {
		return entity.Money{}, false
	}
	refundType := st.Transport.DistanceRefundType
	if refundType == "" {
		refundType = entity.DistanceRefundCar
	}
	rate := c.settings.DistanceRefunds[refundType]
	return entity.Money{
		Amount:   money.Mul(st.Transport.Distance, rate),
		Currency: c.settings.BaseCurrency,
	}, true
}

// Total sums all refunds of a day list in base currency.
func Total(days []entity.TravelDay) float64 {
	sum := decimal.Zero
	for _, d := range days {
		for _, r := range d.Refunds {
			sum = sum.Add(money.Dec(r.Refund.Amount))
		}
	}
	return money.Float(money.Round(sum))
}
