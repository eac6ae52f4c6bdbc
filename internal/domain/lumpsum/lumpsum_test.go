package lumpsum

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/itinerary"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func rates(c8, c24, overnight float64) entity.LumpSumRates {
	return entity.LumpSumRates{Catering8: c8, Catering24: c24, Overnight: overnight}
}

func testTable() *Table {
	valid := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewTable([]*entity.Country{
		{Code: "DE", LumpSums: []entity.LumpSumSet{{ValidFrom: valid, LumpSumRates: rates(28, 28, 20)}}},
		{Code: "FR", LumpSums: []entity.LumpSumSet{{
			ValidFrom:    valid,
			LumpSumRates: rates(21, 32, 100),
			Specials:     []entity.SpecialLumpSum{{City: "Paris", LumpSumRates: rates(39, 58, 159)}},
		}}},
		{Code: "MC", LumpSumsFrom: "FR"},
		{Code: "XA", LumpSumsFrom: "XB"},
		{Code: "XB", LumpSumsFrom: "XA"},
		{Code: "OLD", LumpSums: []entity.LumpSumSet{{ValidFrom: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), LumpSumRates: rates(1, 1, 1)}}},
		{Code: "LU", LumpSums: []entity.LumpSumSet{{ValidFrom: valid, LumpSumRates: rates(42, 63, 139)}}},
	}, "LU")
}

func TestTable_Rates(t *testing.T) {
	table := testTable()

	r, err := table.Rates("FR", "", at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 32.0, r.Catering24)

	r, err = table.Rates("FR", "Paris", at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 58.0, r.Catering24)

	r, err = table.Rates("MC", "", at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 32.0, r.Catering24, "delegated to FR")

	_, err = table.Rates("XA", "", at(2, 0))
	assert.True(t, errors.Is(err, ErrDelegationCycle))

	r, err = table.Rates("OLD", "", at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 63.0, r.Catering24, "falls back to LU")

	_, err = table.Rates("ZZ", "", at(2, 0))
	assert.True(t, entity.IsNotFound(err))
}

func baseSettings() entity.Settings {
	s := entity.DefaultSettings()
	s.CateringFactor = entity.Factor{Factor: 1}
	s.OvernightFactor = entity.Factor{Factor: 1}
	return s
}

func refundOf(day entity.TravelDay, typ entity.RefundType) (float64, bool) {
	for _, r := range day.Refunds {
		if r.Type == typ {
			return r.Refund.Amount, true
		}
	}
	return 0, false
}

func berlinParisTrip(s entity.Settings) *entity.TripDetails {
	trip := &entity.TripDetails{Stages: []entity.Stage{
		{
			Departure: at(1, 20), Arrival: at(2, 6),
			StartLocation: entity.Place{Country: "DE", Place: "Berlin"},
			EndLocation:   entity.Place{Country: "FR", Place: "Paris"},
			Transport:     entity.Transport{Type: entity.TransportOwnCar, Distance: 1050},
			Purpose:       entity.PurposeProfessional,
		},
		{
			Departure: at(3, 9), Arrival: at(3, 12),
			StartLocation: entity.Place{Country: "FR", Place: "Paris"},
			EndLocation:   entity.Place{Country: "FR", Place: "Versailles"},
			Transport:     entity.Transport{Type: entity.TransportOther},
			Purpose:       entity.PurposeProfessional,
		},
	}}
	trip.Days = itinerary.Derive(trip.Stages, nil, nil, s)
	return trip
}

func TestCalculate_BerlinToParis(t *testing.T) {
	s := baseSettings()
	trip := berlinParisTrip(s)
	days, err := NewCalculator(testTable(), s).Calculate(trip)
	require.NoError(t, err)
	require.Len(t, days, 3)

	amount, ok := refundOf(days[0], entity.RefundCatering8)
	assert.True(t, ok)
	assert.Equal(t, 28.0, amount)

	amount, ok = refundOf(days[1], entity.RefundCatering24)
	assert.True(t, ok)
	assert.Equal(t, 32.0, amount)

	amount, ok = refundOf(days[2], entity.RefundCatering8)
	assert.True(t, ok)
	assert.Equal(t, 21.0, amount)

	for _, d := range days {
		assert.Equal(t, "EUR", d.Refunds[0].Refund.Currency)
		_, ok := refundOf(d, entity.RefundOvernight)
		assert.False(t, ok, "overnight not claimed")
	}
	assert.Empty(t, trip.Days[0].Refunds, "input days are not mutated")
}

func TestCalculate_MealCutsFactorsAndSpouse(t *testing.T) {
	s := baseSettings()
	s.CateringFactor = entity.Factor{Factor: 0.5, Exceptions: []string{"DE"}}
	s.AllowSpouseRefund = true

	trip := berlinParisTrip(s)
	trip.ClaimSpouseRefund = true
	trip.Days[1].CateringNoRefund = entity.Meals{Breakfast: true, Lunch: true}
	trip.Days[2].CateringNoRefund = entity.Meals{Breakfast: true, Lunch: true, Dinner: true}

	days, err := NewCalculator(testTable(), s).Calculate(trip)
	require.NoError(t, err)

	// DE is exempt from the factor: 28 * 1 * 1 * 2
	amount, _ := refundOf(days[0], entity.RefundCatering8)
	assert.Equal(t, 56.0, amount)
	// 32 * (1 - 0.2 - 0.4) * 0.5 * 2
	amount, _ = refundOf(days[1], entity.RefundCatering24)
	assert.Equal(t, 12.8, amount)
	// all meals provided
	amount, _ = refundOf(days[2], entity.RefundCatering8)
	assert.Equal(t, 0.0, amount)
}

func TestCalculate_SpouseRequiresSetting(t *testing.T) {
	s := baseSettings()
	trip := berlinParisTrip(s)
	trip.ClaimSpouseRefund = true
	days, err := NewCalculator(testTable(), s).Calculate(trip)
	require.NoError(t, err)
	amount, _ := refundOf(days[0], entity.RefundCatering8)
	assert.Equal(t, 28.0, amount)
}

func TestCalculate_Overnight(t *testing.T) {
	s := baseSettings()
	trip := berlinParisTrip(s)
	trip.ClaimOvernightLumpSum = true

	days, err := NewCalculator(testTable(), s).Calculate(trip)
	require.NoError(t, err)

	// night 1 -> 2 is spent driving
	_, ok := refundOf(days[0], entity.RefundOvernight)
	assert.False(t, ok)
	// night 2 -> 3 is spent in Paris between stages
	amount, ok := refundOf(days[1], entity.RefundOvernight)
	assert.True(t, ok)
	assert.Equal(t, 100.0, amount)
	// never on the final day
	_, ok = refundOf(days[2], entity.RefundOvernight)
	assert.False(t, ok)
}

func TestCalculate_NonProfessionalDaysGetNothing(t *testing.T) {
	s := baseSettings()
	trip := berlinParisTrip(s)
	trip.ClaimOvernightLumpSum = true
	trip.Days[1].Purpose = entity.PurposePrivate

	days, err := NewCalculator(testTable(), s).Calculate(trip)
	require.NoError(t, err)
	assert.Empty(t, days[1].Refunds)
}

func TestCalculate_Idempotent(t *testing.T) {
	s := baseSettings()
	s.CateringFactor = entity.Factor{Factor: 0.333}
	trip := berlinParisTrip(s)
	trip.ClaimOvernightLumpSum = true
	calc := NewCalculator(testTable(), s)

	first, err := calc.Calculate(trip)
	require.NoError(t, err)
	trip.Days = first
	second, err := calc.Calculate(trip)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, Total(first), Total(second))
}

func TestCalculate_UnknownCountry(t *testing.T) {
	s := baseSettings()
	trip := &entity.TripDetails{Days: []entity.TravelDay{{Date: at(1, 0), Country: "ZZ", Purpose: entity.PurposeProfessional}}}
	_, err := NewCalculator(testTable(), s).Calculate(trip)
	assert.True(t, entity.IsNotFound(err))
}

func TestDistanceRefund(t *testing.T) {
	calc := NewCalculator(testTable(), baseSettings())

	m, ok := calc.DistanceRefund(entity.Stage{Transport: entity.Transport{Type: entity.TransportOwnCar, Distance: 123}})
	require.True(t, ok)
	assert.Equal(t, 36.9, m.Amount)
	assert.Equal(t, "EUR", m.Currency)

	m, ok = calc.DistanceRefund(entity.Stage{Transport: entity.Transport{
		Type: entity.TransportOwnCar, Distance: 100, DistanceRefundType: entity.DistanceRefundHalfCar,
	}})
	require.True(t, ok)
	assert.Equal(t, 15.0, m.Amount)

	_, ok = calc.DistanceRefund(entity.Stage{Transport: entity.Transport{Type: entity.TransportAirplane, Distance: 500}})
	assert.False(t, ok)
}

func TestTotal(t *testing.T) {
	days := []entity.TravelDay{
		{Refunds: []entity.Refund{{Refund: entity.Money{Amount: 14.1}}, {Refund: entity.Money{Amount: 20}}}},
		{Refunds: []entity.Refund{{Refund: entity.Money{Amount: 0.2}}}},
	}
	assert.Equal(t, 34.3, Total(days))
}
