package entity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountry_LumpSumsAt(t *testing.T) {
	c := &Country{Code: "FR"}
	c.UpsertLumpSums(LumpSumSet{ValidFrom: date(2024, 1, 1), LumpSumRates: LumpSumRates{Catering24: 53}})
	c.UpsertLumpSums(LumpSumSet{ValidFrom: date(2023, 1, 1), LumpSumRates: LumpSumRates{Catering24: 50}})

	_, ok := c.LumpSumsAt(date(2022, 6, 1))
	assert.False(t, ok)

	set, ok := c.LumpSumsAt(date(2023, 12, 31))
	require.True(t, ok)
	assert.Equal(t, 50.0, set.Catering24)

	set, ok = c.LumpSumsAt(date(2024, 1, 1))
	require.True(t, ok)
	assert.Equal(t, 53.0, set.Catering24)

	// replace keeps one entry per validFrom
	c.UpsertLumpSums(LumpSumSet{ValidFrom: date(2024, 1, 1), LumpSumRates: LumpSumRates{Catering24: 54}})
	assert.Len(t, c.LumpSums, 2)
	assert.True(t, c.LumpSums[0].ValidFrom.Before(c.LumpSums[1].ValidFrom))
}

func TestLumpSumSet_RatesFor(t *testing.T) {
	set := LumpSumSet{
		LumpSumRates: LumpSumRates{Catering8: 32, Catering24: 48},
		Specials:     []SpecialLumpSum{{City: "Paris", LumpSumRates: LumpSumRates{Catering8: 39, Catering24: 58}}},
	}
	assert.Equal(t, 58.0, set.RatesFor("paris").Catering24)
	assert.Equal(t, 48.0, set.RatesFor("Lyon").Catering24)
	assert.Equal(t, 32.0, set.RatesFor("").For(RefundCatering8))
}

func TestActor_Can(t *testing.T) {
	a := Actor{ID: "u1", Grants: []Grant{
		{Access: Access(ActionApprove, KindTrip), Projects: []string{"p1"}},
		{Access: Access(ActionExamine, KindExpenseReport)},
	}}
	assert.True(t, a.Can("approve/travel", "p1"))
	assert.False(t, a.Can("approve/travel", "p2"))
	assert.True(t, a.Can("examine/expenseReport", "any"))
	assert.False(t, a.Can("book/advance", "p1"))
	assert.True(t, a.CanAny(KindTrip))
	assert.False(t, a.CanAny(KindAdvance))
	assert.False(t, a.IsAdmin())

	admin := Actor{ID: "root", Grants: []Grant{{Access: ActionAdmin}}}
	assert.True(t, admin.Can("book/advance", "p9"))
	assert.True(t, admin.IsAdmin())
}

func TestMoney_BaseAmount(t *testing.T) {
	amount, ok := Money{Amount: 10, Currency: "EUR"}.BaseAmount("EUR")
	assert.True(t, ok)
	assert.Equal(t, 10.0, amount)

	_, ok = Money{Amount: 10, Currency: "USD"}.BaseAmount("EUR")
	assert.False(t, ok)

	amount, ok = Money{Amount: 10, Currency: "USD", ExchangeRate: &ExchangeRate{Amount: 9.2}}.BaseAmount("EUR")
	assert.True(t, ok)
	assert.Equal(t, 9.2, amount)
}

func TestReport_Snapshot(t *testing.T) {
	r := &Report{
		ID:      "live",
		Kind:    KindAdvance,
		Owner:   "u1",
		State:   "appliedFor",
		History: []string{"h1"},
		Advance: &AdvanceDetails{Budget: Money{Amount: 100, Currency: "EUR"}},
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s := r.Snapshot("snap", now)
	assert.Equal(t, "snap", s.ID)
	assert.Equal(t, "live", s.Parent)
	assert.True(t, s.Historic)
	assert.Nil(t, s.History)
	assert.Equal(t, "appliedFor", s.State)

	// mutating the live report does not leak into the snapshot
	r.Advance.Budget.Amount = 1
	assert.Equal(t, 100.0, s.Advance.Budget.Amount)
	assert.False(t, r.Historic)
}

func TestReport_References(t *testing.T) {
	r := &Report{
		Kind:     KindTrip,
		Project:  "p1",
		Advances: []string{"a1"},
		Trip: &TripDetails{
			Destination: Place{Country: "FR"},
			Stages: []Stage{
				{StartLocation: Place{Country: "DE"}, EndLocation: Place{Country: "FR"}},
				{StartLocation: Place{Country: "FR"}, EndLocation: Place{Country: "DE"}},
			},
			Expenses: []Expense{{Project: "p2"}},
		},
	}
	refs := r.References()
	assert.ElementsMatch(t, []Reference{
		{RefProject, "p1"}, {RefProject, "p2"}, {RefAdvance, "a1"},
		{RefCountry, "FR"}, {RefCountry, "DE"},
	}, refs)
}

func TestReport_Validate(t *testing.T) {
	s := DefaultSettings()
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	berlin := Place{Country: "DE", Place: "Berlin"}
	paris := Place{Country: "FR", Place: "Paris"}

	valid := func() *Report {
		return &Report{Kind: KindTrip, Owner: "u1", Trip: &TripDetails{Stages: []Stage{
			{Departure: day(1, 8), Arrival: day(1, 16), StartLocation: berlin, EndLocation: paris,
				Transport: Transport{Type: TransportOwnCar, Distance: 1050, DistanceRefundType: DistanceRefundCar},
				Purpose: PurposeProfessional},
			{Departure: day(3, 8), Arrival: day(3, 18), StartLocation: paris, EndLocation: berlin,
				Transport: Transport{Type: TransportOwnCar}, Purpose: PurposeProfessional},
		}}}
	}

	assert.NoError(t, valid().Validate(s))

	t.Run("arrival before departure", func(t *testing.T) {
		r := valid()
		r.Trip.Stages[0].Arrival = day(1, 7)
		err := r.Validate(s)
		require.Error(t, err)
		var ve ValidationErrors
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "trip.stages[0].arrival", ve[0].Field)
	})

	t.Run("overlap", func(t *testing.T) {
		r := valid()
		r.Trip.Stages[1].Departure = day(1, 10)
		err := r.Validate(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trip.stages[1].departure")
	})

	t.Run("discontinuous", func(t *testing.T) {
		r := valid()
		r.Trip.Stages[1].StartLocation = Place{Country: "BE", Place: "Brussels"}
		assert.Contains(t, r.Validate(s).Error(), "trip.stages[1].startLocation")

		tolerant := s
		tolerant.AllowDiscontinuousStages = true
		assert.NoError(t, r.Validate(tolerant))
	})

	t.Run("mixed requires share", func(t *testing.T) {
		r := valid()
		r.Trip.Stages[0].Purpose = PurposeMixed
		assert.Contains(t, r.Validate(s).Error(), "trip.professionalShare")
		share := 0.5
		r.Trip.ProfessionalShare = &share
		assert.NoError(t, r.Validate(s))
	})

	t.Run("bad currency and amount", func(t *testing.T) {
		r := &Report{Kind: KindExpenseReport, Owner: "u1", ExpenseReport: &ExpenseReportDetails{
			Expenses: []Expense{{Cost: Money{Amount: -1, Currency: "euro"}}},
		}}
		err := r.Validate(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expenseReport.expenses[0].cost.amount")
		assert.Contains(t, err.Error(), "expenseReport.expenses[0].cost.currency")
		assert.True(t, IsValidation(err))
	})

	t.Run("variant mismatch", func(t *testing.T) {
		r := &Report{Kind: KindAdvance, Owner: "u1", Trip: &TripDetails{}}
		assert.Error(t, r.Validate(s))
	})
}

func TestErrors(t *testing.T) {
	nf := fmt.Errorf("load: %w", &NotFoundError{Entity: "report", ID: "x"})
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsNotAllowed(nf))

	na := &NotAllowedError{Reason: "stale", Err: ErrStateConflict}
	assert.True(t, errors.Is(na, ErrStateConflict))
	assert.True(t, IsNotAllowed(fmt.Errorf("wrap: %w", na)))

	ri := &ReferentialIntegrityError{Entity: "country", ID: "DE", Count: 3}
	assert.Equal(t, `country "DE" is referenced by 3 report(s)`, ri.Error())
}
