package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/currency"
	"github.com/garyjia/travel-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/travel-reimbursement/internal/application/port/porttest"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
)

var (
	alice    = entity.Actor{ID: "alice"}
	bob      = entity.Actor{ID: "bob"}
	admin    = entity.Actor{ID: "root", Grants: []entity.Grant{{Access: entity.ActionAdmin}}}
	examiner = entity.Actor{ID: "eve", Grants: []entity.Grant{
		{Access: entity.Access(entity.ActionExamine, entity.KindExpenseReport)},
		{Access: entity.Access(entity.ActionExamine, entity.KindTrip)},
	}}
)

func day(d, hour int) time.Time {
	return time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC)
}

// usdRates quotes 0.9 EUR per USD and nothing else
type usdRates struct{}

func (usdRates) Rate(_ context.Context, currency string, _ time.Time) (float64, bool, error) {
	if currency == "USD" {
		return 0.9, true, nil
	}
	return 0, false, nil
}

// recordingDispatcher captures events instead of running handlers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (d *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}
func (d *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo      { return nil }
func (d *recordingDispatcher) Close() error                                          { return nil }

func (d *recordingDispatcher) Dispatch(_ context.Context, evt *event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return nil
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = d.Dispatch(ctx, evt)
}

func (d *recordingDispatcher) types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.Type, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store      *porttest.Store
	files      *porttest.Files
	events     *recordingDispatcher
	settings   entity.Settings
	recomputer *Recomputer
	reports    ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := porttest.NewStore()
	valid := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []*entity.Country{
		{Code: "DE", LumpSums: []entity.LumpSumSet{{ValidFrom: valid, LumpSumRates: entity.LumpSumRates{Catering8: 28, Catering24: 28, Overnight: 20}}}},
		{Code: "FR", LumpSums: []entity.LumpSumSet{{ValidFrom: valid, LumpSumRates: entity.LumpSumRates{Catering8: 21, Catering24: 32, Overnight: 100}}}},
		{Code: "LU", LumpSums: []entity.LumpSumSet{{ValidFrom: valid, LumpSumRates: entity.LumpSumRates{Catering8: 42, Catering24: 63, Overnight: 139}}}},
	} {
		require.NoError(t, store.Countries().Upsert(context.Background(), c))
	}

	settings := entity.DefaultSettings()
	clock := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	converter := currency.NewConverter(usdRates{}, settings.BaseCurrency, zap.NewNop(), currency.WithClock(clock))
	recomputer := NewRecomputer(store.Countries(), store.Reports(), converter, settings)

	f := &fixture{
		store:      store,
		files:      porttest.NewFiles(),
		events:     &recordingDispatcher{},
		settings:   settings,
		recomputer: recomputer,
	}
	f.reports = NewReportService(store.Reports(), store.History(), f.files, store, recomputer, f.events, settings, porttest.Logger{})
	return f
}

func berlinParis() *entity.Report {
	return &entity.Report{
		Kind:    entity.KindTrip,
		Name:    "Conference Paris",
		Project: "p1",
		Trip: &entity.TripDetails{
			Destination: entity.Place{Country: "FR", Place: "Paris"},
			Reason:      "conference",
			Stages: []entity.Stage{
				{
					Departure: day(1, 20), Arrival: day(2, 6),
					StartLocation: entity.Place{Country: "DE", Place: "Berlin"},
					EndLocation:   entity.Place{Country: "FR", Place: "Paris"},
					Transport:     entity.Transport{Type: entity.TransportOwnCar, Distance: 1050},
					Purpose:       entity.PurposeProfessional,
				},
				{
					Departure: day(3, 9), Arrival: day(3, 12),
					StartLocation: entity.Place{Country: "FR", Place: "Paris"},
					EndLocation:   entity.Place{Country: "FR", Place: "Versailles"},
					Transport:     entity.Transport{Type: entity.TransportOther},
					Cost:          entity.Money{Amount: 20, Currency: "EUR"},
					Purpose:       entity.PurposeProfessional,
				},
			},
			Expenses: []entity.Expense{
				{Description: "Fee", Cost: entity.Money{Amount: 100, Currency: "USD"}, Date: day(2, 12), Purpose: entity.PurposeProfessional},
			},
		},
	}
}

func expenseReport(amount float64, receipts ...entity.DocumentRef) *entity.Report {
	return &entity.Report{
		Kind: entity.KindExpenseReport,
		Name: "Office supplies",
		ExpenseReport: &entity.ExpenseReportDetails{Expenses: []entity.Expense{
			{Description: "Paper", Cost: entity.Money{Amount: amount, Currency: "EUR"}, Date: day(5, 10), Receipts: receipts},
		}},
	}
}

func advance(amount float64) *entity.Report {
	return &entity.Report{
		Kind:    entity.KindAdvance,
		Name:    "Advance",
		Advance: &entity.AdvanceDetails{Reason: "trip", Budget: entity.Money{Amount: amount, Currency: "EUR"}},
	}
}

// setState moves a stored report without the workflow
func (f *fixture) setState(t *testing.T, id, state string) {
	t.Helper()
	r, err := f.store.Reports().GetByID(context.Background(), id)
	require.NoError(t, err)
	r.State = state
	require.NoError(t, f.store.Reports().UpdateIfVersion(context.Background(), r, r.Version))
}

// fakeTranslator renders "key(arg=value,...)"
type fakeTranslator struct{}

func (fakeTranslator) Translate(key, lang string, args map[string]string) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s(%s)", key, strings.Join(parts, ","))
}

type fakeFormatter struct{}

func (fakeFormatter) Format(amount float64, lang string) string {
	return fmt.Sprintf("%.2f EUR", amount)
}
