package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-reimbursement/internal/application/currency"
	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/addup"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/itinerary"
	"github.com/garyjia/travel-reimbursement/internal/domain/lumpsum"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

// Recomputer refreshes every derived field of a live report: distance
// refunds, exchange rates, travel days, lump sums and the add-up.
type Recomputer struct {
	countries port.CountryRepository
	reports   port.ReportRepository
	converter *currency.Converter
	settings  entity.Settings
}

// NewRecomputer creates a new Recomputer
func NewRecomputer(countries port.CountryRepository, reports port.ReportRepository, converter *currency.Converter, settings entity.Settings) *Recomputer {
	return &Recomputer{
		countries: countries,
		reports:   reports,
		converter: converter,
		settings:  settings,
	}
}

// Recompute derives all computed fields of report in place. It touches no
// other report.
func (r *Recomputer) Recompute(ctx context.Context, report *entity.Report) error {
	if report.Historic {
		return entity.ErrHistoric
	}

	switch {
	case report.Trip != nil:
		if err := r.trip(ctx, report.Trip); err != nil {
			return err
		}
	case report.Advance != nil:
		report.Advance.Budget = r.converter.Convert(ctx, report.Advance.Budget, report.CreatedAt)
	case report.ExpenseReport != nil:
		r.expenses(ctx, report.ExpenseReport.Expenses)
	case report.HealthCareCost != nil:
		r.expenses(ctx, report.HealthCareCost.Expenses)
		if report.HealthCareCost.RefundSum != nil {
			converted := r.converter.Convert(ctx, *report.HealthCareCost.RefundSum, report.UpdatedAt)
			report.HealthCareCost.RefundSum = &converted
		}
	}

	advances, err := r.advances(ctx, report)
	if err != nil {
		return err
	}
	report.AddUp = addup.Compute(report, advances, r.settings)
	return nil
}

func (r *Recomputer) trip(ctx context.Context, trip *entity.TripDetails) error {
	countries, err := r.countries.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load countries: %w", err)
	}
	calc := lumpsum.NewCalculator(lumpsum.NewTable(countries, r.settings.FallbackLumpSumCountry), r.settings)

	for i := range trip.Stages {
		st := &trip.Stages[i]
		if refund, ok := calc.DistanceRefund(*st); ok {
			st.Cost = refund
		}
		st.Cost = r.converter.Convert(ctx, st.Cost, st.Departure)
	}
	r.expenses(ctx, trip.Expenses)

	trip.Days = itinerary.Derive(trip.Stages, trip.LastPlaceOfWork, trip.Days, r.settings)
	if n := len(trip.Stages); n > 0 {
		trip.StartDate = trip.Stages[0].Departure
		trip.EndDate = trip.Stages[n-1].Arrival
	}

	days, err := calc.Calculate(trip)
	if err != nil {
		return err
	}
	trip.Days = days
	return nil
}

func (r *Recomputer) expenses(ctx context.Context, expenses []entity.Expense) {
	for i := range expenses {
		expenses[i].Cost = r.converter.Convert(ctx, expenses[i].Cost, expenses[i].Date)
	}
}

// advances loads the approved advances a report draws on
func (r *Recomputer) advances(ctx context.Context, report *entity.Report) ([]addup.Advance, error) {
	if len(report.Advances) == 0 {
		return nil, nil
	}
	found, _, err := r.reports.Find(ctx, port.ReportFilter{Kind: entity.KindAdvance, IDs: report.Advances}, port.Sort{}, port.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to load advances: %w", err)
	}
	byID := make(map[string]*entity.Report, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	out := make([]addup.Advance, 0, len(report.Advances))
	for i, id := range report.Advances {
		a, ok := byID[id]
		field := fmt.Sprintf("advances[%d]", i)
		if !ok {
			return nil, &entity.ValidationError{Field: field, Message: fmt.Sprintf("advance %s does not exist", id)}
		}
		if a.Owner != report.Owner {
			return nil, &entity.ValidationError{Field: field, Message: "advance belongs to somebody else"}
		}
		if s := domainwf.State(a.State); s != domainwf.StateApproved && s != domainwf.StateRefunded {
			return nil, &entity.ValidationError{Field: field, Message: "advance is not approved"}
		}
		if a.Advance == nil {
			continue
		}
		amount, ok := a.Advance.Budget.BaseAmount(r.settings.BaseCurrency)
		if !ok {
			continue
		}
		out = append(out, addup.Advance{ID: a.ID, Project: a.Project, Amount: amount})
	}
	return out, nil
}
