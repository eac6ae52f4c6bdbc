package entity

import (
	"fmt"

	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

// Validate checks the user-authored fields of a report before persistence.
// Derived fields (days, refunds, add-up) are not inspected.
func (r *Report) Validate(s Settings) error {
	var errs ValidationErrors

	if !r.Kind.IsValid() {
		errs.Add("kind", "unknown report kind %q", r.Kind)
		return errs
	}
	if r.Owner == "" {
		errs.Add("owner", "is required")
	}

	variants := 0
	for _, set := range []bool{r.Trip != nil, r.Advance != nil, r.ExpenseReport != nil, r.HealthCareCost != nil} {
		if set {
			variants++
		}
	}
	if variants != 1 || !r.hasVariant() {
		errs.Add(string(r.Kind), "exactly the %s details must be set", r.Kind)
		return errs
	}

	mixed := false
	switch r.Kind {
	case KindTrip:
		mixed = validateStages(&errs, r.Trip.Stages, s)
		if r.Trip.ProfessionalShare != nil {
			if err := utils.ValidateShare(*r.Trip.ProfessionalShare); err != nil {
				errs.Add("trip.professionalShare", "%v", err)
			}
		}
		if validateExpenses(&errs, "trip.expenses", r.Trip.Expenses) {
			mixed = true
		}
		if mixed && r.Trip.ProfessionalShare == nil {
			errs.Add("trip.professionalShare", "is required when a stage or expense has mixed purpose")
		}
	case KindAdvance:
		validateMoney(&errs, "advance.budget", r.Advance.Budget)
	case KindExpenseReport:
		validateExpenses(&errs, "expenseReport.expenses", r.ExpenseReport.Expenses)
	case KindHealthCareCost:
		validateExpenses(&errs, "healthCareCost.expenses", r.HealthCareCost.Expenses)
		if r.HealthCareCost.RefundSum != nil {
			validateMoney(&errs, "healthCareCost.refundSum", *r.HealthCareCost.RefundSum)
		}
	}

	return errs.Err()
}

func (r *Report) hasVariant() bool {
	switch r.Kind {
	case KindTrip:
		return r.Trip != nil
	case KindAdvance:
		return r.Advance != nil
	case KindExpenseReport:
		return r.ExpenseReport != nil
	case KindHealthCareCost:
		return r.HealthCareCost != nil
	}
	return false
}

// validateStages reports whether any stage has mixed purpose.
func validateStages(errs *ValidationErrors, stages []Stage, s Settings) bool {
	mixed := false
	for i, st := range stages {
		path := fmt.Sprintf("trip.stages[%d]", i)
		if !st.Arrival.After(st.Departure) {
			errs.Add(path+".arrival", "must be after departure")
		}
		if st.StartLocation.Country == "" {
			errs.Add(path+".startLocation.country", "is required")
		}
		if st.EndLocation.Country == "" {
			errs.Add(path+".endLocation.country", "is required")
		}
		if !validPurpose(st.Purpose) {
			errs.Add(path+".purpose", "unknown purpose %q", st.Purpose)
		}
		if st.Purpose == PurposeMixed {
			mixed = true
		}
		switch st.Transport.Type {
		case TransportOwnCar:
			if st.Transport.Distance < 0 {
				errs.Add(path+".transport.distance", "must not be negative")
			}
			if rt := st.Transport.DistanceRefundType; rt != "" {
				if _, ok := s.DistanceRefunds[rt]; !ok {
					errs.Add(path+".transport.distanceRefundType", "unknown refund type %q", rt)
				}
			}
		case TransportAirplane, TransportShipOrFerry, TransportOther:
		default:
			errs.Add(path+".transport.type", "unknown transport %q", st.Transport.Type)
		}
		validateMoney(errs, path+".cost", st.Cost)

		if i == 0 {
			continue
		}
		prev := stages[i-1]
		if st.Departure.Before(prev.Arrival) {
			errs.Add(path+".departure", "overlaps the previous stage or is out of order")
		}
		if !s.AllowDiscontinuousStages && !prev.EndLocation.Same(st.StartLocation) {
			errs.Add(path+".startLocation", "must equal the end location of the previous stage")
		}
	}
	return mixed
}

// validateExpenses reports whether any expense has mixed purpose.
func validateExpenses(errs *ValidationErrors, prefix string, expenses []Expense) bool {
	mixed := false
	for i, e := range expenses {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		validateMoney(errs, path+".cost", e.Cost)
		if e.Purpose != "" && !validPurpose(e.Purpose) {
			errs.Add(path+".purpose", "unknown purpose %q", e.Purpose)
		}
		if e.Purpose == PurposeMixed {
			mixed = true
		}
	}
	return mixed
}

func validateMoney(errs *ValidationErrors, path string, m Money) {
	if err := utils.ValidateAmount(m.Amount); err != nil {
		errs.Add(path+".amount", "%v", err)
	}
	if m.Currency != "" {
		if err := utils.ValidateCurrencyCode(m.Currency); err != nil {
			errs.Add(path+".currency", "%v", err)
		}
	}
}

func validPurpose(p Purpose) bool {
	switch p {
	case PurposeProfessional, PurposeMixed, PurposePrivate:
		return true
	}
	return false
}
