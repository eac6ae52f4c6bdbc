// Package addup rolls a report's expenses, lump sums and advances into
// per-project balances.
package addup

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/lumpsum"
	"github.com/garyjia/travel-reimbursement/internal/domain/money"
)

// Advance is the base currency budget of a linked advance.
type Advance struct {
	ID      string
	Project string
	Amount  float64
}

type bucket struct {
	expenses decimal.Decimal
	lumpSums decimal.Decimal
	advance  decimal.Decimal
}

type ledger struct {
	order   []string
	buckets map[string]*bucket
}

func (l *ledger) get(project string) *bucket {
	b, ok := l.buckets[project]
	if !ok {
		b = &bucket{}
		l.buckets[project] = b
		l.order = append(l.order, project)
	}
	return b
}

// Compute returns one entry per project referenced by the report. The report's
// own project always comes first.
func Compute(r *entity.Report, advances []Advance, s entity.Settings) []entity.AddUp {
	l := &ledger{buckets: make(map[string]*bucket)}
	main := l.get(r.Project)

	projectOf := func(p string) *bucket {
		if p == "" {
			return main
		}
		return l.get(p)
	}

	share := decimal.NewFromInt(1)
	if r.Trip != nil && r.Trip.ProfessionalShare != nil {
		share = money.Dec(*r.Trip.ProfessionalShare)
	}

	addLine := func(b *bucket, cost entity.Money, purpose entity.Purpose) {
		if purpose == entity.PurposePrivate {
			return
		}
		amount, ok := cost.BaseAmount(s.BaseCurrency)
		if !ok {
			return
		}
		d := money.Dec(amount)
		if purpose == entity.PurposeMixed {
			d = d.Mul(share)
		}
		b.expenses = b.expenses.Add(d)
	}

	if r.Trip != nil {
		for _, st := range r.Trip.Stages {
			addLine(main, st.Cost, st.Purpose)
		}
		main.lumpSums = money.Dec(lumpsum.Total(r.Trip.Days))
	}
	for _, e := range r.Expenses() {
		addLine(projectOf(e.Project), e.Cost, e.Purpose)
	}
	if r.Advance != nil {
		// the budget of an advance is what is paid out
		addLine(main, r.Advance.Budget, entity.PurposeProfessional)
	}
	for _, a := range advances {
		b := projectOf(a.Project)
		b.advance = b.advance.Add(money.Dec(a.Amount))
	}

	out := make([]entity.AddUp, 0, len(l.order))
	for _, project := range l.order {
		b := l.buckets[project]
		entry := Balance(money.Float(money.Round(b.expenses)), money.Float(money.Round(b.lumpSums)), money.Float(money.Round(b.advance)))
		entry.Project = project
		if r.Kind != entity.KindTrip {
			entry.LumpSums = nil
		}
		out = append(out, entry)
	}
	return out
}

// Balance applies the clamping rules to one project's sums.
func Balance(expenses, lumpSums, advance float64) entity.AddUp {
	total := money.Dec(expenses).Add(money.Dec(lumpSums))
	if total.IsNegative() {
		total = decimal.Zero
	}
	adv := money.Dec(advance)

	entry := entity.AddUp{
		Expenses: expenses,
		LumpSums: &lumpSums,
		Advance:  advance,
		Total:    money.Float(money.Round(total)),
	}
	if total.LessThan(adv) {
		entry.AdvanceOverflow = true
		entry.Balance = 0
	} else {
		entry.Balance = money.Float(money.Round(total.Sub(adv)))
	}
	return entry
}
