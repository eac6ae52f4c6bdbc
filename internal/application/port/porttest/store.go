// Package porttest provides in-memory implementations of the application
// ports for tests.
package porttest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

type state struct {
	reports   map[string]*entity.Report
	history   map[string]*entity.Report
	countries map[string]*entity.Country
	projects  map[string]*entity.Project
	rates     map[string]float64
	effects   map[string]*entity.SideEffect
}

func (s *state) clone() *state {
	c := &state{
		reports:   make(map[string]*entity.Report, len(s.reports)),
		history:   make(map[string]*entity.Report, len(s.history)),
		countries: make(map[string]*entity.Country, len(s.countries)),
		projects:  make(map[string]*entity.Project, len(s.projects)),
		rates:     make(map[string]float64, len(s.rates)),
		effects:   make(map[string]*entity.SideEffect, len(s.effects)),
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.history {
		c.history[k] = v
	}
	for k, v := range s.countries {
		c.countries[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.effects {
		c.effects[k] = v
	}
	return c
}

// Store is a process local document store. Stored values are copies, so
// callers can never mutate what is stored. Transactions are serialized and
// roll back by restoring the state they started from.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state

	// FailUpdate, when set, is returned by the next report update.
	FailUpdate error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: (&state{}).clone()}
}

type txKey struct{}

// WithTransaction implements port.TransactionManager. Nested calls join the
// outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	ctx = context.WithValue(ctx, txKey{}, true)
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyReport(r *entity.Report) *entity.Report {
	c := r.Clone()
	c.Version = r.Version
	return c
}

func copyVia[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// Reports returns the report repository view
func (s *Store) Reports() *Reports { return &Reports{s} }

// History returns the snapshot repository view
func (s *Store) History() *History { return &History{s} }

// Countries returns the country repository view
func (s *Store) Countries() *Countries { return &Countries{s} }

// Projects returns the project repository view
func (s *Store) Projects() *Projects { return &Projects{s} }

// Rates returns the rate repository view
func (s *Store) Rates() *Rates { return &Rates{s} }

// SideEffects returns the outbox view
func (s *Store) SideEffects() *SideEffects { return &SideEffects{s} }

// Reports implements port.ReportRepository
type Reports struct{ s *Store }

func (r *Reports) Create(ctx context.Context, report *entity.Report) error {
	if report.Historic {
		return entity.ErrHistoric
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.reports[report.ID]; ok {
		return &entity.ValidationError{Field: "id", Message: "already exists"}
	}
	report.Version = 1
	r.s.data.reports[report.ID] = copyReport(report)
	return nil
}

func (r *Reports) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.reports[id]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "report", ID: id}
	}
	return copyReport(stored), nil
}

func (r *Reports) UpdateIfVersion(ctx context.Context, report *entity.Report, expected int64) error {
	if report.Historic {
		return entity.ErrHistoric
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailUpdate; err != nil {
		r.s.FailUpdate = nil
		return err
	}
	stored, ok := r.s.data.reports[report.ID]
	if !ok {
		return &entity.NotFoundError{Entity: "report", ID: report.ID}
	}
	if stored.Version != expected {
		return entity.ErrStateConflict
	}
	report.Version = expected + 1
	r.s.data.reports[report.ID] = copyReport(report)
	return nil
}

func (r *Reports) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.reports[id]; !ok {
		return &entity.NotFoundError{Entity: "report", ID: id}
	}
	delete(r.s.data.reports, id)
	return nil
}

func (r *Reports) Find(ctx context.Context, f port.ReportFilter, sortBy port.Sort, page port.Page) ([]*entity.Report, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make(map[string]bool, len(f.IDs))
	for _, id := range f.IDs {
		ids[id] = true
	}
	var out []*entity.Report
	for _, rep := range r.s.data.reports {
		switch {
		case f.Kind != "" && rep.Kind != f.Kind,
			f.Owner != "" && rep.Owner != f.Owner,
			f.State != "" && rep.State != f.State,
			f.Booked != nil && rep.Booked != *f.Booked,
			len(ids) > 0 && !ids[rep.ID],
			f.Project != "" && !references(rep, entity.RefProject, f.Project):
			continue
		}
		out = append(out, copyReport(rep))
	}

	less := func(a, b *entity.Report) bool {
		switch sortBy.Field {
		case "name":
			return a.Name < b.Name
		case "state":
			return a.State < b.State
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if sortBy.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	total := len(out)
	if page.Limit > 0 {
		start := 0
		if page.Page > 1 {
			start = (page.Page - 1) * page.Limit
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + page.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r *Reports) CountReferences(ctx context.Context, refType, refID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, rep := range r.s.data.reports {
		if references(rep, refType, refID) {
			n++
		}
	}
	return n, nil
}

func references(r *entity.Report, refType, refID string) bool {
	for _, ref := range r.References() {
		if ref.Type == refType && ref.ID == refID {
			return true
		}
	}
	return false
}

// History implements port.HistoryRepository
type History struct{ s *Store }

func (h *History) Create(ctx context.Context, snapshot *entity.Report) error {
	if !snapshot.Historic || snapshot.Parent == "" {
		return &entity.ValidationError{Field: "historic", Message: "snapshot must be historic"}
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.data.history[snapshot.ID] = copyReport(snapshot)
	return nil
}

func (h *History) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	stored, ok := h.s.data.history[id]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "snapshot", ID: id}
	}
	return copyReport(stored), nil
}

func (h *History) ListByParent(ctx context.Context, parentID string) ([]*entity.Report, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	var out []*entity.Report
	for _, snap := range h.s.data.history {
		if snap.Parent == parentID {
			out = append(out, copyReport(snap))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (h *History) DeleteByParent(ctx context.Context, parentID string) (int, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	n := 0
	for id, snap := range h.s.data.history {
		if snap.Parent == parentID {
			delete(h.s.data.history, id)
			n++
		}
	}
	return n, nil
}

// Countries implements port.CountryRepository
type Countries struct{ s *Store }

func (c *Countries) Upsert(ctx context.Context, country *entity.Country) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.data.countries[country.Code] = copyVia(country)
	return nil
}

func (c *Countries) GetByCode(ctx context.Context, code string) (*entity.Country, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.data.countries[code]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "country", ID: code}
	}
	return copyVia(stored), nil
}

func (c *Countries) List(ctx context.Context) ([]*entity.Country, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := make([]*entity.Country, 0, len(c.s.data.countries))
	for _, v := range c.s.data.countries {
		out = append(out, copyVia(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (c *Countries) Delete(ctx context.Context, code string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.data.countries[code]; !ok {
		return &entity.NotFoundError{Entity: "country", ID: code}
	}
	delete(c.s.data.countries, code)
	return nil
}

// Projects implements port.ProjectRepository
type Projects struct{ s *Store }

func (p *Projects) Create(ctx context.Context, project *entity.Project) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, existing := range p.s.data.projects {
		if strings.EqualFold(existing.Identifier, project.Identifier) {
			return &entity.ValidationError{Field: "identifier", Message: "already taken"}
		}
	}
	p.s.data.projects[project.ID] = copyVia(project)
	return nil
}

func (p *Projects) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	stored, ok := p.s.data.projects[id]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "project", ID: id}
	}
	return copyVia(stored), nil
}

func (p *Projects) List(ctx context.Context) ([]*entity.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make([]*entity.Project, 0, len(p.s.data.projects))
	for _, v := range p.s.data.projects {
		out = append(out, copyVia(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (p *Projects) Delete(ctx context.Context, id string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.data.projects[id]; !ok {
		return &entity.NotFoundError{Entity: "project", ID: id}
	}
	delete(p.s.data.projects, id)
	return nil
}

// Rates implements port.RateRepository
type Rates struct{ s *Store }

func rateKey(currency string, month time.Time) string {
	return currency + "@" + month.UTC().Format("2006-01")
}

func (r *Rates) Get(ctx context.Context, currency string, month time.Time) (float64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.rates[rateKey(currency, month)]
	return v, ok, nil
}

func (r *Rates) SaveMonth(ctx context.Context, month time.Time, perEuro map[string]float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for c, v := range perEuro {
		r.s.data.rates[rateKey(c, month)] = v
	}
	return nil
}

// SideEffects implements port.SideEffectRepository
type SideEffects struct{ s *Store }

func (o *SideEffects) Enqueue(ctx context.Context, e *entity.SideEffect) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, existing := range o.s.data.effects {
		if existing.IdempotencyKey == e.IdempotencyKey {
			return nil
		}
	}
	c := *e
	o.s.data.effects[e.ID] = &c
	return nil
}

func (o *SideEffects) GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffect, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	var out []*entity.SideEffect
	for _, e := range o.s.data.effects {
		if e.Status == entity.SideEffectStatusPending && !e.NextAttemptAt.After(now) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *SideEffects) MarkDone(ctx context.Context, id string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if e, ok := o.s.data.effects[id]; ok {
		c := *e
		c.Status = entity.SideEffectStatusDone
		c.Attempts++
		o.s.data.effects[id] = &c
	}
	return nil
}

func (o *SideEffects) MarkFailed(ctx context.Context, id string, errMsg string, next time.Time, dead bool) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if e, ok := o.s.data.effects[id]; ok {
		c := *e
		c.Attempts++
		c.LastError = errMsg
		c.NextAttemptAt = next
		if dead {
			c.Status = entity.SideEffectStatusDead
		}
		o.s.data.effects[id] = &c
	}
	return nil
}

// All returns every outbox entry, for assertions
func (o *SideEffects) All() []*entity.SideEffect {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := make([]*entity.SideEffect, 0, len(o.s.data.effects))
	for _, e := range o.s.data.effects {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdempotencyKey < out[j].IdempotencyKey })
	return out
}

var (
	_ port.TransactionManager   = (*Store)(nil)
	_ port.ReportRepository     = (*Reports)(nil)
	_ port.HistoryRepository    = (*History)(nil)
	_ port.CountryRepository    = (*Countries)(nil)
	_ port.ProjectRepository    = (*Projects)(nil)
	_ port.RateRepository       = (*Rates)(nil)
	_ port.SideEffectRepository = (*SideEffects)(nil)
)
