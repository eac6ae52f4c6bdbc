package port

import (
	"context"
	"time"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// ReportFilter narrows a report query. Zero fields do not filter.
type ReportFilter struct {
	Kind    entity.Kind
	Owner   string
	State   string
	Project string
	Booked  *bool
	IDs     []string
}

// Sort orders a report query.
type Sort struct {
	Field string // createdAt, updatedAt, name, state
	Desc  bool
}

// Page selects a window of a report query. Page is 1-based.
type Page struct {
	Limit int
	Page  int
}

// ReportRepository stores live reports. Writes are guarded by the report version.
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)
	// UpdateIfVersion persists report if the stored version still equals
	// expected and sets report.Version to the new version. It returns
	// entity.ErrStateConflict when another writer won.
	UpdateIfVersion(ctx context.Context, report *entity.Report, expected int64) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, filter ReportFilter, sort Sort, page Page) ([]*entity.Report, int, error)
	// CountReferences counts live reports pointing at an entity.
	CountReferences(ctx context.Context, refType, refID string) (int, error)
}

// HistoryRepository stores immutable report snapshots.
type HistoryRepository interface {
	Create(ctx context.Context, snapshot *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)
	ListByParent(ctx context.Context, parentID string) ([]*entity.Report, error)
	DeleteByParent(ctx context.Context, parentID string) (int, error)
}

// CountryRepository stores countries with their lump sum tables.
type CountryRepository interface {
	Upsert(ctx context.Context, country *entity.Country) error
	GetByCode(ctx context.Context, code string) (*entity.Country, error)
	List(ctx context.Context) ([]*entity.Country, error)
	Delete(ctx context.Context, code string) error
}

// ProjectRepository stores projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)
	Delete(ctx context.Context, id string) error
}

// RateRepository caches monthly exchange rates quoted as units per euro.
type RateRepository interface {
	Get(ctx context.Context, currency string, month time.Time) (float64, bool, error)
	SaveMonth(ctx context.Context, month time.Time, perEuro map[string]float64) error
}

// SideEffectRepository is the outbox of post-transition deliveries.
type SideEffectRepository interface {
	// Enqueue ignores entries whose idempotency key already exists.
	Enqueue(ctx context.Context, effect *entity.SideEffect) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffect, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string, nextAttempt time.Time, dead bool) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
