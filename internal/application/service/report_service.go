package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

// ReportPage is one page of a report query
type ReportPage struct {
	Items []*entity.Report `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ReportService manages the content of live reports. State changes go
// through the workflow engine.
type ReportService interface {
	Create(ctx context.Context, actor entity.Actor, report *entity.Report) (*entity.Report, error)
	Save(ctx context.Context, actor entity.Actor, report *entity.Report) (*entity.Report, error)
	Delete(ctx context.Context, actor entity.Actor, id string) error
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Report, error)
	Find(ctx context.Context, actor entity.Actor, filter port.ReportFilter, sort port.Sort, page port.Page) (*ReportPage, error)
	GetHistory(ctx context.Context, actor entity.Actor, id string) ([]*entity.Report, error)
	GetSnapshot(ctx context.Context, actor entity.Actor, snapshotID string) (*entity.Report, error)
}

type reportServiceImpl struct {
	reports    port.ReportRepository
	history    port.HistoryRepository
	files      port.FileStorage
	txManager  port.TransactionManager
	recomputer *Recomputer
	dispatcher dispatcher.Dispatcher
	settings   entity.Settings
	logger     Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	reports port.ReportRepository,
	history port.HistoryRepository,
	files port.FileStorage,
	txManager port.TransactionManager,
	recomputer *Recomputer,
	d dispatcher.Dispatcher,
	settings entity.Settings,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		reports:    reports,
		history:    history,
		files:      files,
		txManager:  txManager,
		recomputer: recomputer,
		dispatcher: d,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

// Create stores a new report in the initial state of its kind
func (s *reportServiceImpl) Create(ctx context.Context, actor entity.Actor, report *entity.Report) (*entity.Report, error) {
	if actor.ID == "" {
		return nil, &entity.NotAllowedError{Reason: "anonymous actors cannot create reports"}
	}
	if report.Historic {
		return nil, entity.ErrHistoric
	}
	initial, err := domainwf.InitialState(report.Kind)
	if err != nil {
		return nil, &entity.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", report.Kind)}
	}

	now := s.now()
	report.ID = uuid.NewString()
	report.State = initial.String()
	report.History = nil
	report.Parent = ""
	report.Booked = false
	report.Comments = nil
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Owner == "" || !actor.IsAdmin() {
		report.Owner = actor.ID
	}

	if err := report.Validate(s.settings); err != nil {
		return nil, err
	}
	if err := s.recomputer.Recompute(ctx, report); err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("Report created", "report_id", report.ID, "kind", report.Kind, "owner", report.Owner)
	s.emit(ctx, event.TypeReportCreated, report, actor)
	return report, nil
}

// Save replaces the user authored content of a live report. State, history,
// comments and booking are owned by the workflow and are kept from the
// stored document. A non-zero Version on the input is used as the expected
// version.
func (s *reportServiceImpl) Save(ctx context.Context, actor entity.Actor, report *entity.Report) (*entity.Report, error) {
	current, err := s.reports.GetByID(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	if report.Historic || current.Historic {
		return nil, entity.ErrHistoric
	}
	if !CanEdit(actor, current) {
		return nil, &entity.NotAllowedError{Reason: fmt.Sprintf("report cannot be edited in state %s", current.State)}
	}
	if report.Kind != current.Kind {
		return nil, &entity.ValidationError{Field: "kind", Message: "kind cannot change"}
	}

	expected := current.Version
	if report.Version != 0 {
		expected = report.Version
	}

	report.Owner = current.Owner
	report.State = current.State
	report.History = current.History
	report.Comments = current.Comments
	report.Booked = current.Booked
	report.CreatedAt = current.CreatedAt
	report.Parent = ""
	report.UpdatedAt = s.now()
	if report.HealthCareCost != nil && current.HealthCareCost != nil && report.HealthCareCost.RefundSum == nil {
		report.HealthCareCost.RefundSum = current.HealthCareCost.RefundSum
	}

	if err := report.Validate(s.settings); err != nil {
		return nil, err
	}
	if err := s.recomputer.Recompute(ctx, report); err != nil {
		return nil, err
	}
	// the document and its reference rows change together
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.reports.UpdateIfVersion(txCtx, report, expected)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeReportUpdated, report, actor)
	return report, nil
}

// Delete removes a live report together with its snapshots and receipts
func (s *reportServiceImpl) Delete(ctx context.Context, actor entity.Actor, id string) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !(report.IsEditor(actor.ID) && CanEdit(actor, report)) {
		return &entity.NotAllowedError{Reason: fmt.Sprintf("report cannot be deleted in state %s", report.State)}
	}
	if report.Kind == entity.KindAdvance {
		n, err := s.reports.CountReferences(ctx, entity.RefAdvance, report.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &entity.ReferentialIntegrityError{Entity: "advance", ID: report.ID, Count: n}
		}
	}

	snapshots, err := s.history.ListByParent(ctx, id)
	if err != nil {
		return err
	}
	receipts := receiptIDs(append([]*entity.Report{report}, snapshots...))

	var removed int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, err := s.history.DeleteByParent(txCtx, id)
		if err != nil {
			return err
		}
		removed = n
		return s.reports.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	for _, rid := range receipts {
		if err := s.files.Delete(ctx, ReceiptPath(rid)); err != nil {
			s.logger.Error("Failed to delete receipt", "report_id", id, "receipt_id", rid, "error", err)
		}
	}

	s.logger.Info("Report deleted", "report_id", id, "snapshots", removed, "receipts", len(receipts))
	s.emit(ctx, event.TypeReportDeleted, report, actor)
	return nil
}

// Get returns a live report the actor may read
func (s *reportServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(actor, report) {
		return nil, &entity.NotFoundError{Entity: "report", ID: id}
	}
	return report, nil
}

// Find lists reports. Actors without a capability on the kind only see their own.
func (s *reportServiceImpl) Find(ctx context.Context, actor entity.Actor, filter port.ReportFilter, sort port.Sort, page port.Page) (*ReportPage, error) {
	if !s.seesOthers(actor, filter.Kind) {
		filter.Owner = actor.ID
	}
	if page.Page < 1 {
		page.Page = 1
	}

	items, total, err := s.reports.Find(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}

	visible := items[:0]
	for _, r := range items {
		if CanRead(actor, r) {
			visible = append(visible, r)
		}
	}
	if len(visible) < len(items) {
		total -= len(items) - len(visible)
	}
	if visible == nil {
		visible = []*entity.Report{}
	}
	return &ReportPage{Items: visible, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *reportServiceImpl) seesOthers(actor entity.Actor, kind entity.Kind) bool {
	if actor.IsAdmin() {
		return true
	}
	if kind != "" {
		return actor.CanAny(kind)
	}
	for _, k := range entity.Kinds {
		if actor.CanAny(k) {
			return true
		}
	}
	return false
}

// GetHistory returns the snapshots of a report, oldest first
func (s *reportServiceImpl) GetHistory(ctx context.Context, actor entity.Actor, id string) ([]*entity.Report, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.history.ListByParent(ctx, id)
}

// GetSnapshot returns one archived snapshot
func (s *reportServiceImpl) GetSnapshot(ctx context.Context, actor entity.Actor, snapshotID string) (*entity.Report, error) {
	snap, err := s.history.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if !CanRead(actor, snap) {
		return nil, &entity.NotFoundError{Entity: "snapshot", ID: snapshotID}
	}
	return snap, nil
}

func (s *reportServiceImpl) emit(ctx context.Context, typ event.Type, r *entity.Report, actor entity.Actor) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(typ, r.ID, r.Kind, map[string]interface{}{
		event.KeyActorID: actor.ID,
		event.KeyOwnerID: r.Owner,
	}))
}

func receiptIDs(reports []*entity.Report) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range reports {
		for _, ref := range r.Receipts() {
			if ref.ID != "" && !seen[ref.ID] {
				seen[ref.ID] = true
				ids = append(ids, ref.ID)
			}
		}
	}
	return ids
}
