// Package workflow applies approval transitions to live reports.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/application/service"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

// Recomputer refreshes the derived fields of a live report
type Recomputer interface {
	Recompute(ctx context.Context, report *entity.Report) error
}

// Result of an accepted transition
type Result struct {
	Report     *entity.Report      `json:"report"`
	Snapshot   *entity.Report      `json:"snapshot"`
	Transition domainwf.Transition `json:"-"`
}

// Engine orchestrates the approval workflow of all report kinds
type Engine interface {
	// Apply fires trigger on one report. The pre-transition document is
	// archived as a snapshot in the same write.
	Apply(ctx context.Context, actor entity.Actor, kind entity.Kind, reportID string, trigger domainwf.Trigger, payload Payload) (*Result, error)

	// ApplyBatch fires trigger on every report independently
	ApplyBatch(ctx context.Context, actor entity.Actor, kind entity.Kind, reportIDs []string, trigger domainwf.Trigger, payload Payload) (*BatchResult, error)

	// Book marks refunded reports as booked
	Book(ctx context.Context, actor entity.Actor, reportIDs []string) (*BatchResult, error)

	// PermittedTriggers lists the triggers actor may fire on a report now
	PermittedTriggers(ctx context.Context, actor entity.Actor, reportID string) ([]domainwf.Trigger, error)
}

type engineImpl struct {
	reports     port.ReportRepository
	history     port.HistoryRepository
	txManager   port.TransactionManager
	recomputer  Recomputer
	dispatcher  dispatcher.Dispatcher
	logger      service.Logger
	concurrency int
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithConcurrency bounds the reports a batch processes at once
func WithConcurrency(n int) EngineOption {
	return func(e *engineImpl) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	reports port.ReportRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	recomputer Recomputer,
	logger service.Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		reports:     reports,
		history:     history,
		txManager:   txManager,
		recomputer:  recomputer,
		logger:      logger,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Apply(ctx context.Context, actor entity.Actor, kind entity.Kind, reportID string, trigger domainwf.Trigger, payload Payload) (*Result, error) {
	report, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Kind != kind {
		return nil, &entity.NotFoundError{Entity: string(kind), ID: reportID}
	}
	if report.Historic {
		return nil, entity.ErrHistoric
	}

	machine, err := BuildStateMachine(kind, domainwf.State(report.State))
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	from := machine.State()

	edge, ok := machine.Transition(trigger)
	if !ok {
		e.logger.Info("Transition rejected", "report_id", reportID, "kind", kind, "trigger", trigger, "state", from)
		return nil, &entity.NotAllowedError{
			Reason: fmt.Sprintf("%s is not possible in state %s", trigger, from),
			Err:    domainwf.ErrInvalidTransition,
		}
	}
	if !mayFire(actor, report, edge.Access) {
		e.logger.Info("Transition refused", "report_id", reportID, "kind", kind, "trigger", trigger, "actor", actor.ID)
		return nil, &entity.NotAllowedError{Reason: fmt.Sprintf("%s requires %s", trigger, edge.Access)}
	}

	transition, err := machine.Fire(withPayload(ctx, payload), trigger)
	if err != nil {
		if errors.Is(err, domainwf.ErrGuardFailed) {
			return nil, guardError(kind, trigger)
		}
		return nil, err
	}
	transition.Kind = kind

	now := e.now()
	expected := report.Version
	snapshot := report.Snapshot(uuid.NewString(), now)

	report.History = append(report.History, snapshot.ID)
	report.State = transition.To.String()
	report.UpdatedAt = now
	if payload.Comment != "" {
		report.Comments = append(report.Comments, entity.Comment{
			Text:      payload.Comment,
			Author:    actor.ID,
			ToState:   report.State,
			CreatedAt: now,
		})
	}
	if payload.RefundSum != nil && report.HealthCareCost != nil {
		sum := *payload.RefundSum
		report.HealthCareCost.RefundSum = &sum
	}

	if err := e.recomputer.Recompute(ctx, report); err != nil {
		return nil, err
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.history.Create(txCtx, snapshot); err != nil {
			return fmt.Errorf("failed to archive snapshot: %w", err)
		}
		return e.reports.UpdateIfVersion(txCtx, report, expected)
	})
	if err != nil {
		e.logger.Error("Transition failed", "report_id", reportID, "kind", kind, "trigger", trigger, "error", err)
		return nil, err
	}

	e.logger.Info("Report transitioned",
		"report_id", reportID,
		"kind", kind,
		"trigger", trigger,
		"from", from,
		"to", transition.To,
		"snapshot_id", snapshot.ID)

	if e.dispatcher != nil {
		payloadMap := map[string]interface{}{
			event.KeyFromState:  from.String(),
			event.KeyToState:    transition.To.String(),
			event.KeyTrigger:    trigger.String(),
			event.KeySnapshotID: snapshot.ID,
			event.KeyActorID:    actor.ID,
			event.KeyOwnerID:    report.Owner,
			event.KeyComment:    payload.Comment,
		}
		// Side effects archive this exact document, not whatever is live when they run
		if doc, err := json.Marshal(report); err == nil {
			payloadMap[event.KeyDocument] = string(doc)
		} else {
			e.logger.Error("Failed to encode committed report", "report_id", reportID, "error", err)
		}
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeStateChanged, report.ID, kind, payloadMap))
	}

	return &Result{Report: report, Snapshot: snapshot, Transition: transition}, nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, actor entity.Actor, reportID string) ([]domainwf.Trigger, error) {
	report, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !service.CanRead(actor, report) {
		return nil, &entity.NotFoundError{Entity: "report", ID: reportID}
	}

	machine, err := BuildStateMachine(report.Kind, domainwf.State(report.State))
	if err != nil {
		return nil, err
	}
	triggers := []domainwf.Trigger{}
	for _, trigger := range machine.PermittedTriggers() {
		edge, _ := machine.Transition(trigger)
		if mayFire(actor, report, edge.Access) {
			triggers = append(triggers, trigger)
		}
	}
	return triggers, nil
}

// mayFire checks the access column of a transition row
func mayFire(actor entity.Actor, report *entity.Report, access string) bool {
	if access == entity.AccessOwner {
		return report.IsEditor(actor.ID) || actor.IsAdmin()
	}
	return actor.Can(access, report.Project)
}
