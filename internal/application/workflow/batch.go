package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

// ItemResult is the outcome for one report of a batch
type ItemResult struct {
	ID    string `json:"id"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`

	err error
}

// Err returns the failure of the item, if any
func (r ItemResult) Err() error {
	return r.err
}

// BatchResult tallies a batch. Items keep the order of the request.
type BatchResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

func (e *engineImpl) ApplyBatch(ctx context.Context, actor entity.Actor, kind entity.Kind, reportIDs []string, trigger domainwf.Trigger, payload Payload) (*BatchResult, error) {
	return e.batch(ctx, reportIDs, func(ctx context.Context, id string) (string, error) {
		res, err := e.Apply(ctx, actor, kind, id, trigger, payload)
		if err != nil {
			return "", err
		}
		return res.Report.State, nil
	})
}

func (e *engineImpl) Book(ctx context.Context, actor entity.Actor, reportIDs []string) (*BatchResult, error) {
	return e.batch(ctx, reportIDs, func(ctx context.Context, id string) (string, error) {
		return e.book(ctx, actor, id)
	})
}

// book sets the booked flag. Booking is bookkeeping, not a state change,
// so no snapshot is written.
func (e *engineImpl) book(ctx context.Context, actor entity.Actor, id string) (string, error) {
	report, err := e.reports.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if domainwf.State(report.State) != domainwf.StateRefunded {
		return "", &entity.NotAllowedError{Reason: fmt.Sprintf("only refunded reports can be booked, state is %s", report.State)}
	}
	if !actor.Can(entity.Access(entity.ActionBook, report.Kind), report.Project) {
		return "", &entity.NotAllowedError{Reason: "booking requires " + entity.Access(entity.ActionBook, report.Kind)}
	}
	if report.Booked {
		return report.State, nil
	}

	expected := report.Version
	report.Booked = true
	report.UpdatedAt = e.now()
	if err := e.reports.UpdateIfVersion(ctx, report, expected); err != nil {
		return "", err
	}

	e.logger.Info("Report booked", "report_id", id, "kind", report.Kind, "actor", actor.ID)
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeReportBooked, report.ID, report.Kind, map[string]interface{}{
			event.KeyActorID: actor.ID,
			event.KeyOwnerID: report.Owner,
		}))
	}
	return report.State, nil
}

// batch runs fn for every id with bounded parallelism. An item failure never
// stops the other items; only a batch without any success is an error.
func (e *engineImpl) batch(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (string, error)) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, &entity.ValidationError{Field: "ids", Message: "at least one report is required"}
	}

	items := make([]ItemResult, len(ids))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			state, err := fn(ctx, id)
			items[i] = ItemResult{ID: id, State: state, err: err}
			if err != nil {
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Items: items}
	var first error
	for _, it := range items {
		if it.err != nil {
			result.Failed++
			if first == nil {
				first = it.err
			}
			continue
		}
		result.Succeeded++
	}

	e.logger.Info("Batch finished", "succeeded", result.Succeeded, "failed", result.Failed)
	if result.Succeeded == 0 {
		return result, fmt.Errorf("%w: %v", entity.ErrBatchFailed, first)
	}
	return result, nil
}
